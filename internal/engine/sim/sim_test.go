package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tonearm/tonearm/internal/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// collector gathers emitted snapshots and signals interesting transitions.
type collector struct {
	mu       sync.Mutex
	snaps    []engine.Snapshot
	loaded   chan struct{}
	finished chan struct{}
	failed   chan struct{}
	once     sync.Once
	doneOnce sync.Once
	failOnce sync.Once
}

func newCollector() *collector {
	return &collector{
		loaded:   make(chan struct{}),
		finished: make(chan struct{}),
		failed:   make(chan struct{}),
	}
}

func (c *collector) observe(s engine.Snapshot) {
	c.mu.Lock()
	c.snaps = append(c.snaps, s)
	c.mu.Unlock()
	if s.IsLoaded {
		c.once.Do(func() { close(c.loaded) })
	}
	if s.DidJustFinish {
		c.doneOnce.Do(func() { close(c.finished) })
	}
	if s.Err != nil {
		c.failOnce.Do(func() { close(c.failed) })
	}
}

func (c *collector) all() []engine.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]engine.Snapshot, len(c.snaps))
	copy(out, c.snaps)
	return out
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func newTestEngine(extra Settings) *Engine {
	s := extra
	if s.LoadDelayMs == 0 {
		s.LoadDelayMs = 2
	}
	if s.TickMs == 0 {
		s.TickMs = 5
	}
	if s.DefaultDurationMs == 0 {
		s.DefaultDurationMs = 20
	}
	return New(s)
}

func TestEngine_LoadAndPlayToCompletion(t *testing.T) {
	e := newTestEngine(Settings{})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	require.NoError(t, e.Play())

	waitFor(t, col.finished, "natural completion")

	snaps := col.all()
	require.NotEmpty(t, snaps)
	assert.True(t, snaps[0].IsBuffering, "first snapshot is buffering")

	last := snaps[len(snaps)-1]
	assert.Equal(t, "sim://a", last.SourceURI)
	assert.True(t, last.DidJustFinish)
	assert.False(t, last.IsPlaying)
	assert.Equal(t, last.DurationMillis, last.PositionMillis)
}

func TestEngine_PlayBeforeLoadResolves(t *testing.T) {
	// Play issued while buffering takes effect once the load resolves.
	e := newTestEngine(Settings{LoadDelayMs: 10})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	require.NoError(t, e.Play())

	waitFor(t, col.loaded, "load to resolve")
	assert.True(t, e.Status().IsPlaying)
}

func TestEngine_PlayWithoutLoad(t *testing.T) {
	e := newTestEngine(Settings{})
	defer e.Close()
	assert.Error(t, e.Play())
}

func TestEngine_LoadSupersedesPreviousSession(t *testing.T) {
	e := newTestEngine(Settings{DefaultDurationMs: 10000, LoadDelayMs: 20})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	require.NoError(t, e.Load("sim://b"))
	require.NoError(t, e.Play())

	waitFor(t, col.loaded, "second load to resolve")
	assert.Equal(t, "sim://b", e.Status().SourceURI)
}

func TestEngine_FailURIs(t *testing.T) {
	e := newTestEngine(Settings{FailURIs: []string{"sim://broken"}})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://broken"))
	waitFor(t, col.failed, "load failure snapshot")

	last := e.Status()
	assert.True(t, errors.Is(last.Err, engine.ErrLoadFailed))
	assert.False(t, last.IsLoaded)
}

func TestEngine_SeekClampsToDuration(t *testing.T) {
	e := newTestEngine(Settings{DefaultDurationMs: 10000})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	waitFor(t, col.loaded, "load to resolve")

	require.NoError(t, e.Seek(99999))
	assert.Equal(t, int64(10000), e.Status().PositionMillis)

	require.NoError(t, e.Seek(-5))
	assert.Equal(t, int64(0), e.Status().PositionMillis)
}

func TestEngine_PauseHoldsPosition(t *testing.T) {
	e := newTestEngine(Settings{DefaultDurationMs: 10000, TickMs: 5})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	require.NoError(t, e.Play())
	waitFor(t, col.loaded, "load to resolve")

	require.NoError(t, e.Pause())
	pos := e.Status().PositionMillis
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, pos, e.Status().PositionMillis, "position frozen while paused")
	assert.False(t, e.Status().IsPlaying)
}

func TestEngine_StopDiscardsSession(t *testing.T) {
	e := newTestEngine(Settings{DefaultDurationMs: 10000})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	waitFor(t, col.loaded, "load to resolve")

	require.NoError(t, e.Stop())
	last := e.Status()
	assert.False(t, last.IsLoaded)
	assert.False(t, last.IsPlaying)

	assert.Error(t, e.Play(), "stopped engine has nothing to play")
}

func TestEngine_ReloadAfterStop(t *testing.T) {
	// Stop cancels the running session; a fresh Load must start cleanly.
	e := newTestEngine(Settings{DefaultDurationMs: 10000})
	defer e.Close()

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://a"))
	waitFor(t, col.loaded, "first load to resolve")
	require.NoError(t, e.Stop())

	col2 := newCollector()
	e.OnStatusChanged(col2.observe)

	require.NoError(t, e.Load("sim://b"))
	waitFor(t, col2.loaded, "load after stop to resolve")
	assert.Equal(t, "sim://b", e.Status().SourceURI)
	assert.True(t, e.Status().IsLoaded)
}

func TestEngine_SetDuration(t *testing.T) {
	e := newTestEngine(Settings{DefaultDurationMs: 10000})
	defer e.Close()
	e.SetDuration("sim://short", 40*time.Millisecond)

	col := newCollector()
	e.OnStatusChanged(col.observe)

	require.NoError(t, e.Load("sim://short"))
	waitFor(t, col.loaded, "load to resolve")
	assert.Equal(t, int64(40), e.Status().DurationMillis)
}

func TestFromSettings(t *testing.T) {
	t.Run("valid settings", func(t *testing.T) {
		e, err := FromSettings(map[string]any{
			"load_delay_ms":       10,
			"tick_ms":             250,
			"default_duration_ms": 5000,
			"fail_uris":           []string{"sim://x"},
		})
		require.NoError(t, err)
		defer e.Close()
		assert.Equal(t, 250, e.settings.TickMs)
		assert.Equal(t, []string{"sim://x"}, e.settings.FailURIs)
	})

	t.Run("empty settings use defaults", func(t *testing.T) {
		e, err := FromSettings(nil)
		require.NoError(t, err)
		defer e.Close()
		assert.Equal(t, 1000, e.settings.TickMs)
		assert.Equal(t, int64(30000), e.settings.DefaultDurationMs)
	})

	t.Run("malformed settings", func(t *testing.T) {
		_, err := FromSettings(map[string]any{"tick_ms": "not a number"})
		assert.Error(t, err)
	})
}
