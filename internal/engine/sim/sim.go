// Package sim provides a simulated playback engine. It produces no audio:
// loads resolve after a configurable delay and playback is advanced by a
// wall-clock ticker, emitting the same snapshot sequence a real platform
// engine would (buffering, loaded, progress ticks, natural completion).
// The demo CLI and integration tests run against it.
package sim

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/internal/engine"
)

// Settings configures the simulated engine. The zero value is usable;
// missing fields fall back to defaults.
type Settings struct {
	LoadDelayMs       int      `mapstructure:"load_delay_ms"`       // Delay before a load resolves
	TickMs            int      `mapstructure:"tick_ms"`             // Progress tick interval
	DefaultDurationMs int64    `mapstructure:"default_duration_ms"` // Duration for unregistered media
	FailURIs          []string `mapstructure:"fail_uris"`           // Media whose load fails
}

func (s *Settings) applyDefaults() {
	if s.LoadDelayMs <= 0 {
		s.LoadDelayMs = 25
	}
	if s.TickMs <= 0 {
		s.TickMs = 1000
	}
	if s.DefaultDurationMs <= 0 {
		s.DefaultDurationMs = 30000
	}
}

// FromSettings builds an engine from a free-form settings map, as found in
// the engine section of a config file.
func FromSettings(raw map[string]any) (*Engine, error) {
	var s Settings
	if err := mapstructure.Decode(raw, &s); err != nil {
		return nil, errors.Wrap(err, "invalid sim engine settings")
	}
	return New(s), nil
}

// session is the playback state for one loaded media.
type session struct {
	uri       string
	duration  time.Duration
	position  time.Duration
	loaded    bool
	buffering bool
	playing   bool
	wantPlay  bool // Play arrived while still buffering
}

// Engine implements engine.Engine with simulated time. Status callbacks are
// delivered from a dedicated dispatcher goroutine, never from the goroutine
// that issued the engine command; the listener is free to call back into
// the engine, and into whatever locks it holds around engine calls.
type Engine struct {
	mu        sync.Mutex
	settings  Settings
	durations map[string]time.Duration
	statusFn  engine.StatusFunc
	state     *session
	cancel    context.CancelFunc
	last      engine.Snapshot
	wg        sync.WaitGroup

	emitMu       sync.Mutex
	emitCond     *sync.Cond
	emitQueue    []engine.Snapshot
	emitClosed   bool
	dispatchDone chan struct{}
}

// New creates a simulated engine.
func New(settings Settings) *Engine {
	settings.applyDefaults()
	e := &Engine{
		settings:     settings,
		durations:    make(map[string]time.Duration),
		dispatchDone: make(chan struct{}),
	}
	e.emitCond = sync.NewCond(&e.emitMu)
	go e.dispatch()
	return e
}

// SetDuration registers the playback duration for a media locator.
// Unregistered media use the default duration.
func (e *Engine) SetDuration(sourceURI string, d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.durations[sourceURI] = d
}

// OnStatusChanged registers the status listener.
func (e *Engine) OnStatusChanged(fn engine.StatusFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusFn = fn
}

// Load begins loading the given media, superseding any current session.
// Completion, and failure for media on the fail list, arrive through the
// status callback after the configured load delay.
func (e *Engine) Load(sourceURI string) error {
	e.mu.Lock()
	e.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.state = &session{
		uri:       sourceURI,
		duration:  e.durationLocked(sourceURI),
		buffering: true,
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.emit(snap)
	e.wg.Add(1)
	go e.run(ctx, sourceURI)
	return nil
}

// Play starts or resumes playback of the loaded media. When the media is
// still buffering, playback begins as soon as the load resolves.
func (e *Engine) Play() error {
	e.mu.Lock()
	st := e.state
	if st == nil {
		e.mu.Unlock()
		return errors.New("sim: nothing loaded")
	}
	if st.buffering {
		st.wantPlay = true
		e.mu.Unlock()
		return nil
	}
	st.playing = true
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// Pause pauses playback; the tick loop idles until Play.
func (e *Engine) Pause() error {
	e.mu.Lock()
	st := e.state
	if st == nil {
		e.mu.Unlock()
		return nil
	}
	st.playing = false
	st.wantPlay = false
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// Stop discards the current session entirely.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.cancelLocked()
	var uri string
	if e.state != nil {
		uri = e.state.uri
	}
	e.state = nil
	snap := engine.Snapshot{SourceURI: uri}
	e.last = snap
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// Seek moves the playback position, clamped to the media duration.
func (e *Engine) Seek(positionMillis int64) error {
	e.mu.Lock()
	st := e.state
	if st == nil {
		e.mu.Unlock()
		return nil
	}
	pos := time.Duration(positionMillis) * time.Millisecond
	if pos < 0 {
		pos = 0
	}
	if pos > st.duration {
		pos = st.duration
	}
	st.position = pos
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)
	return nil
}

// Status returns the last emitted snapshot without blocking.
func (e *Engine) Status() engine.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Close cancels any running session and waits for the session and
// dispatcher goroutines to exit. Snapshots already queued are still
// delivered; the engine must not be used after Close.
func (e *Engine) Close() {
	e.mu.Lock()
	e.cancelLocked()
	e.state = nil
	e.mu.Unlock()
	e.wg.Wait()

	e.emitMu.Lock()
	e.emitClosed = true
	e.emitCond.Signal()
	e.emitMu.Unlock()
	<-e.dispatchDone
}

// run drives one session: resolve the load, then tick progress until the
// media completes or the session is superseded.
func (e *Engine) run(ctx context.Context, uri string) {
	defer e.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(e.settings.LoadDelayMs) * time.Millisecond):
	}

	e.mu.Lock()
	st := e.state
	if st == nil || st.uri != uri {
		e.mu.Unlock()
		return
	}
	if e.failsLocked(uri) {
		st.buffering = false
		snap := e.snapshotLocked()
		snap.Err = errors.Wrapf(engine.ErrLoadFailed, "uri %q", uri)
		e.last = snap
		e.mu.Unlock()
		zlog.Debug().Str("uri", uri).Msg("sim: load failed as configured")
		e.emit(snap)
		return
	}
	st.buffering = false
	st.loaded = true
	if st.wantPlay {
		st.playing = true
		st.wantPlay = false
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.emit(snap)

	tick := time.Duration(e.settings.TickMs) * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			st := e.state
			if st == nil || st.uri != uri {
				e.mu.Unlock()
				return
			}
			if !st.playing {
				e.mu.Unlock()
				continue
			}
			st.position += tick
			if st.position >= st.duration {
				st.position = st.duration
				st.playing = false
				snap := e.snapshotLocked()
				snap.DidJustFinish = true
				e.last = snap
				e.mu.Unlock()
				zlog.Debug().Str("uri", uri).Msg("sim: media finished")
				e.emit(snap)
				return
			}
			snap := e.snapshotLocked()
			e.mu.Unlock()
			e.emit(snap)
		}
	}
}

// snapshotLocked builds and caches a snapshot of the current session state.
// Must be called with the lock held.
func (e *Engine) snapshotLocked() engine.Snapshot {
	st := e.state
	if st == nil {
		return engine.Snapshot{}
	}
	snap := engine.Snapshot{
		SourceURI:      st.uri,
		IsLoaded:       st.loaded,
		IsPlaying:      st.playing,
		IsBuffering:    st.buffering,
		PositionMillis: st.position.Milliseconds(),
		DurationMillis: st.duration.Milliseconds(),
	}
	e.last = snap
	return snap
}

// cancelLocked stops the current session goroutine, if any. Must be called
// with the lock held.
func (e *Engine) cancelLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) durationLocked(uri string) time.Duration {
	if d, ok := e.durations[uri]; ok {
		return d
	}
	return time.Duration(e.settings.DefaultDurationMs) * time.Millisecond
}

func (e *Engine) failsLocked(uri string) bool {
	for _, f := range e.settings.FailURIs {
		if f == uri {
			return true
		}
	}
	return false
}

// emit queues a snapshot for the dispatcher. The queue is unbounded so an
// emitter never blocks on a slow listener. Never called with the state lock
// held. Snapshots emitted after Close are dropped.
func (e *Engine) emit(snap engine.Snapshot) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	if e.emitClosed {
		return
	}
	e.emitQueue = append(e.emitQueue, snap)
	e.emitCond.Signal()
}

// dispatch delivers queued snapshots to the listener in emission order,
// draining what remains after Close before exiting.
func (e *Engine) dispatch() {
	defer close(e.dispatchDone)
	for {
		e.emitMu.Lock()
		for len(e.emitQueue) == 0 && !e.emitClosed {
			e.emitCond.Wait()
		}
		if len(e.emitQueue) == 0 {
			e.emitMu.Unlock()
			return
		}
		snap := e.emitQueue[0]
		e.emitQueue = e.emitQueue[1:]
		e.emitMu.Unlock()

		e.mu.Lock()
		fn := e.statusFn
		e.mu.Unlock()
		if fn != nil {
			fn(snap)
		}
	}
}

var _ engine.Engine = (*Engine)(nil)
