// Package enginetest provides a scripted fake playback engine for tests.
// It records every transport call and emits status snapshots only when the
// test asks it to, which makes races and supersession deterministic.
package enginetest

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/tonearm/tonearm/internal/engine"
)

// Fake implements engine.Engine without producing any audio or timers.
type Fake struct {
	mu       sync.Mutex
	calls    []string
	loaded   string
	last     engine.Snapshot
	statusFn engine.StatusFunc

	failLoad bool
	failPlay bool
}

// NewFake creates an idle fake engine.
func NewFake() *Fake {
	return &Fake{calls: make([]string, 0)}
}

// SetFailLoad makes subsequent Load calls fail.
func (f *Fake) SetFailLoad(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failLoad = fail
}

// SetFailPlay makes subsequent Play calls fail.
func (f *Fake) SetFailPlay(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPlay = fail
}

// Load records the call and remembers the URI as the loaded media.
func (f *Fake) Load(sourceURI string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "load "+sourceURI)
	if f.failLoad {
		return errors.Wrapf(engine.ErrLoadFailed, "uri %q", sourceURI)
	}
	f.loaded = sourceURI
	return nil
}

// Play records the call.
func (f *Fake) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "play")
	if f.failPlay {
		return engine.ErrDecodeFailed
	}
	return nil
}

// Pause records the call.
func (f *Fake) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pause")
	return nil
}

// Stop records the call and forgets the loaded media.
func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "stop")
	f.loaded = ""
	return nil
}

// Seek records the call with its position.
func (f *Fake) Seek(positionMillis int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("seek %d", positionMillis))
	return nil
}

// Status returns the last emitted snapshot.
func (f *Fake) Status() engine.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// OnStatusChanged registers the status listener.
func (f *Fake) OnStatusChanged(fn engine.StatusFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusFn = fn
}

// Emit delivers a snapshot to the registered listener on the caller's
// goroutine, exactly as the test scripts it.
func (f *Fake) Emit(s engine.Snapshot) {
	f.mu.Lock()
	f.last = s
	fn := f.statusFn
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

// Calls returns a copy of the recorded transport calls.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// ClearCalls resets the recorded call list.
func (f *Fake) ClearCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = f.calls[:0]
}

// Loaded returns the URI of the currently loaded media, empty when none.
func (f *Fake) Loaded() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

var _ engine.Engine = (*Fake)(nil)
