// Package engine defines the playback engine contract consumed by the
// transport controller. The platform decode/output primitive lives behind
// this interface; the core never reaches past it.
package engine

import "github.com/cockroachdb/errors"

// Errors reported by engine implementations. They travel to observers as
// the Err field of a status snapshot, never as a panic or crash.
var (
	ErrLoadFailed   = errors.New("engine: load failed")
	ErrDecodeFailed = errors.New("engine: decode failed")
	ErrInterrupted  = errors.New("engine: playback interrupted")
)

// Snapshot is the engine's own view of playback state, emitted on every
// state transition and on the periodic progress tick.
type Snapshot struct {
	SourceURI      string // Locator of the media this snapshot describes
	IsLoaded       bool
	IsPlaying      bool
	IsBuffering    bool
	PositionMillis int64
	DurationMillis int64
	DidJustFinish  bool  // Natural end of track, no manual intervention
	Err            error // Engine-level failure for the current media, if any
}

// StatusFunc receives engine snapshots. Implementations must not assume a
// particular calling goroutine.
type StatusFunc func(Snapshot)

// Engine is the narrow contract for a playback primitive.
//
// Load begins loading the given media and is allowed to resolve
// asynchronously; completion and failure are both reported through the
// status callback. The remaining transport calls apply to the most recently
// loaded media. Status returns the engine's last known snapshot without
// blocking on I/O.
type Engine interface {
	Load(sourceURI string) error
	Play() error
	Pause() error
	Stop() error
	Seek(positionMillis int64) error
	Status() Snapshot
	OnStatusChanged(fn StatusFunc)
}
