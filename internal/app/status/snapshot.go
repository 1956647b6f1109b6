// Package status provides the playback status snapshot and the broadcaster
// that fans snapshots out to subscribers.
package status

import "github.com/tonearm/tonearm/internal/domain/track"

// Snapshot is an immutable point-in-time description of playback state.
// A fresh snapshot is produced for every published event; consumers never
// mutate one.
type Snapshot struct {
	Track          track.Track // Track the snapshot describes (zero when none)
	IsLoaded       bool
	IsPlaying      bool
	IsBuffering    bool
	PositionMillis int64
	DurationMillis int64
	DidJustFinish  bool
	Err            error  // Engine-level failure, if any
	SequenceNo     uint64 // Stamped by the broadcaster on publish
}

// TrackID returns the identity of the described track, empty when none.
func (s Snapshot) TrackID() string {
	return s.Track.ID
}

// IsStopped returns true if the snapshot describes no active playback.
func (s Snapshot) IsStopped() bool {
	return !s.IsLoaded && !s.IsPlaying && !s.IsBuffering
}
