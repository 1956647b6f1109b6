// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/tonearm/tonearm/internal/domain/track"
)

// Playlist represents a named, ordered collection of tracks.
// The track order is the order presented to the user.
type Playlist struct {
	ID     string        // Playlist identity (optional for ad hoc collections)
	Name   string        // Display name
	Tracks []track.Track // Tracks in presentation order
}

// TrackIDs returns all track IDs in presentation order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the summed duration hints of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.DurationHint
	}
	return total
}

// Find returns the track with the given ID and true, or a zero track and false.
func (p *Playlist) Find(id string) (track.Track, bool) {
	for _, t := range p.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return track.Track{}, false
}

// IsEmpty returns true if the playlist holds no tracks.
func (p *Playlist) IsEmpty() bool {
	return len(p.Tracks) == 0
}
