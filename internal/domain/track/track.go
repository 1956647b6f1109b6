// Package track provides the Track domain entity.
package track

import "time"

// Track represents a playable item.
// It is immutable once constructed; ownership lies with the queue holding it.
type Track struct {
	ID           string        // Stable identity, unique within a queue
	Title        string        // Track title
	Artist       string        // Artist name
	Album        string        // Album name (optional)
	ArtworkRef   string        // Artwork locator (optional)
	SourceURI    string        // Opaque locator passed to the playback engine
	DurationHint time.Duration // Advisory duration; the engine reports the authoritative one
}

// IsZero returns true if the track carries no identity.
func (t Track) IsZero() bool {
	return t.ID == ""
}

// Label returns a human-readable "Artist - Title" string for logging.
func (t Track) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
