package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_IsZero(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected bool
	}{
		{
			name:     "zero value",
			track:    Track{},
			expected: true,
		},
		{
			name:     "metadata without identity",
			track:    Track{Title: "Untitled", Artist: "Unknown"},
			expected: true,
		},
		{
			name: "full track",
			track: Track{
				ID:           "trk-1",
				Title:        "Test Song",
				Artist:       "Test Artist",
				SourceURI:    "file:///music/test.flac",
				DurationHint: 3 * time.Minute,
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.IsZero())
		})
	}
}

func TestTrack_Label(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		expected string
	}{
		{
			name:     "artist and title",
			track:    Track{Title: "Blue in Green", Artist: "Miles Davis"},
			expected: "Miles Davis - Blue in Green",
		},
		{
			name:     "title only",
			track:    Track{Title: "Blue in Green"},
			expected: "Blue in Green",
		},
		{
			name:     "empty track",
			track:    Track{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.Label())
		})
	}
}
