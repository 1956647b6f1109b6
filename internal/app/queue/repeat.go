// Package queue provides the playback queue model: track ordering,
// position bookkeeping, and repeat/shuffle semantics.
package queue

// RepeatMode represents the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop at the queue boundary
	RepeatOne                   // Replay the current track on natural completion
	RepeatAll                   // Wrap around at the queue boundary
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "off"
	}
}

// ParseRepeatMode converts a string to a RepeatMode.
// Unknown values map to RepeatOff.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "one":
		return RepeatOne
	case "all":
		return RepeatAll
	default:
		return RepeatOff
	}
}

// Direction represents the direction of a manual advance.
type Direction int

const (
	Next     Direction = iota // Advance toward the end of the active order
	Previous                  // Advance toward the start of the active order
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}
