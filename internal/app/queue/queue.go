package queue

import (
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tonearm/tonearm/internal/domain/track"
)

// Errors
var (
	ErrEmptyCollection = errors.New("collection is empty")
	ErrTrackNotFound   = errors.New("track not found in collection")
	ErrNoMoreTracks    = errors.New("no more tracks")
)

// Queue owns the ordered list of tracks driving playback.
// It maintains two orderings: the original order as presented to the user,
// and the active order actually driving playback (a permutation of the
// original when shuffle is on). The queue never touches the playback engine.
//
// Queue is not safe for concurrent use; the transport controller is its
// sole mutator.
type Queue struct {
	original []track.Track
	active   []track.Track
	index    int // Position in active order, -1 when nothing is loaded
	repeat   RepeatMode
	shuffle  bool
	rng      *rand.Rand
}

// New creates an empty queue. rng drives shuffle permutations; pass nil to
// use a time-seeded source.
func New(rng *rand.Rand) *Queue {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Queue{
		original: make([]track.Track, 0),
		active:   make([]track.Track, 0),
		index:    -1,
		rng:      rng,
	}
}

// Load replaces the queue contents with the given collection and positions
// it at startTrackID. When shuffle is on, the start track is placed first
// and the remaining tracks are permuted. Returns the resulting active index.
func (q *Queue) Load(collection []track.Track, startTrackID string) (int, error) {
	if len(collection) == 0 {
		return -1, ErrEmptyCollection
	}
	start := indexOf(collection, startTrackID)
	if start < 0 {
		return -1, errors.Wrapf(ErrTrackNotFound, "id %q", startTrackID)
	}

	q.original = make([]track.Track, len(collection))
	copy(q.original, collection)

	if q.shuffle {
		q.active = q.permutationStartingAt(start)
		q.index = 0
	} else {
		q.active = make([]track.Track, len(q.original))
		copy(q.active, q.original)
		q.index = start
	}
	return q.index, nil
}

// Advance moves the position one step in the given direction, applying
// repeat semantics for an explicit user action. RepeatOne does not pin
// manual skips; it only governs natural end-of-track replay (AutoAdvance).
// Returns ErrNoMoreTracks at a boundary when repeat is off.
func (q *Queue) Advance(d Direction) (track.Track, error) {
	if q.index < 0 || len(q.active) == 0 {
		return track.Track{}, ErrEmptyCollection
	}

	next := q.index
	if d == Previous {
		next--
		if next < 0 {
			if q.repeat != RepeatAll {
				return track.Track{}, ErrNoMoreTracks
			}
			next = len(q.active) - 1
		}
	} else {
		next++
		if next >= len(q.active) {
			if q.repeat != RepeatAll {
				return track.Track{}, ErrNoMoreTracks
			}
			next = 0
		}
	}

	q.index = next
	return q.active[q.index], nil
}

// AutoAdvance computes the track to play after a natural end-of-track
// completion. With RepeatOne the current track is returned again; otherwise
// it behaves as Advance(Next).
func (q *Queue) AutoAdvance() (track.Track, error) {
	if q.index < 0 || len(q.active) == 0 {
		return track.Track{}, ErrEmptyCollection
	}
	if q.repeat == RepeatOne {
		return q.active[q.index], nil
	}
	return q.Advance(Next)
}

// SetShuffle toggles shuffle mode. Toggling on rebuilds the active order as
// a permutation with the currently active track first; toggling off restores
// the original order and repositions the index at the active track. The
// active track's identity is never changed by a toggle.
func (q *Queue) SetShuffle(enabled bool) {
	if q.shuffle == enabled {
		return
	}
	q.shuffle = enabled

	if len(q.active) == 0 || q.index < 0 {
		if enabled {
			return
		}
		q.active = make([]track.Track, len(q.original))
		copy(q.active, q.original)
		return
	}

	currentID := q.active[q.index].ID
	if enabled {
		origPos := indexOf(q.original, currentID)
		q.active = q.permutationStartingAt(origPos)
		q.index = 0
		return
	}

	q.active = make([]track.Track, len(q.original))
	copy(q.active, q.original)
	q.index = indexOf(q.active, currentID)
}

// SetRepeat sets the repeat mode. Pure state change, no reordering.
func (q *Queue) SetRepeat(m RepeatMode) {
	q.repeat = m
}

// Repeat returns the current repeat mode.
func (q *Queue) Repeat() RepeatMode {
	return q.repeat
}

// Shuffle returns whether shuffle is enabled.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// Current returns the currently active track and true, or a zero track and
// false when nothing is loaded.
func (q *Queue) Current() (track.Track, bool) {
	if q.index < 0 || q.index >= len(q.active) {
		return track.Track{}, false
	}
	return q.active[q.index], true
}

// Index returns the position within the active order, -1 when nothing is loaded.
func (q *Queue) Index() int {
	return q.index
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.active)
}

// Tracks returns a copy of the active order.
func (q *Queue) Tracks() []track.Track {
	result := make([]track.Track, len(q.active))
	copy(result, q.active)
	return result
}

// OriginalTracks returns a copy of the original presentation order.
func (q *Queue) OriginalTracks() []track.Track {
	result := make([]track.Track, len(q.original))
	copy(result, q.original)
	return result
}

// permutationStartingAt builds a new active order from the original order
// with the track at origPos first, followed by a Fisher-Yates permutation
// of the remaining tracks.
func (q *Queue) permutationStartingAt(origPos int) []track.Track {
	result := make([]track.Track, 0, len(q.original))
	result = append(result, q.original[origPos])
	for i, t := range q.original {
		if i != origPos {
			result = append(result, t)
		}
	}
	rest := result[1:]
	for i := len(rest) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		rest[i], rest[j] = rest[j], rest[i]
	}
	return result
}

func indexOf(tracks []track.Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
