package status

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Observer receives published snapshots. Observers are invoked synchronously
// in subscription order; a slow observer delays the dispatch loop.
type Observer func(Snapshot)

// subscription ties an observer to its removal handle.
type subscription struct {
	id string
	fn Observer
}

// Broadcaster decouples "the controller produced a snapshot" from "N
// independent observers want the latest snapshot". Subscriptions are keyed
// by handle, so removal is by identity and safe to repeat.
type Broadcaster struct {
	mu         sync.RWMutex
	subs       []subscription
	sequenceNo uint64
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make([]subscription, 0)}
}

// Subscribe registers an observer and returns an unsubscribe capability
// that removes exactly that observer. Calling it more than once is a no-op.
func (b *Broadcaster) Subscribe(fn Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return func() { b.unsubscribe(id) }
}

func (b *Broadcaster) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish stamps the snapshot with the next sequence number and delivers it
// to every subscriber in subscription order. A panicking observer is
// isolated and logged; delivery continues with the remaining observers.
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.Lock()
	b.sequenceNo++
	snap.SequenceNo = b.sequenceNo
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		b.dispatch(sub, snap)
	}
}

func (b *Broadcaster) dispatch(sub subscription, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().
				Str("subscription", sub.id).
				Interface("panic", r).
				Msg("status: observer panicked during dispatch")
		}
	}()
	sub.fn(snap)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
