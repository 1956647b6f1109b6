// Package transport provides the transport controller: the single owner of
// "what is playing". It translates play/pause/seek/next/previous into queue
// mutations and engine calls, and publishes status snapshots to observers.
// It is the only component allowed to call the playback engine.
package transport

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/internal/app/queue"
	"github.com/tonearm/tonearm/internal/app/status"
	"github.com/tonearm/tonearm/internal/domain/track"
	"github.com/tonearm/tonearm/internal/engine"
)

// DefaultPreviousRestartThreshold is the position beyond which Previous
// restarts the current track instead of skipping to the prior one.
const DefaultPreviousRestartThreshold = 3 * time.Second

// Config holds controller configuration.
type Config struct {
	PreviousRestartThreshold time.Duration // Zero means DefaultPreviousRestartThreshold
}

// Controller serializes all transport operations behind one mutex, so at
// most one engine-mutating operation is in flight at a time. Engine
// callbacks that describe media no longer current are discarded, which is
// what supersedes a stale request after a rapid skip. Snapshots are
// published after the mutex is released; observers may re-enter the
// controller from their callback.
type Controller struct {
	mu sync.Mutex

	cfg         Config
	queue       *queue.Queue
	engine      engine.Engine
	broadcaster *status.Broadcaster

	last status.Snapshot
	seq  uint64 // Monotonically increasing engine-request sequence
}

// NewController creates a controller and registers itself as the engine's
// status listener. One controller instance exists per application session;
// collaborators receive it by injection, never via a global.
func NewController(cfg Config, q *queue.Queue, eng engine.Engine, b *status.Broadcaster) *Controller {
	if cfg.PreviousRestartThreshold <= 0 {
		cfg.PreviousRestartThreshold = DefaultPreviousRestartThreshold
	}
	c := &Controller{
		cfg:         cfg,
		queue:       q,
		engine:      eng,
		broadcaster: b,
	}
	eng.OnStatusChanged(c.handleEngineStatus)
	return c
}

// Play replaces the queue with the given collection and starts playback at
// startTrackID. Queue errors leave the engine untouched; an error snapshot
// is published and the error returned for the caller to interpret.
func (c *Controller) Play(collection []track.Track, startTrackID string) error {
	c.mu.Lock()
	if _, err := c.queue.Load(collection, startTrackID); err != nil {
		snap := status.Snapshot{Err: err}
		c.last = snap
		c.mu.Unlock()
		c.broadcaster.Publish(snap)
		return err
	}

	cur, _ := c.queue.Current()
	snap, err := c.loadAndPlayLocked(cur)
	c.last = snap
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
	return err
}

// Pause pauses playback. A no-op without a loaded track; when already
// paused it re-publishes the current snapshot without touching the engine.
// A buffering track carries an issued play intent, so Pause reaches the
// engine there too; otherwise the load would resolve straight into playback
// the user just cancelled.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if _, ok := c.queue.Current(); !ok {
		c.mu.Unlock()
		return nil
	}
	if !c.last.IsPlaying && !c.last.IsBuffering {
		snap := c.last
		c.mu.Unlock()
		c.broadcaster.Publish(snap)
		return nil
	}
	if err := c.engine.Pause(); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.last
	snap.IsPlaying = false
	c.last = snap
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
	return nil
}

// Resume resumes paused playback. Idempotent in the same way as Pause.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if _, ok := c.queue.Current(); !ok {
		c.mu.Unlock()
		return nil
	}
	if c.last.IsPlaying {
		snap := c.last
		c.mu.Unlock()
		c.broadcaster.Publish(snap)
		return nil
	}
	if err := c.engine.Play(); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.last
	snap.IsPlaying = true
	c.last = snap
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
	return nil
}

// Stop stops the engine and publishes a stopped snapshot. The queue keeps
// its position; a later Resume is not implied.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if err := c.engine.Stop(); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := status.Snapshot{Track: c.last.Track}
	c.last = snap
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
	return nil
}

// Seek forwards a clamped position to the engine. Out-of-range input is
// clamped, never an error; sliders routinely overshoot by a frame.
func (c *Controller) Seek(positionMillis int64) error {
	c.mu.Lock()
	if _, ok := c.queue.Current(); !ok {
		c.mu.Unlock()
		return nil
	}
	pos := positionMillis
	if pos < 0 {
		pos = 0
	}
	if c.last.DurationMillis > 0 && pos > c.last.DurationMillis {
		pos = c.last.DurationMillis
	}
	if err := c.engine.Seek(pos); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.last
	snap.PositionMillis = pos
	c.last = snap
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
	return nil
}

// Next skips to the next track. At the queue boundary with repeat off it
// stops the engine and publishes a terminal snapshot instead of erroring.
func (c *Controller) Next() error {
	c.mu.Lock()
	return c.advanceAndUnlock(queue.Next)
}

// Previous skips to the prior track when within the restart threshold of
// the current track's start; otherwise it restarts the current track at
// position zero and leaves the queue index unchanged.
func (c *Controller) Previous() error {
	c.mu.Lock()
	cur, ok := c.queue.Current()
	if ok && c.last.PositionMillis >= c.cfg.PreviousRestartThreshold.Milliseconds() {
		if err := c.engine.Seek(0); err != nil {
			c.mu.Unlock()
			return err
		}
		zlog.Debug().Str("track", cur.ID).Msg("transport: previous restarts current track")
		snap := c.last
		snap.PositionMillis = 0
		c.last = snap
		c.mu.Unlock()
		c.broadcaster.Publish(snap)
		return nil
	}
	return c.advanceAndUnlock(queue.Previous)
}

// advanceAndUnlock advances the queue in the given direction and drives the
// engine accordingly. Must be entered with the lock held; it releases the
// lock before publishing.
func (c *Controller) advanceAndUnlock(d queue.Direction) error {
	t, err := c.queue.Advance(d)
	if err != nil {
		if errors.Is(err, queue.ErrNoMoreTracks) {
			snap := c.terminalSnapshotLocked()
			c.mu.Unlock()
			c.broadcaster.Publish(snap)
			return nil
		}
		c.mu.Unlock()
		return err
	}

	snap, err := c.loadAndPlayLocked(t)
	c.last = snap
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
	return err
}

// SetRepeatMode sets the repeat mode and re-publishes the current snapshot.
func (c *Controller) SetRepeatMode(m queue.RepeatMode) {
	c.mu.Lock()
	c.queue.SetRepeat(m)
	snap := c.last
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
}

// SetShuffleMode toggles shuffle. The audible track never changes; only its
// index within the active order does.
func (c *Controller) SetShuffleMode(enabled bool) {
	c.mu.Lock()
	c.queue.SetShuffle(enabled)
	snap := c.last
	c.mu.Unlock()
	c.broadcaster.Publish(snap)
}

// RepeatMode returns the queue's repeat mode.
func (c *Controller) RepeatMode() queue.RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Repeat()
}

// ShuffleMode returns whether shuffle is enabled.
func (c *Controller) ShuffleMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Shuffle()
}

// Status returns the last known snapshot. A cached read; UI threads never
// block on engine I/O here.
func (c *Controller) Status() status.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// CurrentTrack returns the queue's current track, if any.
func (c *Controller) CurrentTrack() (track.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Current()
}

// QueueTracks returns a copy of the queue's active order.
func (c *Controller) QueueTracks() []track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Tracks()
}

// loadAndPlayLocked issues load+play for the given track under a fresh
// request sequence number and returns the immediate buffering snapshot.
// Engine failures surface on the snapshot's Err field; the controller
// remains usable afterwards.
func (c *Controller) loadAndPlayLocked(t track.Track) (status.Snapshot, error) {
	c.seq++
	seq := c.seq

	zlog.Debug().
		Uint64("request", seq).
		Str("track", t.ID).
		Str("uri", t.SourceURI).
		Msg("transport: loading track")

	if err := c.engine.Load(t.SourceURI); err != nil {
		zlog.Warn().Uint64("request", seq).Str("track", t.ID).Err(err).
			Msg("transport: engine load failed")
		return status.Snapshot{Track: t, Err: err}, err
	}
	if err := c.engine.Play(); err != nil {
		zlog.Warn().Uint64("request", seq).Str("track", t.ID).Err(err).
			Msg("transport: engine play failed")
		return status.Snapshot{Track: t, Err: err}, err
	}

	return status.Snapshot{
		Track:          t,
		IsBuffering:    true,
		DurationMillis: t.DurationHint.Milliseconds(),
	}, nil
}

// terminalSnapshotLocked stops the engine and builds the "stopped, did just
// finish" snapshot for a depleted queue.
func (c *Controller) terminalSnapshotLocked() status.Snapshot {
	if err := c.engine.Stop(); err != nil {
		zlog.Warn().Err(err).Msg("transport: engine stop failed")
	}
	snap := status.Snapshot{
		Track:         c.last.Track,
		DidJustFinish: true,
	}
	c.last = snap
	return snap
}

// handleEngineStatus receives engine snapshots. A snapshot describing media
// that is no longer current belongs to a superseded request and is dropped,
// which prevents a stale "now playing A" arriving after a skip to B.
func (c *Controller) handleEngineStatus(es engine.Snapshot) {
	c.mu.Lock()
	cur, ok := c.queue.Current()
	if !ok || es.SourceURI != cur.SourceURI {
		seq := c.seq
		c.mu.Unlock()
		zlog.Debug().
			Str("uri", es.SourceURI).
			Uint64("request", seq).
			Msg("transport: discarding stale engine status")
		return
	}

	snap := status.Snapshot{
		Track:          cur,
		IsLoaded:       es.IsLoaded,
		IsPlaying:      es.IsPlaying,
		IsBuffering:    es.IsBuffering,
		PositionMillis: es.PositionMillis,
		DurationMillis: es.DurationMillis,
		DidJustFinish:  es.DidJustFinish,
		Err:            es.Err,
	}

	if !es.DidJustFinish {
		c.last = snap
		c.mu.Unlock()
		c.broadcaster.Publish(snap)
		return
	}

	// Natural completion: repeat-one replays the same track, otherwise the
	// queue advances; a depleted queue produces the terminal snapshot.
	toPublish := []status.Snapshot{snap}
	nxt, err := c.queue.AutoAdvance()
	if err != nil {
		toPublish = append(toPublish, c.terminalSnapshotLocked())
	} else {
		nextSnap, loadErr := c.loadAndPlayLocked(nxt)
		if loadErr != nil {
			zlog.Warn().Str("track", nxt.ID).Err(loadErr).
				Msg("transport: auto-advance failed")
		}
		c.last = nextSnap
		toPublish = append(toPublish, nextSnap)
	}
	c.mu.Unlock()
	for _, s := range toPublish {
		c.broadcaster.Publish(s)
	}
}
