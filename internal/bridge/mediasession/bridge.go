// Package mediasession bridges the playback core to an OS media session:
// it mirrors status snapshots onto a display surface (notification,
// lock-screen metadata) and relays remote transport commands back into the
// controller. The bridge owns no playback logic.
package mediasession

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/internal/app/status"
	"github.com/tonearm/tonearm/internal/domain/track"
)

// Display is the OS surface the bridge mirrors state onto.
type Display interface {
	SetNowPlaying(t track.Track, durationMillis int64)
	SetPlaybackState(playing bool, positionMillis int64)
	Clear()
}

// Transport is the subset of controller operations remote commands map onto,
// one to one.
type Transport interface {
	Resume() error
	Pause() error
	Stop() error
	Next() error
	Previous() error
	Seek(positionMillis int64) error
}

// Bridge connects a broadcaster to a display and relays remote commands.
type Bridge struct {
	display   Display
	transport Transport

	mu          sync.Mutex
	unsubscribe func()
	lastTrackID string
}

// New creates a bridge. Call Attach to start mirroring.
func New(display Display, transport Transport) *Bridge {
	return &Bridge{display: display, transport: transport}
}

// Attach subscribes the bridge to the broadcaster. Attaching twice replaces
// the previous subscription.
func (b *Bridge) Attach(broadcaster *status.Broadcaster) {
	b.mu.Lock()
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.unsubscribe = broadcaster.Subscribe(b.handleSnapshot)
	b.mu.Unlock()
}

// Close detaches the bridge and clears the display.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
	b.lastTrackID = ""
	b.mu.Unlock()
	b.display.Clear()
}

// handleSnapshot mirrors a snapshot onto the display. Track metadata is
// only pushed when the track changes; playback state follows every snapshot.
func (b *Bridge) handleSnapshot(s status.Snapshot) {
	if s.TrackID() == "" || (s.IsStopped() && s.DidJustFinish) {
		b.mu.Lock()
		b.lastTrackID = ""
		b.mu.Unlock()
		b.display.Clear()
		return
	}

	b.mu.Lock()
	changed := s.TrackID() != b.lastTrackID
	b.lastTrackID = s.TrackID()
	b.mu.Unlock()

	if changed {
		b.display.SetNowPlaying(s.Track, s.DurationMillis)
	}
	b.display.SetPlaybackState(s.IsPlaying, s.PositionMillis)
}

// Remote command relays. Errors are logged, never propagated to the OS.

// OnRemotePlay relays a remote play command.
func (b *Bridge) OnRemotePlay() {
	b.relay("play", b.transport.Resume)
}

// OnRemotePause relays a remote pause command.
func (b *Bridge) OnRemotePause() {
	b.relay("pause", b.transport.Pause)
}

// OnRemoteStop relays a remote stop command.
func (b *Bridge) OnRemoteStop() {
	b.relay("stop", b.transport.Stop)
}

// OnRemoteNext relays a remote next-track command.
func (b *Bridge) OnRemoteNext() {
	b.relay("next", b.transport.Next)
}

// OnRemotePrevious relays a remote previous-track command.
func (b *Bridge) OnRemotePrevious() {
	b.relay("previous", b.transport.Previous)
}

// OnRemoteSeek relays a remote seek command.
func (b *Bridge) OnRemoteSeek(positionMillis int64) {
	b.relay("seek", func() error { return b.transport.Seek(positionMillis) })
}

func (b *Bridge) relay(command string, fn func() error) {
	if err := fn(); err != nil {
		zlog.Warn().Str("command", command).Err(err).
			Msg("mediasession: remote command failed")
	}
}
