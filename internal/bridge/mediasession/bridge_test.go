package mediasession

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonearm/tonearm/internal/app/status"
	"github.com/tonearm/tonearm/internal/domain/track"
)

type fakeDisplay struct {
	calls []string
}

func (d *fakeDisplay) SetNowPlaying(t track.Track, durationMillis int64) {
	d.calls = append(d.calls, fmt.Sprintf("nowplaying %s %d", t.ID, durationMillis))
}

func (d *fakeDisplay) SetPlaybackState(playing bool, positionMillis int64) {
	d.calls = append(d.calls, fmt.Sprintf("state playing=%v pos=%d", playing, positionMillis))
}

func (d *fakeDisplay) Clear() {
	d.calls = append(d.calls, "clear")
}

type fakeTransport struct {
	calls []string
	err   error
}

func (t *fakeTransport) record(c string) error {
	t.calls = append(t.calls, c)
	return t.err
}

func (t *fakeTransport) Resume() error { return t.record("resume") }
func (t *fakeTransport) Pause() error  { return t.record("pause") }
func (t *fakeTransport) Stop() error   { return t.record("stop") }
func (t *fakeTransport) Next() error   { return t.record("next") }
func (t *fakeTransport) Previous() error {
	return t.record("previous")
}
func (t *fakeTransport) Seek(positionMillis int64) error {
	return t.record(fmt.Sprintf("seek %d", positionMillis))
}

func playingSnapshot(id string, positionMillis int64) status.Snapshot {
	return status.Snapshot{
		Track:          track.Track{ID: id, Title: "Song " + id},
		IsLoaded:       true,
		IsPlaying:      true,
		PositionMillis: positionMillis,
		DurationMillis: 60000,
	}
}

func TestBridge_MirrorsSnapshots(t *testing.T) {
	display := &fakeDisplay{}
	bridge := New(display, &fakeTransport{})
	b := status.NewBroadcaster()
	bridge.Attach(b)

	b.Publish(playingSnapshot("a", 0))
	b.Publish(playingSnapshot("a", 1000))

	assert.Equal(t, []string{
		"nowplaying a 60000",
		"state playing=true pos=0",
		"state playing=true pos=1000",
	}, display.calls, "metadata pushed once per track, state every snapshot")
}

func TestBridge_TrackChangeUpdatesMetadata(t *testing.T) {
	display := &fakeDisplay{}
	bridge := New(display, &fakeTransport{})
	b := status.NewBroadcaster()
	bridge.Attach(b)

	b.Publish(playingSnapshot("a", 0))
	b.Publish(playingSnapshot("b", 0))

	assert.Contains(t, display.calls, "nowplaying a 60000")
	assert.Contains(t, display.calls, "nowplaying b 60000")
}

func TestBridge_TerminalSnapshotClearsDisplay(t *testing.T) {
	display := &fakeDisplay{}
	bridge := New(display, &fakeTransport{})
	b := status.NewBroadcaster()
	bridge.Attach(b)

	b.Publish(playingSnapshot("a", 0))
	b.Publish(status.Snapshot{Track: track.Track{ID: "a"}, DidJustFinish: true})

	assert.Equal(t, "clear", display.calls[len(display.calls)-1])

	// A later snapshot for the same track re-pushes metadata.
	b.Publish(playingSnapshot("a", 0))
	assert.Equal(t, "nowplaying a 60000", display.calls[len(display.calls)-2])
}

func TestBridge_EmptySnapshotClearsDisplay(t *testing.T) {
	display := &fakeDisplay{}
	bridge := New(display, &fakeTransport{})
	b := status.NewBroadcaster()
	bridge.Attach(b)

	b.Publish(status.Snapshot{})
	assert.Equal(t, []string{"clear"}, display.calls)
}

func TestBridge_RemoteCommands(t *testing.T) {
	transport := &fakeTransport{}
	bridge := New(&fakeDisplay{}, transport)

	bridge.OnRemotePlay()
	bridge.OnRemotePause()
	bridge.OnRemoteStop()
	bridge.OnRemoteNext()
	bridge.OnRemotePrevious()
	bridge.OnRemoteSeek(4500)

	assert.Equal(t, []string{
		"resume", "pause", "stop", "next", "previous", "seek 4500",
	}, transport.calls)
}

func TestBridge_RemoteCommandErrorsAreSwallowed(t *testing.T) {
	transport := &fakeTransport{err: assert.AnError}
	bridge := New(&fakeDisplay{}, transport)

	assert.NotPanics(t, func() {
		bridge.OnRemoteNext()
		bridge.OnRemoteSeek(1)
	})
	assert.Equal(t, []string{"next", "seek 1"}, transport.calls)
}

func TestBridge_Close(t *testing.T) {
	display := &fakeDisplay{}
	bridge := New(display, &fakeTransport{})
	b := status.NewBroadcaster()
	bridge.Attach(b)

	bridge.Close()
	assert.Equal(t, 0, b.SubscriberCount())
	assert.Equal(t, []string{"clear"}, display.calls)

	// Snapshots after Close no longer reach the display.
	b.Publish(playingSnapshot("a", 0))
	assert.Equal(t, []string{"clear"}, display.calls)
}
