// Package main provides the demo player entry point: it wires the simulated
// engine, queue, transport controller and status broadcaster together and
// plays a playlist from a config file on the console.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonearm/tonearm/internal/app/queue"
	"github.com/tonearm/tonearm/internal/app/status"
	"github.com/tonearm/tonearm/internal/app/transport"
	"github.com/tonearm/tonearm/internal/bridge/mediasession"
	"github.com/tonearm/tonearm/internal/domain/track"
	"github.com/tonearm/tonearm/internal/engine"
	"github.com/tonearm/tonearm/internal/engine/sim"
	"github.com/tonearm/tonearm/internal/infra/config"
	"github.com/tonearm/tonearm/internal/infra/logger"
)

var (
	app        = kingpin.New("tonearm", "tonearm playback queue demo player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// tracks command
	tracksCmd = app.Command("tracks", "List playlist tracks and exit")
)

func init() {
	// play command (default) - no need to store the command
	app.Command("play", "Play the configured playlist (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
		File:   "",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Handle tracks command
	if command == tracksCmd.FullCommand() {
		printTracks(cfg)
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Create playback engine
	eng, closeEngine, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer closeEngine()

	// Wire queue, broadcaster and controller
	broadcaster := status.NewBroadcaster()
	ctrl := transport.NewController(transport.Config{
		PreviousRestartThreshold: cfg.PreviousRestartThreshold(),
	}, queue.New(nil), eng, broadcaster)

	ctrl.SetRepeatMode(queue.ParseRepeatMode(cfg.Playback.Repeat))
	if cfg.Playback.Shuffle {
		ctrl.SetShuffleMode(true)
	}

	// Bridge remote-control surface onto the console
	bridge := mediasession.New(&consoleDisplay{}, ctrl)
	bridge.Attach(broadcaster)
	defer bridge.Close()

	// Playback finishes when the queue is depleted
	done := make(chan struct{})
	var doneOnce sync.Once
	unsubscribe := broadcaster.Subscribe(func(s status.Snapshot) {
		if s.Err != nil {
			zlog.Warn().Err(s.Err).Str("track", s.TrackID()).Msg("playback error")
		}
		if s.DidJustFinish && s.IsStopped() {
			doneOnce.Do(func() { close(done) })
		}
	})
	defer unsubscribe()

	// Start playback
	pl := cfg.BuildPlaylist()
	zlog.Info().Msgf("Playing %q: %d tracks, repeat=%s shuffle=%t",
		pl.Name, len(pl.Tracks), ctrl.RepeatMode(), ctrl.ShuffleMode())
	if err := ctrl.Play(pl.Tracks, cfg.StartTrackID()); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}

	// Wait for shutdown signal or end of queue
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
		if err := ctrl.Stop(); err != nil {
			zlog.Error().Msgf("Failed to stop playback: %v", err)
		}
	case <-done:
		zlog.Info().Msg("Playlist finished")
	}

	zlog.Info().Msg("Player stopped")
	return nil
}

// buildEngine constructs the configured playback engine. Only the simulated
// engine is available in this build; platform engines register their own
// type names.
func buildEngine(cfg *config.Config) (engine.Engine, func(), error) {
	switch cfg.Engine.Type {
	case "sim":
		e, err := sim.FromSettings(cfg.Engine.Settings)
		if err != nil {
			return nil, nil, err
		}
		// Config duration hints drive the simulated track lengths
		for _, t := range cfg.BuildPlaylist().Tracks {
			if t.DurationHint > 0 {
				e.SetDuration(t.SourceURI, t.DurationHint)
			}
		}
		return e, e.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine type: %s", cfg.Engine.Type)
	}
}

// printTracks prints the configured playlist.
func printTracks(cfg *config.Config) {
	pl := cfg.BuildPlaylist()
	fmt.Printf("Playlist: %s (%d tracks, %s)\n", pl.Name, len(pl.Tracks), pl.TotalDuration())
	for i, t := range pl.Tracks {
		marker := " "
		if t.ID == cfg.StartTrackID() {
			marker = "*"
		}
		fmt.Printf("%s %2d. [%s] %s (%s)\n", marker, i+1, t.ID, t.Label(), t.DurationHint.Round(time.Second))
	}
}

// consoleDisplay renders now-playing metadata to stdout, standing in for a
// platform media-session surface.
type consoleDisplay struct {
	mu       sync.Mutex
	lastLine string
}

func (d *consoleDisplay) SetNowPlaying(t track.Track, durationMillis int64) {
	d.print(fmt.Sprintf("♪ Now playing: %s [%s]",
		t.Label(), (time.Duration(durationMillis) * time.Millisecond).Round(time.Second)))
}

func (d *consoleDisplay) SetPlaybackState(playing bool, positionMillis int64) {
	state := "paused"
	if playing {
		state = "playing"
	}
	d.print(fmt.Sprintf("  [%s at %s]",
		state, (time.Duration(positionMillis) * time.Millisecond).Round(time.Second)))
}

func (d *consoleDisplay) Clear() {
	d.print("♪ (nothing playing)")
}

// print suppresses consecutive duplicate lines so position ticks don't
// flood the console.
func (d *consoleDisplay) print(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if line == d.lastLine {
		return
	}
	d.lastLine = line
	fmt.Println(line)
}
