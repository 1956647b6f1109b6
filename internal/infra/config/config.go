// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tonearm/tonearm/internal/domain/playlist"
	"github.com/tonearm/tonearm/internal/domain/track"
)

// Config represents the player configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Playback PlaybackConfig `yaml:"playback"`
	Engine   EngineConfig   `yaml:"engine"`
	Playlist PlaylistConfig `yaml:"playlist"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	File   string `yaml:"file"`
}

// PlaybackConfig represents transport behavior configuration.
type PlaybackConfig struct {
	PreviousRestartMs int    `yaml:"previous_restart_ms" default:"3000" validate:"gte=0,lte=30000"`
	Repeat            string `yaml:"repeat" default:"off" validate:"oneof=off one all"`
	Shuffle           bool   `yaml:"shuffle"`
}

// EngineConfig represents the playback engine selection and its free-form
// settings, decoded by the engine implementation itself.
type EngineConfig struct {
	Type     string         `yaml:"type" default:"sim" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// PlaylistConfig represents the playlist to play.
type PlaylistConfig struct {
	Name   string        `yaml:"name" default:"Queue"`
	Start  string        `yaml:"start"` // Track ID to start at; defaults to the first track
	Tracks []TrackConfig `yaml:"tracks" validate:"required,min=1,dive"`
}

// TrackConfig represents a single track entry.
type TrackConfig struct {
	ID         string `yaml:"id" validate:"required"`
	Title      string `yaml:"title"`
	Artist     string `yaml:"artist"`
	Album      string `yaml:"album"`
	ArtworkRef string `yaml:"artwork_ref"`
	URI        string `yaml:"uri" validate:"required"`
	DurationMs int64  `yaml:"duration_ms" validate:"gte=0"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values for the logging fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TONEARM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TONEARM_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
}

// Validate validates the configuration, including cross-field rules the
// struct tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	seen := make(map[string]struct{}, len(c.Playlist.Tracks))
	for _, t := range c.Playlist.Tracks {
		if _, dup := seen[t.ID]; dup {
			return errors.Newf("duplicate track id %q in playlist", t.ID)
		}
		seen[t.ID] = struct{}{}
	}

	if c.Playlist.Start != "" {
		if _, ok := seen[c.Playlist.Start]; !ok {
			return errors.Newf("start track %q is not in the playlist", c.Playlist.Start)
		}
	}

	return nil
}

// PreviousRestartThreshold returns the Previous restart threshold.
func (c *Config) PreviousRestartThreshold() time.Duration {
	return time.Duration(c.Playback.PreviousRestartMs) * time.Millisecond
}

// BuildPlaylist converts the playlist section into the domain entity.
func (c *Config) BuildPlaylist() *playlist.Playlist {
	tracks := make([]track.Track, len(c.Playlist.Tracks))
	for i, t := range c.Playlist.Tracks {
		tracks[i] = track.Track{
			ID:           t.ID,
			Title:        t.Title,
			Artist:       t.Artist,
			Album:        t.Album,
			ArtworkRef:   t.ArtworkRef,
			SourceURI:    t.URI,
			DurationHint: time.Duration(t.DurationMs) * time.Millisecond,
		}
	}
	return &playlist.Playlist{Name: c.Playlist.Name, Tracks: tracks}
}

// StartTrackID returns the configured start track, defaulting to the first
// playlist entry.
func (c *Config) StartTrackID() string {
	if c.Playlist.Start != "" {
		return c.Playlist.Start
	}
	if len(c.Playlist.Tracks) > 0 {
		return c.Playlist.Tracks[0].ID
	}
	return ""
}
