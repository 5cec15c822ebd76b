// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/chime/internal/model"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "2s", "1m", or a quoted integer of milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Bare integers are milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '2s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the configuration for chimed and chime.
// Loaded from ~/.config/chime/chime.toml
type Config struct {
	Audio   AudioConfig   `toml:"audio"`
	Routing RoutingConfig `toml:"routing"`
	Journal JournalConfig `toml:"journal"`
	Metrics MetricsConfig `toml:"metrics"`
}

// AudioConfig contains the user's sound preferences.
type AudioConfig struct {
	Enabled         bool        `toml:"enabled"`           // Master sound switch
	Volume          int         `toml:"volume"`            // 0-100, 0 disables sound
	PlayWhenFocused bool        `toml:"play_when_focused"` // Play while the app has focus
	MinInterval     Duration    `toml:"min_interval"`      // Debounce between sounds
	PlayTimeout     Duration    `toml:"play_timeout"`      // Bound on one playback request, 0 = none
	Sounds          SoundConfig `toml:"sounds"`
}

// SoundConfig contains per-kind sound file paths. Empty paths fall back to
// Default, and an empty Default selects the built-in chime.
type SoundConfig struct {
	Default               string `toml:"default"`
	FriendRequestReceived string `toml:"friend_request_received"`
	FriendRequestAccepted string `toml:"friend_request_accepted"`
	DMMessage             string `toml:"dm_message"`
	ChannelMention        string `toml:"channel_mention"`
	System                string `toml:"system"`
}

// RoutingConfig contains per-kind routing defaults.
type RoutingConfig struct {
	// Kinds whose in-app sound is suppressed while unfocused, because the
	// OS push channel already announces them. Callers may override per event.
	SuppressWhenUnfocused []string `toml:"suppress_when_unfocused"`
}

// JournalConfig controls the decision journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Empty = default data path
}

// MetricsConfig controls the Prometheus endpoint of chimed.
type MetricsConfig struct {
	Listen string `toml:"listen"` // e.g. "127.0.0.1:9464", empty disables
}

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			Enabled:         true,
			Volume:          80,
			PlayWhenFocused: true,
			MinInterval:     Duration(500 * time.Millisecond),
			PlayTimeout:     Duration(2 * time.Second),
		},
		Routing: RoutingConfig{
			SuppressWhenUnfocused: []string{
				string(model.KindDMMessage),
				string(model.KindChannelMention),
			},
		},
		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

// Path returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func Path() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "chime", "chime.toml"), nil
}

// Load loads the configuration from path, or from Path() when path is empty.
// If the file doesn't exist, returns the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path, or to Path() when path is empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}
	if c.Audio.MinInterval < 0 {
		return fmt.Errorf("min_interval must not be negative, got %s", c.Audio.MinInterval.Duration())
	}
	if c.Audio.PlayTimeout < 0 {
		return fmt.Errorf("play_timeout must not be negative, got %s", c.Audio.PlayTimeout.Duration())
	}

	for _, k := range c.Routing.SuppressWhenUnfocused {
		if _, err := model.ParseKind(k); err != nil {
			return fmt.Errorf("routing.suppress_when_unfocused: %w", err)
		}
	}

	return nil
}

// AudioSettings returns the decision-time snapshot of the sound preferences.
func (c *Config) AudioSettings() model.AudioSettings {
	return model.AudioSettings{
		MasterSoundEnabled: c.Audio.Enabled,
		Volume:             c.Audio.Volume,
		PlayWhenFocused:    c.Audio.PlayWhenFocused,
	}
}

// SuppressWhenUnfocused reports the per-kind default for background suppression.
func (c *Config) SuppressWhenUnfocused(kind model.Kind) bool {
	return slices.Contains(c.Routing.SuppressWhenUnfocused, string(kind))
}

// SoundPaths returns the configured sound file per kind.
func (c *Config) SoundPaths() map[model.Kind]string {
	return map[model.Kind]string{
		model.KindFriendRequestReceived: c.Audio.Sounds.FriendRequestReceived,
		model.KindFriendRequestAccepted: c.Audio.Sounds.FriendRequestAccepted,
		model.KindDMMessage:             c.Audio.Sounds.DMMessage,
		model.KindChannelMention:        c.Audio.Sounds.ChannelMention,
		model.KindSystem:                c.Audio.Sounds.System,
	}
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "chime")
}

// MutesPath returns the path to the mute state file.
func MutesPath() string {
	return filepath.Join(DataPath(), "mutes.json")
}

// JournalPath returns the configured journal path or the default one.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(DataPath(), "decisions.jsonl")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
