// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Tracker TrackerConfig `toml:"tracker"`
	Log     LogConfig     `toml:"log"`
}

// TrackerConfig maps tracker-related settings. Nil fields are unset.
type TrackerConfig struct {
	MaxFeed         *Duration `toml:"max-feed"`
	AutoFinalize    *Duration `toml:"auto-finalize"`
	StaleAfter      *Duration `toml:"stale-after"`
	WatchInterval   *Duration `toml:"watch-interval"`
	ReminderTitle   *string   `toml:"reminder-title"`
	DefaultReminder *Duration `toml:"default-reminder"`
	WakeLock        *bool     `toml:"wake-lock"`
	Notifications   *bool     `toml:"notifications"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	Path  *string `toml:"path"`
}

// Duration decodes Go duration strings such as "20m" or "1h30m".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

const template = `# tuifeed configuration

[tracker]
# max-feed = "20m"
# auto-finalize = "30m"
# stale-after = "3h"
# watch-interval = "1s"
# reminder-title = "Time for the next feed!"
# default-reminder = "3h"
# wake-lock = true
# notifications = true

[log]
# level = "info"
# path = ""
`

// EnsureConfig writes a commented template to path unless a file exists.
// It reports whether a file was created.
func EnsureConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
