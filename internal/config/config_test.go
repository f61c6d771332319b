package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tracker.MaxFeed != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigTracker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[tracker]
max-feed = "25m"
auto-finalize = "45m"
reminder-title = "Feed!"
wake-lock = false

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tracker.MaxFeed == nil || cfg.Tracker.MaxFeed.Std() != 25*time.Minute {
		t.Fatalf("unexpected max-feed %v", cfg.Tracker.MaxFeed)
	}
	if cfg.Tracker.AutoFinalize.Std() != 45*time.Minute {
		t.Fatalf("unexpected auto-finalize %v", cfg.Tracker.AutoFinalize)
	}
	if *cfg.Tracker.ReminderTitle != "Feed!" || *cfg.Tracker.WakeLock {
		t.Fatalf("unexpected tracker config %+v", cfg.Tracker)
	}
	if cfg.Tracker.StaleAfter != nil {
		t.Fatalf("unset key should stay nil")
	}
	if *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %q", *cfg.Log.Level)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	for name, data := range map[string]string{
		"duration": "[tracker]\nmax-feed = \"soon\"\n",
		"unknown":  "[tracker]\nmax-feeds = \"20m\"\n",
	} {
		path := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEnsureConfigWritesTemplateOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuifeed", "config.toml")
	created, err := EnsureConfig(path)
	if err != nil || !created {
		t.Fatalf("expected creation, got %v %v", created, err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("template must parse: %v", err)
	}
	if cfg.Tracker.MaxFeed != nil {
		t.Fatalf("template keys are commented out")
	}

	if err := os.WriteFile(path, []byte("[tracker]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	created, err = EnsureConfig(path)
	if err != nil || created {
		t.Fatalf("existing file must be kept, got %v %v", created, err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "[tracker]") {
		t.Fatalf("file was overwritten")
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	if got := DefaultDBPath(); got != filepath.Join("/data", "tuifeed", "tuifeed.db") {
		t.Fatalf("db path %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "tuifeed", "tuifeed.log") {
		t.Fatalf("log path %q", got)
	}
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "tuifeed", "config.toml") {
		t.Fatalf("config path %q", got)
	}
}
