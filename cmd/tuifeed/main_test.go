package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuifeed/internal/config"
	"github.com/verte-zerg/tuifeed/internal/tracker"
)

func TestApplyTrackerConfigFlagsWin(t *testing.T) {
	root := newRootCmd()
	if err := root.ParseFlags([]string{"--max-feed", "25m"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	fileMax := config.Duration(15 * time.Minute)
	fileFinalize := config.Duration(45 * time.Minute)
	title := "Feed time"
	cfg := applyTrackerConfig(root, config.TrackerConfig{
		MaxFeed:       &fileMax,
		AutoFinalize:  &fileFinalize,
		ReminderTitle: &title,
	})
	if cfg.MaxFeed != 25*time.Minute {
		t.Fatalf("flag should override file, got %v", cfg.MaxFeed)
	}
	if cfg.AutoFinalize != 45*time.Minute || cfg.ReminderTitle != "Feed time" {
		t.Fatalf("file values should apply to unset flags, got %+v", cfg)
	}
	if cfg.StaleAfter != tracker.DefaultConfig().StaleAfter {
		t.Fatalf("unset keys keep defaults, got %v", cfg.StaleAfter)
	}
}

func TestValidateConfig(t *testing.T) {
	good := tracker.DefaultConfig()
	if err := validateConfig(good); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	bad := good
	bad.StaleAfter = time.Minute
	if err := validateConfig(bad); err == nil {
		t.Fatalf("expected stale-after error")
	}
	bad = good
	bad.ReminderTitle = "  "
	if err := validateConfig(bad); err == nil {
		t.Fatalf("expected title error")
	}
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	got, err := parseWhen("14:05", now)
	if err != nil || !got.Equal(time.Date(2024, 5, 10, 14, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected clock time %v, %v", got, err)
	}
	got, err = parseWhen("2024-05-09 23:10", now)
	if err != nil || !got.Equal(time.Date(2024, 5, 9, 23, 10, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date time %v, %v", got, err)
	}
	if _, err := parseWhen("tomorrow", now); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveFormat(t *testing.T) {
	if f, err := resolveFormat("", "backup.yml"); err != nil || f != tracker.FormatYAML {
		t.Fatalf("expected yaml from extension, got %v %v", f, err)
	}
	if f, err := resolveFormat("json", "backup.yml"); err != nil || f != tracker.FormatJSON {
		t.Fatalf("flag should win, got %v %v", f, err)
	}
	if _, err := resolveFormat("xml", "x"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestConfirm(t *testing.T) {
	cmd := &cobra.Command{}
	ok, err := confirm(cmd, true, "sure?")
	if err != nil || !ok {
		t.Fatalf("--yes must confirm, got %v %v", ok, err)
	}
	// Tests run without a terminal on stdin.
	cmd.SetIn(strings.NewReader("y\n"))
	cmd.SetErr(&bytes.Buffer{})
	if _, err := confirm(cmd, false, "sure?"); !errors.Is(err, tracker.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed without a terminal, got %v", err)
	}
}
