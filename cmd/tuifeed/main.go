// Package main provides the CLI entrypoint for tuifeed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/config"
	"github.com/verte-zerg/tuifeed/internal/logging"
	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/notify"
	"github.com/verte-zerg/tuifeed/internal/reminder"
	"github.com/verte-zerg/tuifeed/internal/store"
	"github.com/verte-zerg/tuifeed/internal/tracker"
	"github.com/verte-zerg/tuifeed/internal/tui"
	"github.com/verte-zerg/tuifeed/internal/wakelock"
)

var (
	dbPath   string
	logLevel string
	logPath  string

	trackerMaxFeed         time.Duration
	trackerAutoFinalize    time.Duration
	trackerStaleAfter      time.Duration
	trackerWatchInterval   time.Duration
	trackerReminderTitle   string
	trackerDefaultReminder time.Duration
	trackerWakeLock        bool
	trackerNotifications   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	def := tracker.DefaultConfig()
	rootCmd := &cobra.Command{
		Use:           "tuifeed",
		Short:         "TUI infant feeding tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrackerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "log file path (default: XDG state dir)")

	rootCmd.PersistentFlags().DurationVar(&trackerMaxFeed, "max-feed", def.MaxFeed, "stop a running side after this long")
	rootCmd.PersistentFlags().DurationVar(&trackerAutoFinalize, "auto-finalize", def.AutoFinalize, "close a one-sided feed after this long")
	rootCmd.PersistentFlags().DurationVar(&trackerStaleAfter, "stale-after", def.StaleAfter, "restore older running timers as paused")
	rootCmd.PersistentFlags().DurationVar(&trackerWatchInterval, "watch-interval", def.WatchInterval, "how often to check for changes from other instances")
	rootCmd.PersistentFlags().StringVar(&trackerReminderTitle, "reminder-title", def.ReminderTitle, "reminder notification title")
	rootCmd.PersistentFlags().DurationVar(&trackerDefaultReminder, "default-reminder", def.DefaultReminder, "delay suggested when setting a reminder")
	rootCmd.Flags().BoolVar(&trackerWakeLock, "wake-lock", def.WakeLock, "keep the machine awake while a side is running")
	rootCmd.PersistentFlags().BoolVar(&trackerNotifications, "notifications", def.Notifications, "send desktop notifications for reminders")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newBottleCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newRemindCmd())
	rootCmd.AddCommand(newICSCmd())
	rootCmd.AddCommand(newSampleCmd())

	return rootCmd
}

// app holds the runtime shared by every command.
type app struct {
	cfg      model.TrackerConfig
	log      logging.Logger
	store    *store.Store
	tracker  *tracker.Tracker
	notifier reminder.Notifier
	closers  []io.Closer
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := applyTrackerConfig(cmd, fileCfg.Tracker)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	log, err := a.openLogger(cmd, fileCfg.Log)
	if err != nil {
		return nil, err
	}
	a.log = log

	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(ctx, path, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, st)

	tr, err := tracker.New(ctx, st, tracker.Options{Clock: clock.System{}, Log: log, Config: cfg})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load tracker: %w", err)
	}
	a.tracker = tr

	a.notifier = notify.Nop{}
	if cfg.Notifications {
		a.notifier = notify.Fallback{Primary: notify.NewDesktop(), Secondary: notify.Bell{W: os.Stderr}, Log: log}
	}
	return a, nil
}

func (a *app) openLogger(cmd *cobra.Command, fileCfg config.LogConfig) (logging.Logger, error) {
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Level)
	applyStringConfig(cmd, "log-file", &logPath, fileCfg.Path)
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", logLevel)
	}
	path := logPath
	if path == "" {
		path = config.DefaultLogPath()
	}
	log, closer, err := logging.NewFileLogger(path, level)
	if err != nil {
		logErrf("logging disabled: %v\n", err)
		return logging.Discard(), nil
	}
	a.closers = append(a.closers, closer)
	return log, nil
}

func (a *app) reminders() *reminder.Service {
	return reminder.New(a.store, clock.System{}, a.notifier, a.log)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.tracker != nil {
		a.tracker.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil {
			// Best-effort close on exit.
			_ = cerr
		}
	}
}

func runTrackerCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rem := a.reminders()
	defer rem.Close()
	if err := rem.Load(ctx); err != nil {
		logErrf("failed to load reminder: %v\n", err)
	}

	var lock *wakelock.Manager
	if a.cfg.WakeLock {
		lock = wakelock.NewManager(wakelock.NewCommand(), a.log)
	}
	ui := tui.NewModel(a.tracker, rem, lock, clock.System{}, a.log)
	defer ui.Close()
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.store.Watch(gctx, a.cfg.WatchInterval, func() {
			if err := a.tracker.Refresh(gctx); err != nil {
				a.log.Warn(gctx, "failed to refresh tracker", "err", err)
			}
			if err := rem.Load(gctx); err != nil {
				a.log.Warn(gctx, "failed to reload reminder", "err", err)
			}
		})
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if _, err := config.EnsureConfig(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// applyTrackerConfig overlays TOML values onto flags the user did not set.
func applyTrackerConfig(cmd *cobra.Command, fileCfg config.TrackerConfig) model.TrackerConfig {
	applyDurationConfig(cmd, "max-feed", &trackerMaxFeed, fileCfg.MaxFeed)
	applyDurationConfig(cmd, "auto-finalize", &trackerAutoFinalize, fileCfg.AutoFinalize)
	applyDurationConfig(cmd, "stale-after", &trackerStaleAfter, fileCfg.StaleAfter)
	applyDurationConfig(cmd, "watch-interval", &trackerWatchInterval, fileCfg.WatchInterval)
	applyStringConfig(cmd, "reminder-title", &trackerReminderTitle, fileCfg.ReminderTitle)
	applyDurationConfig(cmd, "default-reminder", &trackerDefaultReminder, fileCfg.DefaultReminder)
	applyBoolConfig(cmd, "wake-lock", &trackerWakeLock, fileCfg.WakeLock)
	applyBoolConfig(cmd, "notifications", &trackerNotifications, fileCfg.Notifications)

	return model.TrackerConfig{
		MaxFeed:         trackerMaxFeed,
		AutoFinalize:    trackerAutoFinalize,
		StaleAfter:      trackerStaleAfter,
		WatchInterval:   trackerWatchInterval,
		ReminderTitle:   trackerReminderTitle,
		DefaultReminder: trackerDefaultReminder,
		WakeLock:        trackerWakeLock,
		Notifications:   trackerNotifications,
	}
}

func validateConfig(cfg model.TrackerConfig) error {
	if cfg.MaxFeed <= 0 {
		return fmt.Errorf("--max-feed must be > 0")
	}
	if cfg.AutoFinalize <= 0 {
		return fmt.Errorf("--auto-finalize must be > 0")
	}
	if cfg.StaleAfter < cfg.MaxFeed {
		return fmt.Errorf("--stale-after must be >= --max-feed")
	}
	if cfg.WatchInterval < 100*time.Millisecond {
		return fmt.Errorf("--watch-interval must be at least 100ms")
	}
	if strings.TrimSpace(cfg.ReminderTitle) == "" {
		return fmt.Errorf("--reminder-title must not be empty")
	}
	return nil
}

// flagChanged reports whether name was set on the command line, locally or
// on a parent command.
func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Changed
	}
	if f := cmd.PersistentFlags().Lookup(name); f != nil {
		return f.Changed
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil {
		return f.Changed
	}
	return false
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = value.Std()
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
