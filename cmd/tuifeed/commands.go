package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/tuifeed/internal/config"
	"github.com/verte-zerg/tuifeed/internal/ics"
	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/sample"
	"github.com/verte-zerg/tuifeed/internal/stats"
	"github.com/verte-zerg/tuifeed/internal/statsui"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
	"github.com/verte-zerg/tuifeed/internal/tracker"
)

const dateLayout = "2006-01-02"

var (
	statsDate  string
	statsPlain bool

	historyLimit int

	bottleAt string

	clearYes bool

	exportFormat string

	importFormat string
	importYes    bool

	remindIn       time.Duration
	remindAt       string
	remindFromLast bool

	icsIn          time.Duration
	icsRepeatEvery time.Duration
	icsRepeatCount int
	icsAlarm       time.Duration
	icsTitle       string
	icsOut         string

	sampleDays int
	sampleYes  bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily, monthly and yearly stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsDate, "date", "", "date to show (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print text reports instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	date := time.Now()
	if statsDate != "" {
		parsed, err := time.ParseInLocation(dateLayout, statsDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date value: %w", err)
		}
		date = parsed.Add(12 * time.Hour)
	}
	cfg := model.StatsConfig{Date: date}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printStats(cmd.OutOrStdout(), stats.BuildReport(a.tracker.Committed(), cfg))
	}
	ui := statsui.NewModel(a.store, cfg)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func printStats(w io.Writer, r stats.Report) error {
	opts := stats.RenderOptions{}
	if err := stats.RenderHourly(w, r.Date, r.Hourly, opts); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := stats.RenderMonthly(w, r.Date.Month(), r.Date.Year(), r.Monthly, opts); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return stats.RenderYearly(w, r.Date.Year(), r.Yearly, opts)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return stats.RenderHistory(cmd.OutOrStdout(), a.tracker.Committed(), historyLimit)
		},
	}
	cmd.Flags().IntVar(&historyLimit, "limit", 20, "number of feeds to show (0 for all)")
	return cmd
}

func newBottleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bottle <oz>",
		Short: "Log a bottle feed",
		Args:  cobra.ExactArgs(1),
		RunE:  runBottleCmd,
	}
	cmd.Flags().StringVar(&bottleAt, "at", "", "feed time (HH:MM today, or YYYY-MM-DD HH:MM)")
	return cmd
}

func runBottleCmd(cmd *cobra.Command, args []string) error {
	oz, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(args[0]), "oz"), 64)
	if err != nil {
		return fmt.Errorf("invalid ounces %q", args[0])
	}
	var at time.Time
	if bottleAt != "" {
		at, err = parseWhen(bottleAt, time.Now())
		if err != nil {
			return err
		}
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	unit, err := a.tracker.AddBottle(cmd.Context(), oz, at)
	if err != nil {
		return fmt.Errorf("failed to log bottle: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged %.1f oz at %s (%s)\n", unit.VolumeOz, timefmt.ClockTime(unit.EndTime.Time()), unit.ID)
	return err
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a feed by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.tracker.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[0], err)
			}
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all feeding history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ok, err := confirm(cmd, clearYes, "Delete all feeding history?")
			if err != nil {
				return err
			}
			return a.tracker.Clear(cmd.Context(), ok)
		},
	}
	cmd.Flags().BoolVar(&clearYes, "yes", false, "do not ask for confirmation")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export history as JSON or YAML (- for stdout)",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (default: from file extension)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(exportFormat, args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	units := a.tracker.Committed()
	if args[0] == "-" {
		return tracker.Encode(cmd.OutOrStdout(), units, format)
	}
	var buf bytes.Buffer
	if err := tracker.Encode(&buf, units, format); err != nil {
		return err
	}
	if err := writeFileAtomic(args[0], buf.Bytes()); err != nil {
		return err
	}
	logErrf("Exported %d feeds to %s\n", len(units), args[0])
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace history with an exported file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importFormat, "format", "", "json or yaml (default: from file extension)")
	cmd.Flags().BoolVar(&importYes, "yes", false, "do not ask for confirmation")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(importFormat, args[0])
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	units, err := tracker.Decode(data, format)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ok, err := confirm(cmd, importYes, fmt.Sprintf("Replace history with %d feeds from %s?", len(units), args[0]))
	if err != nil {
		return err
	}
	n, err := a.tracker.Import(cmd.Context(), units, ok)
	if err != nil {
		return err
	}
	logErrf("Imported %d feeds\n", n)
	return nil
}

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Manage the next-feed reminder",
	}
	set := &cobra.Command{
		Use:   "set",
		Short: "Schedule a reminder",
		Args:  cobra.NoArgs,
		RunE:  runRemindSetCmd,
	}
	set.Flags().DurationVar(&remindIn, "in", 0, "delay such as 3h or 2h30m (default: --default-reminder)")
	set.Flags().StringVar(&remindAt, "at", "", "time (HH:MM today, or YYYY-MM-DD HH:MM)")
	set.Flags().BoolVar(&remindFromLast, "from-last", false, "count --in from the last feed instead of now")
	cmd.AddCommand(set)
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Cancel the reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			rem := a.reminders()
			defer rem.Close()
			return rem.Clear(cmd.Context())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the scheduled reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			r, err := a.store.Reminder(cmd.Context())
			if err != nil {
				return err
			}
			if r == nil {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No reminder set.")
				return err
			}
			left := time.Until(r.FireAt.Time())
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s at %s (in %s)\n", r.Title, timefmt.ClockTime(r.FireAt.Time()), timefmt.Since(left))
			return err
		},
	})
	return cmd
}

func runRemindSetCmd(cmd *cobra.Command, _ []string) error {
	if remindAt != "" && cmd.Flags().Changed("in") {
		return fmt.Errorf("use either --in or --at")
	}
	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	rem := a.reminders()
	defer rem.Close()

	var r model.Reminder
	if remindAt != "" {
		at, err := parseWhen(remindAt, time.Now())
		if err != nil {
			return err
		}
		r, err = rem.Set(cmd.Context(), at, a.cfg.ReminderTitle)
		if err != nil {
			return err
		}
	} else {
		delay := remindIn
		if delay == 0 {
			delay = a.cfg.DefaultReminder
		}
		var base time.Time
		if remindFromLast {
			if st := a.tracker.Status(); st.HasLastFeed {
				base = st.LastFeed.Time()
			}
		}
		r, err = rem.SetForDelay(cmd.Context(), int(delay/time.Hour), int((delay%time.Hour)/time.Minute), base, a.cfg.ReminderTitle)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Reminder set for %s\n", timefmt.ClockTime(r.FireAt.Time()))
	return err
}

func newICSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write a calendar reminder (.ics) and print a Google Calendar link",
		Args:  cobra.NoArgs,
		RunE:  runICSCmd,
	}
	cmd.Flags().DurationVar(&icsIn, "in", 3*time.Hour, "first reminder after this long")
	cmd.Flags().DurationVar(&icsRepeatEvery, "repeat-every", 0, "repeat interval in whole hours (0 for none)")
	cmd.Flags().IntVar(&icsRepeatCount, "repeat-count", 8, "number of occurrences when repeating")
	cmd.Flags().DurationVar(&icsAlarm, "alarm", 0, "alert this long before the event (negative for none)")
	cmd.Flags().StringVar(&icsTitle, "title", "", "event title (default: --reminder-title)")
	cmd.Flags().StringVar(&icsOut, "out", "", "output path, - for stdout (default: named after the rule)")
	return cmd
}

func runICSCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadTrackerConfig(cmd)
	if err != nil {
		return err
	}
	title := icsTitle
	if title == "" {
		title = cfg.ReminderTitle
	}
	now := time.Now()
	ev := ics.Event{
		Title: title,
		Start: now.Add(icsIn),
		Stamp: now,
	}
	interval := int(icsRepeatEvery / time.Hour)
	count := 0
	if interval > 0 {
		count = icsRepeatCount
		ev.RRule = ics.HourlyRule(interval, count)
	}
	if icsAlarm >= 0 {
		alarm := icsAlarm
		ev.Alarm = &alarm
	}

	out := icsOut
	if out == "" {
		out = ics.Filename(interval, count)
	}
	var buf bytes.Buffer
	if err := ics.Write(&buf, ev); err != nil {
		return fmt.Errorf("failed to render calendar: %w", err)
	}
	if out == "-" {
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return err
		}
	} else {
		if err := writeFileAtomic(out, buf.Bytes()); err != nil {
			return err
		}
		logErrf("Wrote %s\n", out)
	}
	logErrln("Google Calendar:", ics.GoogleCalendarURL(title, ev.Start, ics.DefaultDuration, ics.DefaultDetails))
	return nil
}

func newSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Replace history with generated demo data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ok, err := confirm(cmd, sampleYes, "Replace all feeding history with sample data?")
			if err != nil {
				return err
			}
			units := sample.New().Generate(time.Now(), sampleDays)
			n, err := a.tracker.Import(cmd.Context(), units, ok)
			if err != nil {
				return err
			}
			logErrf("Generated %d feeds over %d days\n", n, sampleDays)
			return nil
		},
	}
	cmd.Flags().IntVar(&sampleDays, "days", sample.DefaultDays, "days of history to generate")
	cmd.Flags().BoolVar(&sampleYes, "yes", false, "do not ask for confirmation")
	return cmd
}

// loadTrackerConfig resolves settings without opening the database.
func loadTrackerConfig(cmd *cobra.Command) (model.TrackerConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.TrackerConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return applyTrackerConfig(cmd, fileCfg.Tracker), nil
}

// confirm asks a y/N question on the terminal unless yes is set. Without a
// terminal the answer is no.
func confirm(cmd *cobra.Command, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("%w: pass --yes to run without a terminal", tracker.ErrNotConfirmed)
	}
	if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func resolveFormat(flag, path string) (tracker.Format, error) {
	if flag != "" {
		return tracker.ParseFormat(flag)
	}
	return tracker.FormatForPath(path), nil
}

// parseWhen accepts HH:MM for today, "YYYY-MM-DD HH:MM", or RFC 3339.
func parseWhen(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateLayout+" 15:04", value, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("15:04", value, now.Location()); err == nil {
		y, m, d := now.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use HH:MM or YYYY-MM-DD HH:MM)", value)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmpFile, err := os.CreateTemp(dir, ".tuifeed-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
