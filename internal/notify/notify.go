// Package notify shows desktop notifications, degrading to a terminal bell
// when the platform has no notifier.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/verte-zerg/tuifeed/internal/logging"
)

var ErrUnsupported = errors.New("desktop notifications are not supported")

// Notifier displays a short message.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Desktop uses notify-send on Linux and osascript on macOS.
type Desktop struct {
	GOOS     string
	LookPath func(string) (string, error)
	Run      Runner
}

// NewDesktop returns a Desktop notifier for the running platform.
func NewDesktop() *Desktop {
	return &Desktop{GOOS: runtime.GOOS, LookPath: exec.LookPath, Run: execRunner}
}

func (d *Desktop) Notify(ctx context.Context, title, body string) error {
	name, args, err := d.command(title, body)
	if err != nil {
		return err
	}
	if _, err := d.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnsupported, name)
	}
	if err := d.Run(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}

func (d *Desktop) command(title, body string) (string, []string, error) {
	switch d.GOOS {
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{"--app-name=tuifeed", title}
		if body != "" {
			args = append(args, body)
		}
		return "notify-send", args, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleQuote(body), appleQuote(title))
		return "osascript", []string{"-e", script}, nil
	default:
		return "", nil, ErrUnsupported
	}
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Bell rings the terminal bell and prints the message.
type Bell struct {
	W io.Writer
}

func (b Bell) Notify(_ context.Context, title, body string) error {
	msg := "\a" + title
	if body != "" {
		msg += ": " + body
	}
	_, err := fmt.Fprintln(b.W, msg)
	return err
}

// Fallback tries Primary and uses Secondary when it fails.
type Fallback struct {
	Primary   Notifier
	Secondary Notifier
	Log       logging.Logger
}

func (f Fallback) Notify(ctx context.Context, title, body string) error {
	err := f.Primary.Notify(ctx, title, body)
	if err == nil {
		return nil
	}
	if f.Log != nil {
		f.Log.Debug(ctx, "primary notifier failed", "err", err)
	}
	if f.Secondary == nil {
		return err
	}
	return f.Secondary.Notify(ctx, title, body)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }
