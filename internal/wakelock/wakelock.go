// Package wakelock keeps the machine awake while a feed is running.
package wakelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/verte-zerg/tuifeed/internal/logging"
)

var ErrUnsupported = errors.New("wake lock is not supported")

// Lock is a held wake lock.
type Lock interface {
	Release() error
}

// Inhibitor acquires wake locks.
type Inhibitor interface {
	Acquire(ctx context.Context) (Lock, error)
}

// Manager holds a lock exactly while Sync is told the timer runs. A failed
// acquisition, including a missing helper, is retried on the next Sync.
type Manager struct {
	mu        sync.Mutex
	inhibitor Inhibitor
	log       logging.Logger
	lock      Lock
}

func NewManager(inh Inhibitor, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{inhibitor: inh, log: log.With("component", "wakelock")}
}

// Sync acquires or releases the lock to match running. Failures are logged
// and never returned.
func (m *Manager) Sync(ctx context.Context, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !running {
		m.releaseLocked(ctx)
		return
	}
	if m.lock != nil || m.inhibitor == nil {
		return
	}
	lock, err := m.inhibitor.Acquire(ctx)
	if err != nil {
		m.log.Debug(ctx, "wake lock unavailable", "err", err)
		return
	}
	m.lock = lock
}

// Held reports whether a lock is currently held.
func (m *Manager) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lock != nil
}

// Release drops any held lock.
func (m *Manager) Release(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(ctx)
}

func (m *Manager) releaseLocked(ctx context.Context) {
	if m.lock == nil {
		return
	}
	if err := m.lock.Release(); err != nil {
		m.log.Debug(ctx, "wake lock release failed", "err", err)
	}
	m.lock = nil
}

// defaultSettle is how long a freshly started helper must stay alive before
// it counts as holding the lock.
const defaultSettle = 200 * time.Millisecond

// Command inhibits sleep by keeping a helper process alive: systemd-inhibit
// on Linux and caffeinate on macOS.
type Command struct {
	GOOS     string
	LookPath func(string) (string, error)
	Settle   time.Duration
}

func NewCommand() Command {
	return Command{GOOS: runtime.GOOS, LookPath: exec.LookPath, Settle: defaultSettle}
}

func (c Command) Acquire(context.Context) (Lock, error) {
	name, args, err := c.command()
	if err != nil {
		return nil, err
	}
	if _, err := c.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupported, name)
	}
	return startHelper(name, args, c.Settle)
}

// startHelper runs the helper and waits settle for it to exit early, which
// happens when systemd-inhibit cannot reach logind.
func startHelper(name string, args []string, settle time.Duration) (Lock, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	l := &processLock{cmd: cmd, exited: make(chan struct{})}
	go func() {
		l.waitErr = cmd.Wait()
		close(l.exited)
	}()
	if settle > 0 {
		select {
		case <-l.exited:
			err := l.waitErr
			if err == nil {
				err = errors.New("exited immediately")
			}
			return nil, fmt.Errorf("%s did not hold the lock: %w", name, err)
		case <-time.After(settle):
		}
	}
	return l, nil
}

func (c Command) command() (string, []string, error) {
	switch c.GOOS {
	case "linux":
		return "systemd-inhibit", []string{
			"--what=idle:sleep",
			"--who=tuifeed",
			"--why=Feeding in progress",
			"sleep", "infinity",
		}, nil
	case "darwin":
		return "caffeinate", []string{"-di"}, nil
	default:
		return "", nil, ErrUnsupported
	}
}

type processLock struct {
	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error
}

func (l *processLock) Release() error {
	select {
	case <-l.exited:
		// The helper already exited; nothing is held.
		return nil
	default:
	}
	if err := l.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	// The signal exit status is expected.
	<-l.exited
	return nil
}
