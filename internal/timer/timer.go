// Package timer tracks one in-progress single-side feeding session.
//
// Durations are always derived from wall-clock instants, never from a tick
// counter, so a suspended process neither loses nor invents elapsed time.
package timer

import (
	"errors"
	"time"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/model"
)

// State is the timer lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

var (
	ErrNotIdle         = errors.New("timer already active")
	ErrNotRunning      = errors.New("timer is not running")
	ErrNotPaused       = errors.New("timer is not paused")
	ErrIdle            = errors.New("timer is idle")
	ErrInvalidSide     = errors.New("invalid side")
	ErrInvalidSnapshot = errors.New("invalid timer snapshot")
)

// Policy bounds what a rehydrated snapshot is trusted to claim.
type Policy struct {
	// StaleAfter is the elapsed time beyond which a restored timer is
	// treated as abandoned.
	StaleAfter time.Duration
	// MaxFeed caps the accumulated base of an abandoned timer.
	MaxFeed time.Duration
}

// DefaultPolicy matches the tracker defaults.
var DefaultPolicy = Policy{StaleAfter: 3 * time.Hour, MaxFeed: 20 * time.Minute}

// Timer is not safe for concurrent use; the tracker serializes access.
type Timer struct {
	clock     clock.Clock
	state     State
	side      model.Side
	base      int
	startedAt time.Time
	pausedAt  time.Time
}

func New(c clock.Clock) *Timer {
	if c == nil {
		c = clock.System{}
	}
	return &Timer{clock: c}
}

func (t *Timer) State() State {
	return t.state
}

func (t *Timer) Side() model.Side {
	return t.side
}

// Active reports whether the timer is Running or Paused.
func (t *Timer) Active() bool {
	return t.state != Idle
}

// Start moves Idle to Running(side) with a zero base.
func (t *Timer) Start(side model.Side) error {
	if t.state != Idle {
		return ErrNotIdle
	}
	if !side.Valid() {
		return ErrInvalidSide
	}
	t.state = Running
	t.side = side
	t.base = 0
	t.startedAt = t.clock.Now()
	t.pausedAt = time.Time{}
	return nil
}

// Pause folds the running interval into the base.
func (t *Timer) Pause() error {
	if t.state != Running {
		return ErrNotRunning
	}
	now := t.clock.Now()
	t.base += wholeSeconds(now.Sub(t.startedAt))
	t.pausedAt = now
	t.startedAt = time.Time{}
	t.state = Paused
	return nil
}

// Resume starts a new interval, keeping the base.
func (t *Timer) Resume() error {
	if t.state != Paused {
		return ErrNotPaused
	}
	t.startedAt = t.clock.Now()
	t.pausedAt = time.Time{}
	t.state = Running
	return nil
}

func (t *Timer) TogglePause() error {
	switch t.state {
	case Running:
		return t.Pause()
	case Paused:
		return t.Resume()
	default:
		return ErrIdle
	}
}

// Elapsed returns the live duration in whole seconds.
func (t *Timer) Elapsed() int {
	switch t.state {
	case Running:
		return t.base + wholeSeconds(t.clock.Now().Sub(t.startedAt))
	case Paused:
		return t.base
	default:
		return 0
	}
}

// SessionStart is the instant the current session began, excluding pauses.
func (t *Timer) SessionStart() model.Timestamp {
	var anchor time.Time
	switch t.state {
	case Running:
		anchor = t.startedAt
	case Paused:
		anchor = t.pausedAt
	default:
		return 0
	}
	return model.At(anchor.Add(-time.Duration(t.base) * time.Second))
}

// Stop finalizes the session. A paused timer ends at its pause instant.
// The bool is false when the timer was idle.
func (t *Timer) Stop() (model.Session, bool) {
	if t.state == Idle {
		return model.Session{}, false
	}
	end := t.clock.Now()
	if t.state == Paused {
		end = t.pausedAt
	}
	session := model.Session{
		Side:     t.side,
		Duration: t.Elapsed(),
		EndTime:  model.At(end),
	}
	t.Reset()
	return session, true
}

// Reset abandons any session without producing a record.
func (t *Timer) Reset() {
	t.state = Idle
	t.side = model.SideUnknown
	t.base = 0
	t.startedAt = time.Time{}
	t.pausedAt = time.Time{}
}

// Snapshot returns the durable form; false when idle.
func (t *Timer) Snapshot() (model.TimerSnapshot, bool) {
	if t.state == Idle {
		return model.TimerSnapshot{}, false
	}
	snap := model.TimerSnapshot{
		Side:               t.side,
		Paused:             t.state == Paused,
		ElapsedBaseSeconds: t.base,
	}
	if t.state == Running {
		ts := model.At(t.startedAt)
		snap.StartedAt = &ts
	} else {
		ts := model.At(t.pausedAt)
		snap.PausedAt = &ts
	}
	return snap, true
}

// Restore rebuilds an idle timer from snap. When the reconstructed elapsed
// time exceeds policy.StaleAfter the timer comes back Paused with its base
// capped at policy.MaxFeed and stale is true.
func (t *Timer) Restore(snap model.TimerSnapshot, policy Policy) (stale bool, err error) {
	if t.state != Idle {
		return false, ErrNotIdle
	}
	if !snap.Side.Valid() {
		return false, ErrInvalidSnapshot
	}
	now := t.clock.Now()
	base := snap.ElapsedBaseSeconds
	if base < 0 {
		base = 0
	}

	var anchor time.Time
	elapsed := base
	if snap.Paused {
		anchor = now
		if snap.PausedAt != nil {
			anchor = snap.PausedAt.Time()
		}
	} else {
		if snap.StartedAt == nil {
			return false, ErrInvalidSnapshot
		}
		anchor = snap.StartedAt.Time()
		elapsed = base + wholeSeconds(now.Sub(anchor))
	}

	t.side = snap.Side
	if policy.StaleAfter > 0 && time.Duration(elapsed)*time.Second > policy.StaleAfter {
		start := anchor.Add(-time.Duration(base) * time.Second)
		capped := wholeSeconds(policy.MaxFeed)
		if elapsed < capped {
			capped = elapsed
		}
		t.state = Paused
		t.base = capped
		t.pausedAt = start.Add(time.Duration(capped) * time.Second)
		t.startedAt = time.Time{}
		return true, nil
	}

	t.base = base
	if snap.Paused {
		t.state = Paused
		t.pausedAt = anchor
	} else {
		t.state = Running
		t.startedAt = anchor
	}
	return false, nil
}

func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
