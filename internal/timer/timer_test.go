package timer

import (
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/model"
)

var epoch = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func TestStopReturnsWallClockDuration(t *testing.T) {
	c := clock.NewFake(epoch)
	tm := New(c)
	if err := tm.Start(model.SideLeft); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Advance(65*time.Second + 400*time.Millisecond)

	session, ok := tm.Stop()
	if !ok {
		t.Fatalf("expected session")
	}
	if session.Duration < 65 || session.Duration >= 66 {
		t.Fatalf("expected duration in [65,66), got %d", session.Duration)
	}
	if session.Side != model.SideLeft {
		t.Fatalf("expected Left, got %s", session.Side)
	}
	if tm.State() != Idle {
		t.Fatalf("expected idle after stop, got %s", tm.State())
	}
}

func TestPauseExcludesPausedInterval(t *testing.T) {
	c := clock.NewFake(epoch)
	tm := New(c)
	_ = tm.Start(model.SideRight)
	c.Advance(30 * time.Second)
	if err := tm.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	c.Advance(10 * time.Minute)
	if got := tm.Elapsed(); got != 30 {
		t.Fatalf("paused elapsed should stay 30, got %d", got)
	}
	if err := tm.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	c.Advance(35 * time.Second)

	session, _ := tm.Stop()
	if session.Duration != 65 {
		t.Fatalf("expected 65s, got %d", session.Duration)
	}
}

func TestStopWhilePausedUsesPauseInstant(t *testing.T) {
	c := clock.NewFake(epoch)
	tm := New(c)
	_ = tm.Start(model.SideLeft)
	c.Advance(10 * time.Second)
	_ = tm.Pause()
	pausedAt := model.At(c.Now())
	c.Advance(5 * time.Minute)

	session, ok := tm.Stop()
	if !ok {
		t.Fatalf("expected session")
	}
	if session.EndTime != pausedAt {
		t.Fatalf("expected endTime %d, got %d", pausedAt, session.EndTime)
	}
	if session.Duration != 10 {
		t.Fatalf("expected 10s, got %d", session.Duration)
	}
}

func TestTransitionsRejectWrongState(t *testing.T) {
	tm := New(clock.NewFake(epoch))
	if err := tm.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if err := tm.TogglePause(); !errors.Is(err, ErrIdle) {
		t.Fatalf("expected ErrIdle, got %v", err)
	}
	if _, ok := tm.Stop(); ok {
		t.Fatalf("stop on idle should not produce a session")
	}
	if err := tm.Start(model.SideUnknown); !errors.Is(err, ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}
	_ = tm.Start(model.SideLeft)
	if err := tm.Start(model.SideRight); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
	if err := tm.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c := clock.NewFake(epoch)
	tm := New(c)
	_ = tm.Start(model.SideLeft)
	c.Advance(40 * time.Second)
	_ = tm.Pause()
	c.Advance(20 * time.Second)
	_ = tm.Resume()
	c.Advance(5 * time.Second)

	snap, ok := tm.Snapshot()
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if snap.Paused || snap.StartedAt == nil || snap.ElapsedBaseSeconds != 40 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	c.Advance(15 * time.Second)
	restored := New(c)
	stale, err := restored.Restore(snap, DefaultPolicy)
	if err != nil || stale {
		t.Fatalf("restore: stale=%v err=%v", stale, err)
	}
	if restored.State() != Running || restored.Elapsed() != 60 {
		t.Fatalf("expected running at 60s, got %s %d", restored.State(), restored.Elapsed())
	}
	if restored.SessionStart() != model.At(epoch.Add(20*time.Second)) {
		t.Fatalf("unexpected session start %d", restored.SessionStart())
	}
}

func TestRestorePausedKeepsPauseInstant(t *testing.T) {
	c := clock.NewFake(epoch)
	tm := New(c)
	_ = tm.Start(model.SideRight)
	c.Advance(90 * time.Second)
	_ = tm.Pause()
	snap, _ := tm.Snapshot()

	c.Advance(time.Hour)
	restored := New(c)
	if _, err := restored.Restore(snap, DefaultPolicy); err != nil {
		t.Fatalf("restore: %v", err)
	}
	session, _ := restored.Stop()
	if session.EndTime != model.At(epoch.Add(90*time.Second)) || session.Duration != 90 {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestRestoreStaleIsCappedAndPaused(t *testing.T) {
	c := clock.NewFake(epoch)
	started := model.At(epoch)
	snap := model.TimerSnapshot{Side: model.SideLeft, StartedAt: &started}

	c.Advance(26 * time.Hour)
	tm := New(c)
	stale, err := tm.Restore(snap, DefaultPolicy)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !stale {
		t.Fatalf("expected stale restore")
	}
	if tm.State() != Paused || tm.Elapsed() != 20*60 {
		t.Fatalf("expected paused at 1200s, got %s %d", tm.State(), tm.Elapsed())
	}
	session, _ := tm.Stop()
	if session.EndTime != model.At(epoch.Add(20*time.Minute)) {
		t.Fatalf("expected capped end time, got %d", session.EndTime)
	}
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	tm := New(clock.NewFake(epoch))
	if _, err := tm.Restore(model.TimerSnapshot{Side: "Middle"}, DefaultPolicy); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	if _, err := tm.Restore(model.TimerSnapshot{Side: model.SideLeft}, DefaultPolicy); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("running snapshot without start should be rejected, got %v", err)
	}
}
