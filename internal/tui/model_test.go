package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/notify"
	"github.com/verte-zerg/tuifeed/internal/reminder"
	"github.com/verte-zerg/tuifeed/internal/store"
	"github.com/verte-zerg/tuifeed/internal/timer"
	"github.com/verte-zerg/tuifeed/internal/tracker"
	"github.com/verte-zerg/tuifeed/internal/wakelock"
)

var epoch = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type fakeLock struct{ inh *fakeInhibitor }

func (l fakeLock) Release() error {
	l.inh.held--
	return nil
}

type fakeInhibitor struct {
	acquired int
	held     int
}

func (f *fakeInhibitor) Acquire(context.Context) (wakelock.Lock, error) {
	f.acquired++
	f.held++
	return fakeLock{inh: f}, nil
}

type fixture struct {
	model *Model
	clock *clock.Fake
	tr    *tracker.Tracker
	inh   *fakeInhibitor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "feed.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	c := clock.NewFake(epoch)
	tr, err := tracker.New(ctx, st, tracker.Options{Clock: c, Config: tracker.DefaultConfig()})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(tr.Close)
	rem := reminder.New(st, c, notify.Nop{}, nil)
	t.Cleanup(rem.Close)
	inh := &fakeInhibitor{}

	m := NewModel(tr, rem, wakelock.NewManager(inh, nil), c, nil)
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return fixture{model: m, clock: c, tr: tr, inh: inh}
}

func key(m *Model, s string) {
	switch s {
	case "enter":
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	case " ":
		m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	default:
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestPressStartsAndStopsWithWakeLock(t *testing.T) {
	f := newFixture(t)

	key(f.model, "l")
	if f.model.status.State != timer.Running || f.model.status.Side != model.SideLeft {
		t.Fatalf("expected left running, got %+v", f.model.status)
	}
	if f.inh.held != 1 {
		t.Fatalf("expected wake lock held, got %d", f.inh.held)
	}
	if len(f.model.history) != 1 || !f.model.history[0].Active {
		t.Fatalf("expected live unit at the top, got %+v", f.model.history)
	}

	f.clock.Advance(90 * time.Second)
	key(f.model, " ")
	if f.model.status.State != timer.Paused {
		t.Fatalf("expected paused, got %v", f.model.status.State)
	}
	if f.inh.held != 0 {
		t.Fatalf("wake lock must be released while paused")
	}

	key(f.model, "l")
	if f.model.status.State != timer.Idle {
		t.Fatalf("expected idle, got %v", f.model.status.State)
	}
	if f.model.status.Completed == nil || f.model.status.Completed.Duration != 90 {
		t.Fatalf("expected completed left session, got %+v", f.model.status.Completed)
	}
}

func TestBlurReleasesWakeLock(t *testing.T) {
	f := newFixture(t)
	key(f.model, "r")
	if f.inh.held != 1 {
		t.Fatalf("expected wake lock held")
	}
	f.model.Update(tea.BlurMsg{})
	if f.inh.held != 0 {
		t.Fatalf("blur must release the wake lock")
	}
	f.model.Update(tea.FocusMsg{})
	if f.inh.held != 1 || f.inh.acquired != 2 {
		t.Fatalf("focus must reacquire, held=%d acquired=%d", f.inh.held, f.inh.acquired)
	}
}

func TestBottleInput(t *testing.T) {
	f := newFixture(t)
	key(f.model, "b")
	if f.model.mode != modeBottle {
		t.Fatalf("expected bottle input mode")
	}
	typeText(f.model, "4.5")
	key(f.model, "enter")
	if f.model.mode != modeNormal {
		t.Fatalf("expected input to close, err=%q", f.model.errMsg)
	}
	history := f.tr.History()
	if len(history) != 1 || !history[0].IsBottle() || history[0].VolumeOz != 4.5 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestBottleInputRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	key(f.model, "b")
	typeText(f.model, "lots")
	key(f.model, "enter")
	if f.model.mode != modeBottle || f.model.errMsg == "" {
		t.Fatalf("expected error to keep the input open")
	}
	key(f.model, "esc")
	if f.model.mode != modeNormal || len(f.tr.History()) != 0 {
		t.Fatalf("esc must cancel without changes")
	}
}

func TestClearNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tr.AddBottle(context.Background(), 3, time.Time{}); err != nil {
		t.Fatalf("add bottle: %v", err)
	}
	f.model.refresh()

	key(f.model, "X")
	key(f.model, "n")
	if len(f.tr.History()) != 1 {
		t.Fatalf("declining must keep history")
	}
	key(f.model, "X")
	key(f.model, "y")
	if len(f.tr.History()) != 0 {
		t.Fatalf("expected history cleared")
	}
}

func TestDeleteRefusesActiveUnit(t *testing.T) {
	f := newFixture(t)
	key(f.model, "l")
	key(f.model, "x")
	if f.model.mode != modeNormal || f.model.errMsg == "" {
		t.Fatalf("expected refusal, mode=%v err=%q", f.model.mode, f.model.errMsg)
	}
}

func TestEditSessions(t *testing.T) {
	f := newFixture(t)
	key(f.model, "l")
	f.clock.Advance(2 * time.Minute)
	key(f.model, "l")
	key(f.model, "r")
	f.clock.Advance(3 * time.Minute)
	key(f.model, "r")

	key(f.model, "e")
	if f.model.mode != modeEdit {
		t.Fatalf("expected edit mode, err=%q", f.model.errMsg)
	}
	if got := f.model.input.Value(); got != "2:00 3:00" {
		t.Fatalf("unexpected prefill %q", got)
	}
	f.model.input.SetValue("5:30 4")
	key(f.model, "enter")
	u := f.tr.History()[0]
	if u.Sessions[0].Duration != 330 || u.Sessions[1].Duration != 240 {
		t.Fatalf("unexpected sessions %+v", u.Sessions)
	}
}

func TestReminderInput(t *testing.T) {
	f := newFixture(t)
	key(f.model, "m")
	if got := f.model.input.Value(); got != "3h" {
		t.Fatalf("expected default delay prefill, got %q", got)
	}
	f.model.input.SetValue("1h30m")
	key(f.model, "enter")
	r := f.model.reminder.Current()
	if r == nil || !r.FireAt.Time().Equal(epoch.Add(90*time.Minute)) {
		t.Fatalf("unexpected reminder %+v", r)
	}
	key(f.model, "M")
	if f.model.reminder.Current() != nil {
		t.Fatalf("expected reminder cleared")
	}
}

func TestFeedTypeToggleBlocksTiming(t *testing.T) {
	f := newFixture(t)
	key(f.model, "t")
	if f.model.status.FeedType != model.FeedTypeBottle {
		t.Fatalf("expected bottle mode")
	}
	key(f.model, "l")
	if f.model.status.State != timer.Idle || f.model.errMsg == "" {
		t.Fatalf("bottle mode must not start a timer")
	}
}

func TestStaleTickIgnored(t *testing.T) {
	f := newFixture(t)
	key(f.model, "l")
	seq := f.model.tickSeq
	f.model.Update(tickMsg{seq: seq - 1})
	if f.model.ticking != runningTick {
		t.Fatalf("stale tick must not reset the loop")
	}
	f.clock.Advance(20 * time.Minute)
	_, cmd := f.model.Update(tickMsg{seq: seq})
	if f.model.status.State != timer.Idle {
		t.Fatalf("tick should auto-stop at the max feed length")
	}
	if f.inh.held != 0 {
		t.Fatalf("auto-stop must release the wake lock, held=%d", f.inh.held)
	}
	if cmd == nil {
		t.Fatalf("expected the tick loop to continue")
	}
}

func TestViewShowsSidesAndSummary(t *testing.T) {
	f := newFixture(t)
	key(f.model, "l")
	f.clock.Advance(65 * time.Second)
	f.model.refresh()
	out := f.model.View()
	for _, want := range []string{"LEFT", "RIGHT", "01:05", "(feeding)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	key(f.model, "l")
	f.clock.Advance(10 * time.Minute)
	f.model.refresh()
	if out := f.model.View(); !strings.Contains(out, "since last feed") {
		t.Fatalf("view missing last feed summary:\n%s", out)
	}
}
