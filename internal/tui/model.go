// Package tui provides the Bubble Tea feeding tracker interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/logging"
	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/reminder"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
	"github.com/verte-zerg/tuifeed/internal/timer"
	"github.com/verte-zerg/tuifeed/internal/tracker"
	"github.com/verte-zerg/tuifeed/internal/wakelock"
)

const (
	runningTick = time.Second
	idleTick    = 15 * time.Second
)

type mode int

const (
	modeNormal mode = iota
	modeBottle
	modeEdit
	modeReminder
	modeConfirmDelete
	modeConfirmClear
)

var (
	sideStyle = lipgloss.NewStyle().
			Padding(0, 3).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A")).
			Foreground(lipgloss.Color("#B0B0B0"))
	activeSideStyle = sideStyle.
			BorderForeground(lipgloss.Color("#C89A3A")).
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true)
	suggestedSideStyle = sideStyle.
				BorderForeground(lipgloss.Color("#5A8F5A"))
	timerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	pausedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	activeRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

type tickMsg struct {
	seq int
}

type changedMsg struct{}

type reminderMsg reminder.Event

// Model implements the Bubble Tea tracker UI.
type Model struct {
	tracker  *tracker.Tracker
	reminder *reminder.Service
	wakeLock *wakelock.Manager
	clock    clock.Clock
	log      logging.Logger

	status  tracker.Status
	history []model.UnitView

	reminderEvents chan reminder.Event
	subscription   int

	width    int
	height   int
	selected int
	tickSeq  int
	ticking  time.Duration

	mode    mode
	input   textinput.Model
	target  model.UnitView
	errMsg  string
	notice  string
	focused bool
}

// NewModel constructs the tracker UI. wakeLock and rem may be nil.
func NewModel(tr *tracker.Tracker, rem *reminder.Service, wakeLock *wakelock.Manager, c clock.Clock, log logging.Logger) *Model {
	if c == nil {
		c = clock.System{}
	}
	if log == nil {
		log = logging.Discard()
	}
	input := textinput.New()
	input.CharLimit = 32
	input.Width = 20
	m := &Model{
		tracker:        tr,
		reminder:       rem,
		wakeLock:       wakeLock,
		clock:          c,
		log:            log.With("component", "tui"),
		input:          input,
		focused:        true,
		reminderEvents: make(chan reminder.Event, 1),
	}
	if rem != nil {
		m.subscription = rem.Subscribe(func(ev reminder.Event) {
			select {
			case m.reminderEvents <- ev:
			default:
			}
		})
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if err := m.tracker.Reconcile(context.Background()); err != nil {
		m.setErr(err)
	}
	m.refresh()
	m.syncWakeLock()
	return tea.Batch(m.scheduleTick(), waitForChange(m.tracker.Changes()), waitForReminder(m.reminderEvents))
}

// Close releases the wake lock and the reminder subscription.
func (m *Model) Close() {
	if m.reminder != nil {
		m.reminder.Unsubscribe(m.subscription)
	}
	if m.wakeLock != nil {
		m.wakeLock.Release(context.Background())
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if msg.seq != m.tickSeq {
			return m, nil
		}
		m.ticking = 0
		if _, err := m.tracker.Tick(context.Background()); err != nil {
			m.setErr(err)
		}
		m.refresh()
		// Ticks only release; acquiring waits for the next interaction.
		if m.status.State != timer.Running && m.wakeLock != nil {
			m.wakeLock.Release(context.Background())
		}
		return m, m.scheduleTick()
	case changedMsg:
		m.refresh()
		m.syncWakeLock()
		return m, tea.Batch(m.scheduleTick(), waitForChange(m.tracker.Changes()))
	case reminderMsg:
		if msg.Kind == reminder.EventFired && msg.Reminder != nil {
			m.notice = msg.Reminder.Title
		}
		return m, waitForReminder(m.reminderEvents)
	case tea.BlurMsg:
		m.focused = false
		if err := m.tracker.Persist(context.Background()); err != nil {
			m.setErr(err)
		}
		if m.wakeLock != nil {
			m.wakeLock.Release(context.Background())
		}
		return m, nil
	case tea.FocusMsg:
		m.focused = true
		m.refresh()
		m.syncWakeLock()
		return m, m.scheduleTick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, m.quit()
		}
		switch m.mode {
		case modeBottle, modeEdit, modeReminder:
			return m.updateInput(msg)
		case modeConfirmDelete, modeConfirmClear:
			return m.updateConfirm(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	m.errMsg = ""
	m.notice = ""
	switch msg.String() {
	case "q":
		return m, m.quit()
	case "l", "left":
		m.press(ctx, model.SideLeft)
	case "r", "right":
		m.press(ctx, model.SideRight)
	case " ", "p":
		if _, err := m.tracker.TogglePause(ctx); err != nil && !errors.Is(err, timer.ErrIdle) {
			m.setErr(err)
		}
	case "s":
		if err := m.tracker.Stop(ctx); err != nil && !errors.Is(err, timer.ErrIdle) {
			m.setErr(err)
		}
	case "d":
		if err := m.tracker.Discard(ctx); err != nil && !errors.Is(err, timer.ErrIdle) {
			m.setErr(err)
		}
	case "t":
		next := model.FeedTypeBottle
		if m.status.FeedType == model.FeedTypeBottle {
			next = model.FeedTypeBreast
		}
		if err := m.tracker.SetFeedType(ctx, next); err != nil {
			m.setErr(err)
		}
	case "b":
		return m, m.startInput(modeBottle, "Ounces: ", "")
	case "e":
		if unit, ok := m.selectedUnit(); ok {
			m.target = unit
			return m, m.startInput(modeEdit, editPrompt(unit), editValue(unit))
		}
	case "m":
		if m.reminder != nil {
			return m, m.startInput(modeReminder, "Remind in: ", formatDelay(m.tracker.Config().DefaultReminder))
		}
	case "M":
		if m.reminder != nil {
			if err := m.reminder.Clear(ctx); err != nil {
				m.setErr(err)
			}
		}
	case "x", "delete":
		if unit, ok := m.selectedUnit(); ok {
			m.target = unit
			m.mode = modeConfirmDelete
		}
	case "X":
		m.mode = modeConfirmClear
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	}
	m.refresh()
	m.syncWakeLock()
	return m, m.scheduleTick()
}

func (m *Model) press(ctx context.Context, side model.Side) {
	if m.status.FeedType == model.FeedTypeBottle && m.status.State == timer.Idle {
		m.setErr(errors.New("switch to breast mode with t to time a feed"))
		return
	}
	if _, err := m.tracker.Press(ctx, side); err != nil {
		m.setErr(err)
	}
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		if err := m.applyInput(context.Background(), strings.TrimSpace(m.input.Value())); err != nil {
			m.setErr(err)
			return m, nil
		}
		m.errMsg = ""
		m.mode = modeNormal
		m.input.Blur()
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyInput(ctx context.Context, value string) error {
	switch m.mode {
	case modeBottle:
		oz, err := parseOunces(value)
		if err != nil {
			return err
		}
		unit, err := m.tracker.AddBottle(ctx, oz, time.Time{})
		if err != nil {
			return err
		}
		m.notice = fmt.Sprintf("Logged %.1f oz", unit.VolumeOz)
	case modeEdit:
		if m.target.IsBottle() {
			oz, err := parseOunces(value)
			if err != nil {
				return err
			}
			return m.tracker.EditBottle(ctx, m.target.ID, oz)
		}
		durations, err := parseDurations(value, len(m.target.Sessions))
		if err != nil {
			return err
		}
		for i, secs := range durations {
			if err := m.tracker.EditSession(ctx, m.target.ID, i, secs); err != nil {
				return err
			}
		}
	case modeReminder:
		delay, err := time.ParseDuration(value)
		if err != nil || delay <= 0 {
			return fmt.Errorf("enter a delay such as 3h or 2h30m")
		}
		base := time.Time{}
		if m.status.HasLastFeed {
			base = m.status.LastFeed.Time()
		}
		hours := int(delay / time.Hour)
		minutes := int((delay % time.Hour) / time.Minute)
		r, err := m.reminder.SetForDelay(ctx, hours, minutes, base, m.tracker.Config().ReminderTitle)
		if err != nil {
			return err
		}
		m.notice = "Reminder set for " + timefmt.ClockTime(r.FireAt.Time())
	}
	return nil
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg.String() {
	case "y", "Y":
		var err error
		if m.mode == modeConfirmClear {
			err = m.tracker.Clear(ctx, true)
		} else {
			err = m.tracker.Delete(ctx, m.target.ID)
		}
		if err != nil {
			m.setErr(err)
		}
		m.mode = modeNormal
		m.refresh()
	case "n", "N", "esc", "q":
		m.mode = modeNormal
	}
	return m, nil
}

func (m *Model) startInput(next mode, prompt, value string) tea.Cmd {
	m.mode = next
	m.errMsg = ""
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) quit() tea.Cmd {
	if err := m.tracker.Persist(context.Background()); err != nil {
		m.log.Error(context.Background(), "failed to persist on quit", "err", err)
	}
	m.Close()
	return tea.Quit
}

func (m *Model) refresh() {
	m.status = m.tracker.Status()
	m.history = m.tracker.DisplayHistory()
	if m.selected >= len(m.history) {
		m.selected = len(m.history) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *Model) syncWakeLock() {
	if m.wakeLock == nil || !m.tracker.Config().WakeLock {
		return
	}
	m.wakeLock.Sync(context.Background(), m.focused && m.status.State == timer.Running)
}

// scheduleTick starts a tick loop at the cadence the current state needs.
// A loop already running at that cadence is left alone.
func (m *Model) scheduleTick() tea.Cmd {
	interval := idleTick
	if m.status.State == timer.Running {
		interval = runningTick
	}
	if m.ticking == interval {
		return nil
	}
	m.tickSeq++
	m.ticking = interval
	seq := m.tickSeq
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}

func (m *Model) moveSelection(delta int) {
	next := m.selected + delta
	if next < 0 || next >= len(m.history) {
		return
	}
	m.selected = next
}

func (m *Model) selectedUnit() (model.UnitView, bool) {
	if m.selected < 0 || m.selected >= len(m.history) {
		return model.UnitView{}, false
	}
	unit := m.history[m.selected]
	if unit.IsPending() || unit.Active {
		m.setErr(tracker.ErrActiveUnit)
		return model.UnitView{}, false
	}
	return unit, true
}

func (m *Model) setErr(err error) {
	m.errMsg = err.Error()
	m.log.Warn(context.Background(), "action failed", "err", err)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	switch m.mode {
	case modeConfirmDelete:
		return m.renderModal(fmt.Sprintf("Delete the %s feed?", timefmt.ClockTime(m.target.EndTime.Time())), "y: delete  n: cancel")
	case modeConfirmClear:
		return m.renderModal("Clear all feeding history?", "y: clear  n: cancel")
	case modeBottle, modeEdit, modeReminder:
		body := m.input.View()
		if m.errMsg != "" {
			body += "\n" + errorStyle.Render(m.errMsg)
		}
		return m.renderModal(body, "enter: save  esc: cancel")
	}

	header := lipgloss.JoinVertical(lipgloss.Center,
		m.renderFeedType(),
		"",
		m.renderSides(),
		m.renderTimer(),
		m.renderSummary(),
	)
	footer := m.renderFooter()
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	listHeight := m.height - headerHeight - footerHeight - 2
	list := strings.Join(renderHistory(m.history, m.selected, m.width, listHeight), "\n")
	body := lipgloss.JoinVertical(lipgloss.Center, header, "", list)
	main := lipgloss.Place(m.width, m.height-footerHeight, lipgloss.Center, lipgloss.Top, body)
	return main + "\n" + footer
}

func (m *Model) renderFeedType() string {
	breast, bottle := mutedStyle.Render("Breast"), mutedStyle.Render("Bottle")
	if m.status.FeedType == model.FeedTypeBottle {
		bottle = selectedStyle.Render("[Bottle]")
	} else {
		breast = selectedStyle.Render("[Breast]")
	}
	return breast + "  " + bottle
}

func (m *Model) renderSides() string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.sideButton(model.SideLeft),
		"  ",
		m.sideButton(model.SideRight),
	)
}

func (m *Model) sideButton(side model.Side) string {
	label := strings.ToUpper(string(side))
	st := m.status
	switch {
	case st.State != timer.Idle && st.Side == side:
		return activeSideStyle.Render(label)
	case st.State == timer.Idle && st.Completed != nil && st.Completed.Side == side:
		return activeSideStyle.Render("END")
	case st.State == timer.Idle && st.Suggested == side:
		return suggestedSideStyle.Render(label)
	}
	return sideStyle.Render(label)
}

func (m *Model) renderTimer() string {
	st := m.status
	switch st.State {
	case timer.Running:
		return timerStyle.Render(timefmt.Clock(st.Elapsed))
	case timer.Paused:
		return pausedStyle.Render(timefmt.Clock(st.Elapsed) + " paused")
	}
	if st.Completed != nil {
		return mutedStyle.Render(fmt.Sprintf("%s done, start %s or press %s to end",
			st.Completed.Side, st.Completed.Side.Opposite(), strings.ToLower(st.Completed.Side.Short())))
	}
	if st.Suggested.Valid() {
		return mutedStyle.Render("Next: " + string(st.Suggested))
	}
	return mutedStyle.Render(timefmt.Clock(0))
}

func (m *Model) renderSummary() string {
	parts := make([]string, 0, 2)
	if m.status.HasLastFeed {
		since := m.clock.Now().Sub(m.status.LastFeed.Time())
		parts = append(parts, timefmt.Since(since)+" since last feed")
	}
	if m.reminder != nil {
		if r := m.reminder.Current(); r != nil {
			parts = append(parts, fmt.Sprintf("reminder %s (in %s)", timefmt.ClockTime(r.FireAt.Time()), timefmt.Since(m.reminder.Remaining())))
		}
	}
	return mutedStyle.Render(strings.Join(parts, "  ·  "))
}

func (m *Model) renderFooter() string {
	help := "l/r: side  space: pause  s: stop  d: discard  t: type  b: bottle  e: edit  x: delete  m: remind  q: quit"
	if m.width > 0 {
		help = truncate(help, m.width)
	}
	lines := []string{footerStyle.Render(help)}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	} else if m.notice != "" {
		lines = append(lines, noticeStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderModal(body, help string) string {
	box := modalStyle.Render(body + "\n\n" + footerStyle.Render(help))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func waitForReminder(ch <-chan reminder.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return reminderMsg(ev)
	}
}
