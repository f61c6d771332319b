// Package tracker owns the feeding timer and history and is the only place
// that mutates them. Every change is written back to the store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/feed"
	"github.com/verte-zerg/tuifeed/internal/logging"
	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/store"
	"github.com/verte-zerg/tuifeed/internal/timer"
)

var (
	ErrNotConfirmed = errors.New("operation not confirmed")
	ErrTimerActive  = errors.New("a feed is in progress")
	ErrActiveUnit   = errors.New("cannot change the feed in progress")
)

// finishGuard swallows repeated presses right after a feed was finished.
const finishGuard = time.Second

// Store is the persistence the tracker needs.
type Store interface {
	TrackerState(ctx context.Context) (store.TrackerState, error)
	SaveTrackerState(ctx context.Context, state store.TrackerState) error
	FeedType(ctx context.Context) (model.FeedType, error)
	SaveFeedType(ctx context.Context, ft model.FeedType) error
}

// Action reports what a button press did.
type Action int

const (
	ActionNone Action = iota
	ActionStarted
	ActionStopped
	ActionPaused
	ActionResumed
	ActionFinished
)

func (a Action) String() string {
	switch a {
	case ActionStarted:
		return "started"
	case ActionStopped:
		return "stopped"
	case ActionPaused:
		return "paused"
	case ActionResumed:
		return "resumed"
	case ActionFinished:
		return "finished"
	default:
		return "none"
	}
}

// Status is a point-in-time view of the tracker for display.
type Status struct {
	State       timer.State
	Side        model.Side
	Elapsed     int
	Completed   *model.Session
	Suggested   model.Side
	LastFeed    model.Timestamp
	HasLastFeed bool
	FeedType    model.FeedType
}

// Options configures a Tracker. Zero values fall back to defaults.
type Options struct {
	Clock  clock.Clock
	IDs    feed.IDSource
	Log    logging.Logger
	Config model.TrackerConfig
}

type Tracker struct {
	mu    sync.Mutex
	store Store
	clock clock.Clock
	ids   feed.IDSource
	log   logging.Logger
	cfg   model.TrackerConfig

	timer     *timer.Timer
	history   []model.Unit
	completed *model.Session
	feedType  model.FeedType

	finalize   clock.Timer
	guardSide  model.Side
	guardUntil time.Time

	reconcile sync.Once
	changes   chan struct{}
}

// DefaultConfig returns the stock tracker settings.
func DefaultConfig() model.TrackerConfig {
	return model.TrackerConfig{
		MaxFeed:         20 * time.Minute,
		AutoFinalize:    30 * time.Minute,
		StaleAfter:      3 * time.Hour,
		WatchInterval:   time.Second,
		ReminderTitle:   "Time for the next feed!",
		DefaultReminder: 3 * time.Hour,
		WakeLock:        true,
		Notifications:   true,
	}
}

// New loads persisted state and restores any active timer.
func New(ctx context.Context, st Store, opts Options) (*Tracker, error) {
	t := &Tracker{
		store:   st,
		clock:   opts.Clock,
		ids:     opts.IDs,
		log:     opts.Log,
		cfg:     withDefaults(opts.Config),
		changes: make(chan struct{}, 1),
	}
	if t.clock == nil {
		t.clock = clock.System{}
	}
	if t.ids == nil {
		t.ids = feed.UUIDSource{Clock: t.clock}
	}
	if t.log == nil {
		t.log = logging.Discard()
	}
	t.log = t.log.With("component", "tracker")
	t.timer = timer.New(t.clock)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadLocked(ctx); err != nil {
		return nil, err
	}
	if history, changed := feed.EnsureIDs(t.history, t.ids); changed {
		t.history = history
		if err := t.persistLocked(ctx); err != nil {
			return nil, err
		}
	}
	t.scheduleFinalizeLocked(ctx)
	return t, nil
}

func withDefaults(cfg model.TrackerConfig) model.TrackerConfig {
	def := DefaultConfig()
	if cfg.MaxFeed <= 0 {
		cfg.MaxFeed = def.MaxFeed
	}
	if cfg.AutoFinalize <= 0 {
		cfg.AutoFinalize = def.AutoFinalize
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = def.WatchInterval
	}
	if cfg.ReminderTitle == "" {
		cfg.ReminderTitle = def.ReminderTitle
	}
	if cfg.DefaultReminder <= 0 {
		cfg.DefaultReminder = def.DefaultReminder
	}
	return cfg
}

// Config returns the effective settings.
func (t *Tracker) Config() model.TrackerConfig {
	return t.cfg
}

// Changes delivers a signal whenever state changed outside a direct call,
// such as an auto-finalize or an external store write.
func (t *Tracker) Changes() <-chan struct{} {
	return t.changes
}

// Close cancels scheduled work.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelFinalizeLocked()
}

// Reconcile aligns the pending placeholder with the timer. It only does
// work the first time it is called.
func (t *Tracker) Reconcile(ctx context.Context) error {
	var err error
	t.reconcile.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		history := t.history
		changed := false
		if !t.timer.Active() {
			history, changed = feed.RemovePendingTop(history)
		} else {
			if len(history) > 0 && history[0].IsPending() && history[0].Sessions[0].Side != t.timer.Side() {
				history, _ = feed.RemovePendingTop(history)
				changed = true
			}
			var added bool
			history, added = feed.AddPendingFeed(history, t.timer.Side(), t.timer.SessionStart())
			changed = changed || added
		}
		if !changed {
			return
		}
		t.log.Info(ctx, "reconciled pending feed", "timer", t.timer.State().String())
		t.history = history
		t.syncCompletedLocked()
		err = t.persistLocked(ctx)
	})
	return err
}

// Press handles a Left or Right button press.
//
// Pressing the running side stops it. Pressing the other side while a timer
// is active toggles pause. With a first side already recorded, pressing that
// side again finishes the feed and pressing the other side starts it.
// Otherwise a new timer starts.
func (t *Tracker) Press(ctx context.Context, side model.Side) (Action, error) {
	if !side.Valid() {
		return ActionNone, timer.ErrInvalidSide
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.timer.Active() && t.timer.Side() == side:
		return ActionStopped, t.stopLocked(ctx)
	case t.timer.Active():
		action := ActionPaused
		if t.timer.State() == timer.Paused {
			action = ActionResumed
		}
		if err := t.timer.TogglePause(); err != nil {
			return ActionNone, err
		}
		return action, t.persistLocked(ctx)
	}

	if side == t.guardSide && t.clock.Now().Before(t.guardUntil) {
		return ActionNone, nil
	}
	if t.completed != nil && t.completed.Side == side {
		t.finishLocked(*t.completed)
		t.guardSide = side
		t.guardUntil = t.clock.Now().Add(finishGuard)
		return ActionFinished, t.persistLocked(ctx)
	}
	if err := t.startLocked(side); err != nil {
		return ActionNone, err
	}
	return ActionStarted, t.persistLocked(ctx)
}

// TogglePause pauses or resumes the active timer.
func (t *Tracker) TogglePause(ctx context.Context) (Action, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.timer.Active() {
		return ActionNone, timer.ErrIdle
	}
	action := ActionPaused
	if t.timer.State() == timer.Paused {
		action = ActionResumed
	}
	if err := t.timer.TogglePause(); err != nil {
		return ActionNone, err
	}
	return action, t.persistLocked(ctx)
}

// Stop ends the active timer and records its session.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.timer.Active() {
		return timer.ErrIdle
	}
	return t.stopLocked(ctx)
}

// Discard abandons the active timer without recording anything.
func (t *Tracker) Discard(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.timer.Active() {
		return timer.ErrIdle
	}
	t.timer.Reset()
	t.history, _ = feed.RemovePendingTop(t.history)
	t.scheduleFinalizeLocked(ctx)
	return t.persistLocked(ctx)
}

// Tick runs periodic checks: a running feed that reaches MaxFeed is stopped,
// and an idle lone session older than AutoFinalize is finished. It reports
// whether anything changed.
func (t *Tracker) Tick(ctx context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer.State() == timer.Running && time.Duration(t.timer.Elapsed())*time.Second >= t.cfg.MaxFeed {
		t.log.Info(ctx, "auto-stopping feed", "side", string(t.timer.Side()), "elapsed", t.timer.Elapsed())
		return true, t.stopLocked(ctx)
	}
	if !t.timer.Active() && feed.NeedsFinalize(t.history, model.At(t.clock.Now()), t.cfg.AutoFinalize) {
		t.finishLocked(t.history[0].Sessions[0])
		t.scheduleFinalizeLocked(ctx)
		return true, t.persistLocked(ctx)
	}
	return false, nil
}

// Persist writes the current state, including the live timer snapshot.
func (t *Tracker) Persist(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persistLocked(ctx)
}

// Refresh replaces in-memory state with what is stored, after another
// process wrote to the store.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.loadLocked(ctx); err != nil {
		return err
	}
	t.scheduleFinalizeLocked(ctx)
	t.notify()
	return nil
}

// Status returns the current timer and summary state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := Status{
		State:    t.timer.State(),
		Side:     t.timer.Side(),
		Elapsed:  t.timer.Elapsed(),
		FeedType: t.feedType,
	}
	if t.completed != nil {
		c := *t.completed
		st.Completed = &c
	}
	if !t.timer.Active() && t.completed == nil {
		st.Suggested = feed.SuggestedSide(t.history)
	}
	st.LastFeed, st.HasLastFeed = feed.LastFeedTime(t.history)
	return st
}

// History returns a copy of the stored history, newest first.
func (t *Tracker) History() []model.Unit {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Unit, len(t.history))
	for i, u := range t.history {
		out[i] = u.Clone()
	}
	return out
}

// DisplayHistory returns history with the live session folded in.
func (t *Tracker) DisplayHistory() []model.UnitView {
	t.mu.Lock()
	defer t.mu.Unlock()

	views := make([]model.UnitView, len(t.history))
	for i, u := range t.history {
		views[i] = model.UnitView{Unit: u.Clone()}
	}
	if !t.timer.Active() {
		return views
	}

	now := model.At(t.clock.Now())
	live := model.Session{Side: t.timer.Side(), Duration: t.timer.Elapsed(), EndTime: now}
	paused := t.timer.State() == timer.Paused
	switch {
	case len(views) > 0 && views[0].IsPending():
		views[0].Sessions = []model.Session{live}
		views[0].EndTime = now
	case len(views) > 0 && feed.CanPair(views[0].Unit, live.Side):
		views[0].Sessions = append(views[0].Sessions, live)
		views[0].EndTime = now
	default:
		active := model.UnitView{Unit: model.Unit{
			ID:       "active",
			State:    model.StatePending,
			Sessions: []model.Session{live},
			EndTime:  now,
		}}
		views = append([]model.UnitView{active}, views...)
	}
	views[0].Active = true
	views[0].Paused = paused
	return views
}

// SetFeedType changes the input mode. It is refused while a feed runs.
func (t *Tracker) SetFeedType(ctx context.Context, ft model.FeedType) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer.Active() {
		return ErrTimerActive
	}
	ft = model.ParseFeedType(string(ft))
	if err := t.store.SaveFeedType(ctx, ft); err != nil {
		return fmt.Errorf("failed to save feed type: %w", err)
	}
	t.feedType = ft
	return nil
}

func (t *Tracker) startLocked(side model.Side) error {
	if err := t.timer.Start(side); err != nil {
		return err
	}
	t.cancelFinalizeLocked()
	t.history, _ = feed.AddPendingFeed(t.history, side, t.timer.SessionStart())
	return nil
}

func (t *Tracker) stopLocked(ctx context.Context) error {
	session, ok := t.timer.Stop()
	if !ok {
		return timer.ErrIdle
	}
	t.history = feed.AddFeed(t.history, session, t.ids)
	if t.completed != nil {
		t.completed = nil
	} else {
		t.completed = &session
	}
	t.syncCompletedLocked()
	t.scheduleFinalizeLocked(ctx)
	return t.persistLocked(ctx)
}

// finishLocked closes the unit holding first with a zero-length session on
// the other side.
func (t *Tracker) finishLocked(first model.Session) {
	closing := model.Session{Side: first.Side.Opposite(), Duration: 0, EndTime: first.EndTime}
	t.history = feed.AddFeed(t.history, closing, t.ids)
	t.completed = nil
	t.cancelFinalizeLocked()
}

// syncCompletedLocked drops the remembered first side when the top unit no
// longer waits for its pair.
func (t *Tracker) syncCompletedLocked() {
	if t.completed == nil {
		return
	}
	if len(t.history) == 0 {
		t.completed = nil
		return
	}
	top := t.history[0]
	if !feed.CanPair(top, t.completed.Side.Opposite()) || top.Sessions[0].EndTime != t.completed.EndTime {
		t.completed = nil
		return
	}
	first := top.Sessions[0]
	t.completed = &first
}

func (t *Tracker) scheduleFinalizeLocked(ctx context.Context) {
	t.cancelFinalizeLocked()
	if t.timer.Active() || t.completed == nil {
		return
	}
	first := *t.completed
	delay := first.EndTime.Time().Add(t.cfg.AutoFinalize).Sub(t.clock.Now())
	if delay <= 0 {
		t.finishLocked(first)
		if err := t.persistLocked(ctx); err != nil {
			t.log.Error(ctx, "auto-finalize failed", "err", err)
		}
		return
	}
	t.finalize = t.clock.AfterFunc(delay, func() {
		t.autoFinalize(first)
	})
}

func (t *Tracker) autoFinalize(first model.Session) {
	ctx := context.Background()
	t.mu.Lock()
	if t.timer.Active() || t.completed == nil || t.completed.EndTime != first.EndTime {
		t.mu.Unlock()
		return
	}
	t.log.Info(ctx, "auto-finalizing feed", "side", string(first.Side))
	t.finishLocked(*t.completed)
	if err := t.persistLocked(ctx); err != nil {
		t.log.Error(ctx, "auto-finalize failed", "err", err)
	}
	t.mu.Unlock()
	t.notify()
}

func (t *Tracker) cancelFinalizeLocked() {
	if t.finalize != nil {
		t.finalize.Stop()
		t.finalize = nil
	}
}

func (t *Tracker) loadLocked(ctx context.Context) error {
	state, err := t.store.TrackerState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tracker state: %w", err)
	}
	ft, err := t.store.FeedType(ctx)
	if err != nil {
		return fmt.Errorf("failed to load feed type: %w", err)
	}
	// In-memory state is only replaced once both reads succeeded.
	t.timer.Reset()
	t.history = state.History
	t.completed = state.Completed
	t.feedType = ft
	if state.Timer != nil {
		policy := timer.Policy{StaleAfter: t.cfg.StaleAfter, MaxFeed: t.cfg.MaxFeed}
		stale, err := t.timer.Restore(*state.Timer, policy)
		if err != nil {
			t.log.Warn(ctx, "discarding unusable timer snapshot", "err", err)
		} else if stale {
			t.log.Warn(ctx, "restored stale timer as paused", "side", string(t.timer.Side()), "elapsed", t.timer.Elapsed())
		}
	}
	t.syncCompletedLocked()
	return nil
}

func (t *Tracker) persistLocked(ctx context.Context) error {
	state := store.TrackerState{History: t.history, Completed: t.completed}
	if snap, ok := t.timer.Snapshot(); ok {
		state.Timer = &snap
	}
	if err := t.store.SaveTrackerState(ctx, state); err != nil {
		t.log.Error(ctx, "failed to save tracker state", "err", err)
		return fmt.Errorf("failed to save tracker state: %w", err)
	}
	return nil
}

func (t *Tracker) notify() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}
