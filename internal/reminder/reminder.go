// Package reminder schedules the single "next feed" reminder.
//
// A Service owns the persisted reminder and its timer. Interested parties
// subscribe explicitly and are told whenever the reminder is set, cleared
// or fires.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/logging"
	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
)

// DefaultTitle is used when a reminder is set without a title.
const DefaultTitle = "Time for the next feed!"

var ErrInvalidDelay = errors.New("reminder delay must not be negative")

// Store persists the reminder.
type Store interface {
	Reminder(ctx context.Context) (*model.Reminder, error)
	SaveReminder(ctx context.Context, r *model.Reminder) error
}

// Notifier shows a reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// EventKind says what happened to the reminder.
type EventKind int

const (
	EventScheduled EventKind = iota
	EventCleared
	EventFired
)

func (k EventKind) String() string {
	switch k {
	case EventScheduled:
		return "scheduled"
	case EventCleared:
		return "cleared"
	default:
		return "fired"
	}
}

// Event is delivered to subscribers. Reminder is nil for EventCleared.
type Event struct {
	Kind     EventKind
	Reminder *model.Reminder
}

// Listener receives events. It is called without the service lock held.
type Listener func(Event)

type Service struct {
	mu       sync.Mutex
	store    Store
	clock    clock.Clock
	notifier Notifier
	log      logging.Logger

	current *model.Reminder
	timer   clock.Timer

	nextID    int
	listeners map[int]Listener
}

// New returns a Service. Call Load to pick up a persisted reminder.
func New(st Store, c clock.Clock, n Notifier, log logging.Logger) *Service {
	if c == nil {
		c = clock.System{}
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Service{
		store:     st,
		clock:     c,
		notifier:  n,
		log:       log.With("component", "reminder"),
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers fn and returns an id for Unsubscribe.
func (s *Service) Subscribe(fn Listener) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[s.nextID] = fn
	return s.nextID
}

func (s *Service) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

// Current returns the scheduled reminder, or nil.
func (s *Service) Current() *model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	r := *s.current
	return &r
}

// Remaining is the time left until the reminder fires, or zero.
func (s *Service) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0
	}
	left := s.current.FireAt.Time().Sub(s.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Load reads the persisted reminder and reschedules it. A reminder already
// due fires immediately.
func (s *Service) Load(ctx context.Context) error {
	r, err := s.store.Reminder(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder: %w", err)
	}
	s.mu.Lock()
	if sameReminder(s.current, r) {
		s.mu.Unlock()
		return nil
	}
	s.cancelLocked()
	s.current = r
	if r == nil {
		s.mu.Unlock()
		s.publish(Event{Kind: EventCleared})
		return nil
	}
	due := s.scheduleLocked(*r)
	s.mu.Unlock()

	if due {
		s.fire(ctx, *r)
		return nil
	}
	s.publish(Event{Kind: EventScheduled, Reminder: r})
	return nil
}

// Set schedules a reminder at fireAt, replacing any existing one.
func (s *Service) Set(ctx context.Context, fireAt time.Time, title string) (model.Reminder, error) {
	if title == "" {
		title = DefaultTitle
	}
	r := model.Reminder{FireAt: model.At(fireAt), Title: title}
	if err := s.store.SaveReminder(ctx, &r); err != nil {
		return model.Reminder{}, fmt.Errorf("failed to save reminder: %w", err)
	}

	s.mu.Lock()
	s.cancelLocked()
	s.current = &r
	due := s.scheduleLocked(r)
	s.mu.Unlock()

	if due {
		s.fire(ctx, r)
		return r, nil
	}
	s.log.Info(ctx, "reminder scheduled", "at", fireAt.Format(time.RFC3339))
	s.publish(Event{Kind: EventScheduled, Reminder: &r})
	return r, nil
}

// SetForDelay schedules a reminder hours and minutes after base. A zero
// base means now.
func (s *Service) SetForDelay(ctx context.Context, hours, minutes int, base time.Time, title string) (model.Reminder, error) {
	if hours < 0 || minutes < 0 {
		return model.Reminder{}, ErrInvalidDelay
	}
	if base.IsZero() {
		base = s.clock.Now()
	}
	delay := time.Duration(hours*60+minutes) * time.Minute
	return s.Set(ctx, base.Add(delay), title)
}

// Clear cancels and forgets the reminder.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.SaveReminder(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear reminder: %w", err)
	}
	s.mu.Lock()
	s.cancelLocked()
	s.current = nil
	s.mu.Unlock()
	s.publish(Event{Kind: EventCleared})
	return nil
}

// Close stops the pending timer without touching the store.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// scheduleLocked arms the timer for r and reports whether r is already due.
func (s *Service) scheduleLocked(r model.Reminder) bool {
	delay := r.FireAt.Time().Sub(s.clock.Now())
	if delay <= 0 {
		return true
	}
	s.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.current == nil || *s.current != r {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		s.fire(context.Background(), r)
	})
	return false
}

func (s *Service) fire(ctx context.Context, r model.Reminder) {
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, r.Title, "Scheduled for "+timefmt.ClockTime(r.FireAt.Time())); err != nil {
			s.log.Warn(ctx, "reminder notification failed", "err", err)
		}
	}
	if err := s.store.SaveReminder(ctx, nil); err != nil {
		s.log.Error(ctx, "failed to clear fired reminder", "err", err)
	}
	s.mu.Lock()
	if s.current != nil && *s.current == r {
		s.current = nil
	}
	s.mu.Unlock()
	s.publish(Event{Kind: EventFired, Reminder: &r})
}

func (s *Service) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Service) publish(ev Event) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func sameReminder(a, b *model.Reminder) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
