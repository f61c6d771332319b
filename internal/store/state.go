package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verte-zerg/tuifeed/internal/model"
)

// Persisted keys.
const (
	KeyHistory          = "feedingHistory"
	KeyActiveTimer      = "activeTimer"
	KeyFeedType         = "feedType"
	KeyCompletedSession = "completedSession"
	KeyReminderTime     = "reminderTime"
	KeyReminderTitle    = "reminderTitle"
)

// TrackerState is everything the tracker persists together.
type TrackerState struct {
	History   []model.Unit
	Timer     *model.TimerSnapshot
	Completed *model.Session
}

// loadJSON fetches key and hands it to decode. A value that fails to decode
// is deleted and reported as absent.
func (s *Store) loadJSON(ctx context.Context, key string, decode func([]byte) error) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := decode(raw); err != nil {
		s.log.Warn(ctx, "discarding corrupt value", "key", key, "err", err)
		if derr := s.Delete(ctx, key); derr != nil {
			return false, derr
		}
		return false, nil
	}
	return true, nil
}

// History returns the persisted feeding history, newest first.
func (s *Store) History(ctx context.Context) ([]model.Unit, error) {
	var history []model.Unit
	_, err := s.loadJSON(ctx, KeyHistory, func(raw []byte) error {
		units, err := model.DecodeHistory(raw)
		history = units
		return err
	})
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []model.Unit{}
	}
	return history, nil
}

// SaveHistory replaces the persisted history.
func (s *Store) SaveHistory(ctx context.Context, history []model.Unit) error {
	raw, err := encodeHistory(history)
	if err != nil {
		return err
	}
	return s.Set(ctx, KeyHistory, raw)
}

// TimerSnapshot returns the active timer, or nil when idle.
func (s *Store) TimerSnapshot(ctx context.Context) (*model.TimerSnapshot, error) {
	var snap model.TimerSnapshot
	found, err := s.loadJSON(ctx, KeyActiveTimer, func(raw []byte) error {
		if err := json.Unmarshal(raw, &snap); err != nil {
			return err
		}
		if !snap.Side.Valid() {
			return fmt.Errorf("invalid side %q", snap.Side)
		}
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// CompletedSession returns the first half of an unfinished pair, or nil.
func (s *Store) CompletedSession(ctx context.Context) (*model.Session, error) {
	var session model.Session
	found, err := s.loadJSON(ctx, KeyCompletedSession, func(raw []byte) error {
		if err := json.Unmarshal(raw, &session); err != nil {
			return err
		}
		if !session.Side.Valid() {
			return fmt.Errorf("invalid side %q", session.Side)
		}
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &session, nil
}

// TrackerState loads history, timer and completed session.
func (s *Store) TrackerState(ctx context.Context) (TrackerState, error) {
	history, err := s.History(ctx)
	if err != nil {
		return TrackerState{}, err
	}
	timer, err := s.TimerSnapshot(ctx)
	if err != nil {
		return TrackerState{}, err
	}
	completed, err := s.CompletedSession(ctx)
	if err != nil {
		return TrackerState{}, err
	}
	return TrackerState{History: history, Timer: timer, Completed: completed}, nil
}

// SaveTrackerState writes history, timer and completed session in one
// transaction. Nil timer or completed session removes its key.
func (s *Store) SaveTrackerState(ctx context.Context, state TrackerState) error {
	values := map[string][]byte{
		KeyActiveTimer:      nil,
		KeyCompletedSession: nil,
	}
	raw, err := encodeHistory(state.History)
	if err != nil {
		return err
	}
	values[KeyHistory] = raw
	if state.Timer != nil {
		if values[KeyActiveTimer], err = json.Marshal(state.Timer); err != nil {
			return fmt.Errorf("failed to encode timer: %w", err)
		}
	}
	if state.Completed != nil {
		if values[KeyCompletedSession], err = json.Marshal(state.Completed); err != nil {
			return fmt.Errorf("failed to encode completed session: %w", err)
		}
	}
	return s.SetMany(ctx, values)
}

// FeedType returns the input-mode preference, defaulting to breast.
func (s *Store) FeedType(ctx context.Context) (model.FeedType, error) {
	raw, err := s.Get(ctx, KeyFeedType)
	if err != nil {
		return model.FeedTypeBreast, err
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		// Older values were stored unquoted.
		value = strings.TrimSpace(string(raw))
	}
	return model.ParseFeedType(value), nil
}

// SaveFeedType stores the input-mode preference.
func (s *Store) SaveFeedType(ctx context.Context, ft model.FeedType) error {
	raw, err := json.Marshal(string(model.ParseFeedType(string(ft))))
	if err != nil {
		return fmt.Errorf("failed to encode feed type: %w", err)
	}
	return s.Set(ctx, KeyFeedType, raw)
}

// Reminder returns the scheduled reminder, or nil.
func (s *Store) Reminder(ctx context.Context) (*model.Reminder, error) {
	var fireAt model.Timestamp
	found, err := s.loadJSON(ctx, KeyReminderTime, func(raw []byte) error {
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return err
		}
		if ms <= 0 {
			return fmt.Errorf("invalid reminder time %v", ms)
		}
		fireAt = model.Timestamp(ms)
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	var title string
	if _, err := s.loadJSON(ctx, KeyReminderTitle, func(raw []byte) error {
		return json.Unmarshal(raw, &title)
	}); err != nil {
		return nil, err
	}
	return &model.Reminder{FireAt: fireAt, Title: title}, nil
}

// SaveReminder stores r, or removes both reminder keys when r is nil.
func (s *Store) SaveReminder(ctx context.Context, r *model.Reminder) error {
	values := map[string][]byte{
		KeyReminderTime:  nil,
		KeyReminderTitle: nil,
	}
	if r != nil {
		var err error
		if values[KeyReminderTime], err = json.Marshal(int64(r.FireAt)); err != nil {
			return fmt.Errorf("failed to encode reminder: %w", err)
		}
		if values[KeyReminderTitle], err = json.Marshal(r.Title); err != nil {
			return fmt.Errorf("failed to encode reminder: %w", err)
		}
	}
	return s.SetMany(ctx, values)
}

func encodeHistory(history []model.Unit) ([]byte, error) {
	if history == nil {
		history = []model.Unit{}
	}
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return raw, nil
}
