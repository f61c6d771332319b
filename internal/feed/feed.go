// Package feed merges finished sessions into the feeding history.
//
// Every function here treats its input history as immutable and returns a
// new slice; units that change are cloned first.
package feed

import (
	"errors"
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
)

var (
	ErrUnitNotFound  = errors.New("feed not found")
	ErrSessionIndex  = errors.New("session index out of range")
	ErrInvalidVolume = errors.New("bottle volume must be greater than zero")
	ErrNotBottle     = errors.New("feed is not a bottle feed")
)

// AddFeed records a finished breast session.
//
// A pending placeholder for the same side on top is replaced by a fresh
// committed unit. A committed single-session breast unit for the opposite
// side on top gains the session as its second entry. Anything else gets a
// new unit prepended. There is no time window on pairing.
func AddFeed(history []model.Unit, session model.Session, ids IDSource) []model.Unit {
	if len(history) > 0 {
		top := history[0]
		switch {
		case top.IsPending() && len(top.Sessions) == 1 && top.Sessions[0].Side == session.Side:
			out := make([]model.Unit, len(history))
			copy(out, history)
			out[0] = newUnit(session, ids)
			return out
		case CanPair(top, session.Side):
			merged := top.Clone()
			merged.Sessions = append(merged.Sessions, session)
			merged.EndTime = session.EndTime
			out := make([]model.Unit, len(history))
			copy(out, history)
			out[0] = merged
			return out
		}
	}
	return prepend(history, newUnit(session, ids))
}

// AddPendingFeed prepends a placeholder for a timer that started at start.
// It is a no-op, returning false, when a placeholder is already on top or
// the top unit is waiting for its opposite side.
func AddPendingFeed(history []model.Unit, side model.Side, start model.Timestamp) ([]model.Unit, bool) {
	if len(history) > 0 {
		top := history[0]
		if top.IsPending() || CanPair(top, side) {
			return history, false
		}
	}
	return prepend(history, model.NewPendingUnit(side, start)), true
}

// RemovePendingTop drops a placeholder from the top of history.
func RemovePendingTop(history []model.Unit) ([]model.Unit, bool) {
	if len(history) == 0 || !history[0].IsPending() {
		return history, false
	}
	out := make([]model.Unit, len(history)-1)
	copy(out, history[1:])
	return out, true
}

// AddBottleFeed records a bottle feed of oz ounces at the given instant,
// keeping history newest-first.
func AddBottleFeed(history []model.Unit, oz float64, at model.Timestamp, ids IDSource) ([]model.Unit, error) {
	if !(oz > 0) {
		return history, ErrInvalidVolume
	}
	unit := model.Unit{
		ID:       ids.NewID(),
		Kind:     model.KindBottle,
		Sessions: []model.Session{},
		EndTime:  at,
		VolumeOz: model.ClampOunces(oz),
	}
	idx := 0
	for idx < len(history) && history[idx].EndTime > at {
		idx++
	}
	out := make([]model.Unit, 0, len(history)+1)
	out = append(out, history[:idx]...)
	out = append(out, unit)
	out = append(out, history[idx:]...)
	return out, nil
}

// DeleteFeed removes the unit with id.
func DeleteFeed(history []model.Unit, id string) ([]model.Unit, bool) {
	out := make([]model.Unit, 0, len(history))
	found := false
	for _, u := range history {
		if u.ID == id {
			found = true
			continue
		}
		out = append(out, u)
	}
	if !found {
		return history, false
	}
	return out, true
}

// EditSessionDuration sets one session's duration, clamped to 0-20 minutes.
func EditSessionDuration(history []model.Unit, id string, index int, seconds int) ([]model.Unit, error) {
	pos := indexOf(history, id)
	if pos < 0 {
		return history, ErrUnitNotFound
	}
	if index < 0 || index >= len(history[pos].Sessions) {
		return history, ErrSessionIndex
	}
	edited := history[pos].Clone()
	edited.Sessions[index].Duration = ClampSeconds(seconds)
	out := make([]model.Unit, len(history))
	copy(out, history)
	out[pos] = edited
	return out, nil
}

// EditBottleVolume sets a bottle unit's volume, clamped to 0-20 oz.
func EditBottleVolume(history []model.Unit, id string, oz float64) ([]model.Unit, error) {
	pos := indexOf(history, id)
	if pos < 0 {
		return history, ErrUnitNotFound
	}
	if !history[pos].IsBottle() {
		return history, ErrNotBottle
	}
	edited := history[pos].Clone()
	edited.VolumeOz = model.ClampOunces(oz)
	out := make([]model.Unit, len(history))
	copy(out, history)
	out[pos] = edited
	return out, nil
}

// ClampSeconds bounds a manually entered duration.
func ClampSeconds(seconds int) int {
	if seconds < 0 {
		return 0
	}
	if seconds > model.MaxSessionSeconds {
		return model.MaxSessionSeconds
	}
	return seconds
}

// ClampOunces bounds a bottle volume.
func ClampOunces(oz float64) float64 {
	return model.ClampOunces(oz)
}

// SuggestedSide is the opposite of the most recent unit's first side.
func SuggestedSide(history []model.Unit) model.Side {
	if len(history) == 0 || len(history[0].Sessions) == 0 {
		return model.SideUnknown
	}
	return history[0].Sessions[0].Side.Opposite()
}

// LastFeedTime returns the end of the newest committed unit.
func LastFeedTime(history []model.Unit) (model.Timestamp, bool) {
	for _, u := range history {
		if u.IsPending() {
			continue
		}
		return u.EndTime, true
	}
	return 0, false
}

// NeedsFinalize reports whether the top unit is a lone breast session that
// ended at least after before now.
func NeedsFinalize(history []model.Unit, now model.Timestamp, after time.Duration) bool {
	if len(history) == 0 {
		return false
	}
	top := history[0]
	if top.IsPending() || top.IsBottle() || len(top.Sessions) != 1 || !top.Sessions[0].Side.Valid() {
		return false
	}
	return now.Sub(top.EndTime) >= after
}

// EnsureIDs gives committed units without an id a fresh one.
func EnsureIDs(history []model.Unit, ids IDSource) ([]model.Unit, bool) {
	changed := false
	out := history
	for i, u := range history {
		if u.ID != "" {
			continue
		}
		if !changed {
			out = make([]model.Unit, len(history))
			copy(out, history)
			changed = true
		}
		out[i].ID = ids.NewID()
	}
	return out, changed
}

// CanPair reports whether u is a committed breast unit waiting for side.
func CanPair(u model.Unit, side model.Side) bool {
	return !u.IsPending() &&
		!u.IsBottle() &&
		len(u.Sessions) == 1 &&
		u.Sessions[0].Side.Valid() &&
		u.Sessions[0].Side == side.Opposite()
}

func newUnit(session model.Session, ids IDSource) model.Unit {
	return model.Unit{
		ID:       ids.NewID(),
		Kind:     model.KindBreast,
		Sessions: []model.Session{session},
		EndTime:  session.EndTime,
	}
}

func prepend(history []model.Unit, unit model.Unit) []model.Unit {
	out := make([]model.Unit, 0, len(history)+1)
	out = append(out, unit)
	return append(out, history...)
}

func indexOf(history []model.Unit, id string) int {
	for i, u := range history {
		if u.ID == id {
			return i
		}
	}
	return -1
}
