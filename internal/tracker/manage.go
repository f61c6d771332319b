package tracker

import (
	"context"
	"time"

	"github.com/verte-zerg/tuifeed/internal/feed"
	"github.com/verte-zerg/tuifeed/internal/model"
)

// AddBottle logs a bottle feed. A zero at means now.
func (t *Tracker) AddBottle(ctx context.Context, oz float64, at time.Time) (model.Unit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer.Active() {
		return model.Unit{}, ErrTimerActive
	}
	if at.IsZero() {
		at = t.clock.Now()
	}
	history, err := feed.AddBottleFeed(t.history, oz, model.At(at), t.ids)
	if err != nil {
		return model.Unit{}, err
	}
	var added model.Unit
	for _, u := range history {
		if !containsID(t.history, u.ID) {
			added = u
			break
		}
	}
	t.history = history
	t.syncCompletedLocked()
	t.scheduleFinalizeLocked(ctx)
	return added, t.persistLocked(ctx)
}

// Delete removes a feed by id.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer.Active() && len(t.history) > 0 && t.history[0].IsPending() && t.history[0].ID == id {
		return ErrActiveUnit
	}
	history, ok := feed.DeleteFeed(t.history, id)
	if !ok {
		return feed.ErrUnitNotFound
	}
	t.history = history
	t.syncCompletedLocked()
	t.scheduleFinalizeLocked(ctx)
	return t.persistLocked(ctx)
}

// EditSession sets the duration of one session of a committed feed.
func (t *Tracker) EditSession(ctx context.Context, id string, index int, seconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if isPendingID(t.history, id) {
		return ErrActiveUnit
	}
	history, err := feed.EditSessionDuration(t.history, id, index, seconds)
	if err != nil {
		return err
	}
	t.history = history
	t.syncCompletedLocked()
	t.scheduleFinalizeLocked(ctx)
	return t.persistLocked(ctx)
}

// EditBottle sets the volume of a bottle feed.
func (t *Tracker) EditBottle(ctx context.Context, id string, oz float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	history, err := feed.EditBottleVolume(t.history, id, oz)
	if err != nil {
		return err
	}
	t.history = history
	return t.persistLocked(ctx)
}

// Clear deletes all history. It requires confirmation and an idle timer.
func (t *Tracker) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer.Active() {
		return ErrTimerActive
	}
	t.history = []model.Unit{}
	t.completed = nil
	t.cancelFinalizeLocked()
	return t.persistLocked(ctx)
}

// Import replaces history with units. Pending placeholders are dropped,
// missing ids are filled in and the result is sorted newest first.
func (t *Tracker) Import(ctx context.Context, units []model.Unit, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer.Active() {
		return 0, ErrTimerActive
	}
	history := make([]model.Unit, 0, len(units))
	for _, u := range units {
		if u.IsPending() {
			continue
		}
		history = append(history, u.Clone())
	}
	history, _ = feed.EnsureIDs(history, t.ids)
	model.SortNewestFirst(history)

	t.history = history
	t.completed = nil
	t.cancelFinalizeLocked()
	return len(history), t.persistLocked(ctx)
}

// Committed returns history without pending placeholders.
func (t *Tracker) Committed() []model.Unit {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Unit, 0, len(t.history))
	for _, u := range t.history {
		if u.IsPending() {
			continue
		}
		out = append(out, u.Clone())
	}
	return out
}

func containsID(history []model.Unit, id string) bool {
	for _, u := range history {
		if u.ID == id {
			return true
		}
	}
	return false
}

func isPendingID(history []model.Unit, id string) bool {
	for _, u := range history {
		if u.ID == id {
			return u.IsPending()
		}
	}
	return false
}
