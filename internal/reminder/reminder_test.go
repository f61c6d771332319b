package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuifeed/internal/clock"
	"github.com/verte-zerg/tuifeed/internal/model"
)

var epoch = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

type memStore struct {
	mu sync.Mutex
	r  *model.Reminder
}

func (m *memStore) Reminder(context.Context) (*model.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.r == nil {
		return nil, nil
	}
	r := *m.r
	return &r, nil
}

func (m *memStore) SaveReminder(_ context.Context, r *model.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r == nil {
		m.r = nil
		return nil
	}
	cp := *r
	m.r = &cp
	return nil
}

type recordingNotifier struct {
	titles []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, title, _ string) error {
	n.titles = append(n.titles, title)
	return n.err
}

func collect(s *Service) *[]EventKind {
	var kinds []EventKind
	s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	return &kinds
}

func TestSetForDelayFiresOnce(t *testing.T) {
	c := clock.NewFake(epoch)
	st := &memStore{}
	n := &recordingNotifier{}
	svc := New(st, c, n, nil)
	events := collect(svc)
	ctx := context.Background()

	base := epoch.Add(-time.Hour)
	r, err := svc.SetForDelay(ctx, 3, 15, base, "")
	require.NoError(t, err)
	assert.Equal(t, model.At(base.Add(3*time.Hour+15*time.Minute)), r.FireAt)
	assert.Equal(t, DefaultTitle, r.Title)
	assert.Equal(t, 2*time.Hour+15*time.Minute, svc.Remaining())

	stored, err := st.Reminder(ctx)
	require.NoError(t, err)
	assert.Equal(t, &r, stored)

	c.Advance(2*time.Hour + 15*time.Minute)
	assert.Equal(t, []string{DefaultTitle}, n.titles)
	assert.Nil(t, svc.Current())
	stored, err = st.Reminder(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored, "fired reminder is removed from the store")
	assert.Equal(t, []EventKind{EventScheduled, EventFired}, *events)

	c.Advance(24 * time.Hour)
	assert.Len(t, n.titles, 1)
}

func TestSetReplacesPreviousTimer(t *testing.T) {
	c := clock.NewFake(epoch)
	n := &recordingNotifier{}
	svc := New(&memStore{}, c, n, nil)
	ctx := context.Background()

	_, err := svc.Set(ctx, epoch.Add(time.Hour), "first")
	require.NoError(t, err)
	_, err = svc.Set(ctx, epoch.Add(2*time.Hour), "second")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Pending())

	c.Advance(3 * time.Hour)
	assert.Equal(t, []string{"second"}, n.titles)
}

func TestPastReminderFiresImmediately(t *testing.T) {
	c := clock.NewFake(epoch)
	n := &recordingNotifier{err: errors.New("no display")}
	svc := New(&memStore{}, c, n, nil)

	_, err := svc.Set(context.Background(), epoch.Add(-time.Minute), "late")
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, n.titles)
	assert.Nil(t, svc.Current())
	assert.Equal(t, 0, c.Pending())
}

func TestClearCancels(t *testing.T) {
	c := clock.NewFake(epoch)
	st := &memStore{}
	n := &recordingNotifier{}
	svc := New(st, c, n, nil)
	events := collect(svc)
	ctx := context.Background()

	_, err := svc.Set(ctx, epoch.Add(time.Hour), "x")
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))
	c.Advance(2 * time.Hour)

	assert.Empty(t, n.titles)
	assert.Nil(t, svc.Current())
	assert.Equal(t, time.Duration(0), svc.Remaining())
	assert.Equal(t, []EventKind{EventScheduled, EventCleared}, *events)
}

func TestLoadPicksUpExternalChanges(t *testing.T) {
	c := clock.NewFake(epoch)
	st := &memStore{}
	n := &recordingNotifier{}
	svc := New(st, c, n, nil)
	events := collect(svc)
	ctx := context.Background()

	require.NoError(t, svc.Load(ctx))
	assert.Empty(t, *events, "nothing stored, nothing changed")

	require.NoError(t, st.SaveReminder(ctx, &model.Reminder{FireAt: model.At(epoch.Add(time.Minute)), Title: "ext"}))
	require.NoError(t, svc.Load(ctx))
	require.NoError(t, svc.Load(ctx))
	require.NotNil(t, svc.Current())
	assert.Equal(t, "ext", svc.Current().Title)
	assert.Equal(t, 1, c.Pending())

	require.NoError(t, st.SaveReminder(ctx, nil))
	require.NoError(t, svc.Load(ctx))
	assert.Nil(t, svc.Current())
	assert.Equal(t, 0, c.Pending())
	assert.Equal(t, []EventKind{EventScheduled, EventCleared}, *events)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := clock.NewFake(epoch)
	svc := New(&memStore{}, c, nil, nil)
	calls := 0
	id := svc.Subscribe(func(Event) { calls++ })

	_, err := svc.Set(context.Background(), epoch.Add(time.Hour), "")
	require.NoError(t, err)
	svc.Unsubscribe(id)
	require.NoError(t, svc.Clear(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestNegativeDelayRejected(t *testing.T) {
	svc := New(&memStore{}, clock.NewFake(epoch), nil, nil)
	_, err := svc.SetForDelay(context.Background(), -1, 0, time.Time{}, "")
	assert.ErrorIs(t, err, ErrInvalidDelay)
}
