package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op string
	id string
}

// recorder captures scheduler and ringing calls in order
type recorder struct {
	mu          sync.Mutex
	calls       []call
	scheduleErr error
}

func (r *recorder) add(op, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: op, id: id})
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

type fakeScheduler struct{ rec *recorder }

func (f fakeScheduler) Schedule(_ context.Context, alarm models.Alarm) error {
	f.rec.add("schedule", alarm.ID)
	return f.rec.scheduleErr
}

func (f fakeScheduler) Repair(_ context.Context, alarm models.Alarm) error {
	op := "repair"
	if !alarm.Active {
		op = "repair-inactive"
	}
	f.rec.add(op, alarm.ID)
	return f.rec.scheduleErr
}

func (f fakeScheduler) CancelAll(_ context.Context, alarmID string) error {
	f.rec.add("cancel", alarmID)
	return nil
}

type fakeAborter struct{ rec *recorder }

func (f fakeAborter) Abort(_ context.Context, alarmID string) error {
	f.rec.add("abort", alarmID)
	return nil
}

// flakyKV fails every Set once failSet is true
type flakyKV struct {
	KV
	failSet bool
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.KV.Set(ctx, key, value)
}

func newTestAlarmStore(t *testing.T) (*AlarmStore, *recorder, *flakyKV) {
	t.Helper()
	rec := &recorder{}
	kv := &flakyKV{KV: openTestBadger(t)}
	as := NewAlarmStore(kv, fakeScheduler{rec: rec}, logger.Discard())
	as.SetRinging(fakeAborter{rec: rec})
	return as, rec, kv
}

func weekdayFields() models.AlarmFields {
	return models.AlarmFields{
		TimeOfDay:     450,
		Days:          []models.Weekday{models.Friday, models.Monday, models.Wednesday},
		ChallengeKind: models.ChallengeMath,
		Difficulty:    models.DifficultyHard,
		SnoozeEnabled: true,
	}
}

func TestAlarmStore_Create(t *testing.T) {
	ctx := context.Background()
	as, rec, kv := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	assert.NotEmpty(t, alarm.ID)
	assert.True(t, alarm.Active)
	assert.Equal(t, []models.Weekday{models.Monday, models.Wednesday, models.Friday}, alarm.Days)
	assert.Equal(t, []call{{"schedule", alarm.ID}}, rec.Calls())

	// persisted and reloadable
	reloaded := NewAlarmStore(kv, fakeScheduler{rec: &recorder{}}, logger.Discard())
	require.NoError(t, reloaded.Load(ctx))
	require.Len(t, reloaded.List(), 1)
	assert.Equal(t, alarm, reloaded.List()[0])
}

func TestAlarmStore_CreateDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, models.AlarmFields{TimeOfDay: 60})
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeMath, alarm.ChallengeKind)
	assert.Equal(t, models.DifficultyMedium, alarm.Difficulty)
	assert.True(t, alarm.OneShot())

	_, err = as.Create(ctx, models.AlarmFields{TimeOfDay: 1440})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Len(t, as.List(), 1)
	assert.Len(t, rec.Calls(), 1)
}

func TestAlarmStore_SchedulingErrorKeepsRecord(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)
	rec.scheduleErr = models.ErrPermissionDenied

	alarm, err := as.Create(ctx, weekdayFields())
	require.ErrorIs(t, err, models.ErrPermissionDenied)
	assert.True(t, models.NeedsWarning(err))

	got, ok := as.Get(alarm.ID)
	require.True(t, ok)
	assert.True(t, got.Active)
}

func TestAlarmStore_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	as, rec, kv := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	kv.failSet = true

	_, err = as.Create(ctx, weekdayFields())
	require.ErrorIs(t, err, models.ErrStorage)

	_, err = as.Toggle(ctx, alarm.ID)
	require.ErrorIs(t, err, models.ErrStorage)

	fields := weekdayFields()
	fields.TimeOfDay = 600
	_, err = as.Update(ctx, alarm.ID, fields)
	require.ErrorIs(t, err, models.ErrStorage)

	require.ErrorIs(t, as.Delete(ctx, alarm.ID), models.ErrStorage)

	list := as.List()
	require.Len(t, list, 1)
	assert.Equal(t, alarm, list[0])
	// nothing reached the scheduler after the first create
	assert.Len(t, rec.Calls(), 1)
}

func TestAlarmStore_Update(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	fields := alarm.Fields()
	fields.TimeOfDay = 420
	fields.Days = nil
	updated, err := as.Update(ctx, alarm.ID, fields)
	require.NoError(t, err)

	assert.Equal(t, alarm.ID, updated.ID)
	assert.Equal(t, 420, updated.TimeOfDay)
	assert.True(t, updated.OneShot())
	assert.Equal(t, []call{{"schedule", alarm.ID}, {"schedule", alarm.ID}}, rec.Calls())

	_, err = as.Update(ctx, "nope", fields)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlarmStore_Toggle(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	off, err := as.Toggle(ctx, alarm.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	on, err := as.Toggle(ctx, alarm.ID)
	require.NoError(t, err)
	assert.True(t, on.Active)

	assert.Equal(t, []call{
		{"schedule", alarm.ID},
		{"abort", alarm.ID},
		{"cancel", alarm.ID},
		{"schedule", alarm.ID},
	}, rec.Calls())

	_, err = as.Toggle(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlarmStore_Delete(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)

	first, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)
	second, err := as.Create(ctx, models.AlarmFields{TimeOfDay: 30})
	require.NoError(t, err)

	require.NoError(t, as.Delete(ctx, first.ID))

	list := as.List()
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Contains(t, rec.Calls(), call{"abort", first.ID})
	assert.Contains(t, rec.Calls(), call{"cancel", first.ID})

	assert.ErrorIs(t, as.Delete(ctx, first.ID), models.ErrNotFound)
}

func TestAlarmStore_MarkFired(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)

	once, err := as.Create(ctx, models.AlarmFields{TimeOfDay: 30})
	require.NoError(t, err)
	weekly, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	require.NoError(t, as.MarkFired(ctx, once.ID))
	require.NoError(t, as.MarkFired(ctx, weekly.ID))
	require.NoError(t, as.MarkFired(ctx, "deleted"))

	got, _ := as.Get(once.ID)
	assert.False(t, got.Active)
	got, _ = as.Get(weekly.ID)
	assert.True(t, got.Active)

	// firing consumes the trigger; nothing is cancelled
	for _, c := range rec.Calls() {
		assert.Equal(t, "schedule", c.op)
	}
}

func TestAlarmStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	as, _, _ := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	list := as.List()
	list[0].Days[0] = models.Sunday
	list[0].Active = false

	got, ok := as.Get(alarm.ID)
	require.True(t, ok)
	assert.Equal(t, models.Monday, got.Days[0])
	assert.True(t, got.Active)
}

func TestAlarmStore_ConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	as, _, _ := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = as.Toggle(ctx, alarm.ID)
		}()
	}
	wg.Wait()

	// an even number of flips lands back where it started
	got, _ := as.Get(alarm.ID)
	assert.True(t, got.Active)
}

func TestAlarmStore_RepairUsesStoredRecord(t *testing.T) {
	ctx := context.Background()
	as, rec, _ := newTestAlarmStore(t)

	alarm, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)
	stale := as.List()

	_, err = as.Toggle(ctx, alarm.ID)
	require.NoError(t, err)

	got, err := as.Repair(ctx, stale[0].ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, call{"repair-inactive", alarm.ID}, rec.Calls()[len(rec.Calls())-1])

	_, err = as.Repair(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAlarmStore_Deliverable(t *testing.T) {
	ctx := context.Background()
	as, _, _ := newTestAlarmStore(t)

	weekly, err := as.Create(ctx, weekdayFields())
	require.NoError(t, err)
	once, err := as.Create(ctx, models.AlarmFields{TimeOfDay: 30})
	require.NoError(t, err)

	assert.True(t, as.Deliverable(weekly.Payload()))

	_, err = as.Toggle(ctx, weekly.ID)
	require.NoError(t, err)
	assert.False(t, as.Deliverable(weekly.Payload()))

	require.NoError(t, as.MarkFired(ctx, once.ID))
	assert.False(t, as.Deliverable(once.Payload()))
	snoozed := once.Payload()
	snoozed.Snooze = true
	assert.True(t, as.Deliverable(snoozed))

	require.NoError(t, as.Delete(ctx, once.ID))
	assert.False(t, as.Deliverable(snoozed))
}
