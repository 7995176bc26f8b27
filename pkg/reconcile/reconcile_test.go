package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
	"github.com/borgmon/math-alarm/pkg/schedule"
	"github.com/borgmon/math-alarm/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monday(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.Local)
}

type alarmList []models.Alarm

// fixedAlarms serves a fixed list and repairs from it
type fixedAlarms struct {
	list      alarmList
	scheduler *schedule.Scheduler
}

func (f fixedAlarms) List() []models.Alarm { return f.list }

func (f fixedAlarms) Repair(ctx context.Context, id string) (models.Alarm, error) {
	for _, a := range f.list {
		if a.ID == id {
			return a, f.scheduler.Repair(ctx, a)
		}
	}
	return models.Alarm{}, models.ErrNotFound
}

// editedAfterList hands out its list, then lets edit change the store before
// the pass goes on
type editedAfterList struct {
	*store.AlarmStore
	edit func()
}

func (e editedAfterList) List() []models.Alarm {
	list := e.AlarmStore.List()
	e.edit()
	return list
}

type ringingAs string

func (r ringingAs) Current() (models.RingingSession, bool) {
	if r == "" {
		return models.RingingSession{}, false
	}
	return models.RingingSession{AlarmID: string(r)}, true
}

type env struct {
	kv        store.KV
	backend   *notify.LocalBackend
	scheduler *schedule.Scheduler
	now       time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	kv, err := store.OpenBadger(store.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	e := &env{kv: kv, now: monday(6, 0)}
	clock := func() time.Time { return e.now }
	e.backend = notify.NewLocalBackend(kv, logger.Discard(), notify.Options{Now: clock})
	e.scheduler = schedule.NewScheduler(e.backend, logger.Discard(), clock)
	return e
}

func (e *env) reconciler(alarms alarmList, ringing Ringing) *Reconciler {
	return e.reconcilerOn(fixedAlarms{list: alarms, scheduler: e.scheduler}, ringing)
}

func (e *env) reconcilerOn(alarms Alarms, ringing Ringing) *Reconciler {
	return New(alarms, e.scheduler, e.backend, ringing, logger.Discard(), Options{Now: func() time.Time { return e.now }})
}

func (e *env) registered(t *testing.T, id string) []notify.Scheduled {
	t.Helper()
	regs, err := e.scheduler.Registered(context.Background(), id)
	require.NoError(t, err)
	return regs
}

func newAlarm(id string, timeOfDay int, active bool, days ...models.Weekday) models.Alarm {
	return models.Alarm{
		ID:            id,
		TimeOfDay:     timeOfDay,
		Days:          days,
		ChallengeKind: models.ChallengeAlphabet,
		Difficulty:    models.DifficultyMedium,
		Active:        active,
	}
}

func TestRun_NoopWhenInSync(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alarms := alarmList{
		newAlarm("weekly", 450, true, models.Monday, models.Friday),
		newAlarm("once", 500, true),
		newAlarm("off", 600, false, models.Sunday),
	}
	for _, a := range alarms {
		require.NoError(t, e.scheduler.Schedule(ctx, a))
	}
	before, _ := e.backend.ListScheduled(ctx)

	report, err := e.reconciler(alarms, nil).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 3, report.Checked)

	// a second pass is just as quiet, and later in the day too
	e.now = monday(7, 0)
	report, err = e.reconciler(alarms, nil).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	after, _ := e.backend.ListScheduled(ctx)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Handle, after[i].Handle)
	}
}

func TestRun_ReschedulesMissing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := newAlarm("weekly", 450, true, models.Monday, models.Wednesday)
	require.NoError(t, e.scheduler.Schedule(ctx, a))

	// lose one registration behind the scheduler's back
	regs := e.registered(t, a.ID)
	require.NoError(t, e.backend.Cancel(ctx, regs[0].Handle))

	report, err := e.reconciler(alarmList{a}, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rescheduled)
	assert.Len(t, e.registered(t, a.ID), 2)
}

func TestRun_ReschedulesEditedChallenge(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := newAlarm("once", 500, true)
	require.NoError(t, e.scheduler.Schedule(ctx, a))

	a.Difficulty = models.DifficultyExpert
	report, err := e.reconciler(alarmList{a}, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rescheduled)

	regs := e.registered(t, a.ID)
	require.Len(t, regs, 1)
	assert.Equal(t, models.DifficultyExpert, regs[0].Payload.Difficulty)
}

func TestRun_CancelsInactiveAndOrphans(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	off := newAlarm("off", 450, true, models.Monday)
	gone := newAlarm("gone", 460, true, models.Tuesday, models.Thursday)
	require.NoError(t, e.scheduler.Schedule(ctx, off))
	require.NoError(t, e.scheduler.Schedule(ctx, gone))
	off.Active = false

	report, err := e.reconciler(alarmList{off}, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Cancelled)
	assert.Empty(t, e.registered(t, "off"))
	assert.Empty(t, e.registered(t, "gone"))
}

func TestRun_LeavesSnoozeAndRingingAlone(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	ringing := newAlarm("ringing", 360, true)
	snoozed := newAlarm("snoozed", 300, false)
	require.NoError(t, e.scheduler.ScheduleSnooze(ctx, snoozed.Payload(), monday(6, 5)))

	report, err := e.reconciler(alarmList{ringing, snoozed}, ringingAs("ringing")).Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	assert.Empty(t, e.registered(t, "ringing"))
	regs := e.registered(t, "snoozed")
	require.Len(t, regs, 1)
	assert.True(t, regs[0].Payload.Snooze)
}

func TestRun_RepairKeepsSnooze(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	a := newAlarm("a", 450, true, models.Monday)
	require.NoError(t, e.scheduler.ScheduleSnooze(ctx, a.Payload(), monday(6, 5)))

	report, err := e.reconciler(alarmList{a}, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rescheduled)
	assert.Len(t, e.registered(t, "a"), 2)
}

func TestStart_StopsOnCancel(t *testing.T) {
	e := newEnv(t)
	r := New(fixedAlarms{scheduler: e.scheduler}, e.scheduler, e.backend, nil, logger.Discard(), Options{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestRun_ToggledOffDuringPass(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alarms := store.NewAlarmStore(e.kv, e.scheduler, logger.Discard())

	a, err := alarms.Create(ctx, models.AlarmFields{TimeOfDay: 450, Days: []models.Weekday{models.Monday}})
	require.NoError(t, err)
	for _, reg := range e.registered(t, a.ID) {
		require.NoError(t, e.backend.Cancel(ctx, reg.Handle))
	}

	r := e.reconcilerOn(editedAfterList{AlarmStore: alarms, edit: func() {
		_, err := alarms.Toggle(ctx, a.ID)
		require.NoError(t, err)
	}}, nil)
	_, err = r.Run(ctx)
	require.NoError(t, err)

	got, _ := alarms.Get(a.ID)
	assert.False(t, got.Active)
	assert.Empty(t, e.registered(t, a.ID))
}

func TestRun_UpdatedDuringPass(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alarms := store.NewAlarmStore(e.kv, e.scheduler, logger.Discard())

	fields := models.AlarmFields{TimeOfDay: 450, Days: []models.Weekday{models.Monday}, Difficulty: models.DifficultyEasy}
	a, err := alarms.Create(ctx, fields)
	require.NoError(t, err)
	for _, reg := range e.registered(t, a.ID) {
		require.NoError(t, e.backend.Cancel(ctx, reg.Handle))
	}

	fields.TimeOfDay = 480
	fields.Difficulty = models.DifficultyExpert
	r := e.reconcilerOn(editedAfterList{AlarmStore: alarms, edit: func() {
		_, err := alarms.Update(ctx, a.ID, fields)
		require.NoError(t, err)
	}}, nil)
	report, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Rescheduled)

	regs := e.registered(t, a.ID)
	require.Len(t, regs, 1)
	assert.Equal(t, models.DifficultyExpert, regs[0].Payload.Difficulty)
	assert.Equal(t, notify.WeeklyAt(8, 0, models.Monday), regs[0].Rule)
}
