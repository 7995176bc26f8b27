package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
	"github.com/borgmon/math-alarm/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday is 2026-10-12, a Monday, in local time
func monday(hour, minute, sec int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, sec, 0, time.Local)
}

// flakyBackend fails weekly registrations for the listed weekdays
type flakyBackend struct {
	*notify.LocalBackend
	failDays map[models.Weekday]bool
}

func (f *flakyBackend) ScheduleRecurringWeekly(ctx context.Context, p models.Payload, hour, minute int, wd models.Weekday) (string, error) {
	if f.failDays[wd] {
		return "", errors.New("backend rejected trigger")
	}
	return f.LocalBackend.ScheduleRecurringWeekly(ctx, p, hour, minute, wd)
}

func newBackend(t *testing.T, now time.Time, opts ...func(*notify.Options)) *notify.LocalBackend {
	t.Helper()
	kv, err := store.OpenBadger(store.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	o := notify.Options{Now: func() time.Time { return now }}
	for _, fn := range opts {
		fn(&o)
	}
	return notify.NewLocalBackend(kv, logger.Discard(), o)
}

func alarm(timeOfDay int, days ...models.Weekday) models.Alarm {
	return models.Alarm{
		ID:            "alarm-1",
		TimeOfDay:     timeOfDay,
		Days:          days,
		ChallengeKind: models.ChallengeMath,
		Difficulty:    models.DifficultyHard,
		SnoozeEnabled: true,
		Active:        true,
	}
}

func TestPlan_OneShot(t *testing.T) {
	now := monday(7, 0, 30)

	tests := []struct {
		name      string
		timeOfDay int
		want      time.Time
	}{
		{"later today", 7*60 + 30, monday(7, 30, 0)},
		{"current minute fires today", 7 * 60, monday(7, 0, 0)},
		{"passed fires tomorrow", 6*60 + 59, monday(6, 59, 0).AddDate(0, 0, 1)},
		{"midnight is tomorrow", 0, monday(0, 0, 0).AddDate(0, 0, 1)},
		{"last minute of the day", 1439, monday(23, 59, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := Plan(alarm(tt.timeOfDay), now)
			require.Len(t, rules, 1)
			assert.Equal(t, notify.RuleOnce, rules[0].Kind)
			assert.True(t, tt.want.Equal(rules[0].At), "want %s got %s", tt.want, rules[0].At)
		})
	}
}

func TestPlan_Weekly(t *testing.T) {
	a := alarm(450, models.Friday, models.Monday, models.Wednesday)
	rules := Plan(a, monday(9, 0, 0))

	require.Len(t, rules, 3)
	for i, wd := range []models.Weekday{models.Monday, models.Wednesday, models.Friday} {
		assert.Equal(t, notify.WeeklyAt(7, 30, wd), rules[i])
		assert.True(t, rules[i].Repeats())
	}

	every := alarm(60, models.AllWeekdays()...)
	assert.Len(t, Plan(every, monday(9, 0, 0)), 7)
}

func TestPlan_Inactive(t *testing.T) {
	a := alarm(450, models.Monday)
	a.Active = false
	assert.Empty(t, Plan(a, monday(9, 0, 0)))
	assert.True(t, NextFire(a, monday(9, 0, 0)).IsZero())
}

func TestNextFire(t *testing.T) {
	a := alarm(450, models.Monday, models.Wednesday)
	assert.True(t, monday(7, 30, 0).Equal(NextFire(a, monday(7, 0, 0))))
	assert.True(t, monday(7, 30, 0).AddDate(0, 0, 2).Equal(NextFire(a, monday(8, 0, 0))))
	assert.True(t, monday(6, 0, 0).AddDate(0, 0, 1).Equal(NextFire(alarm(360), monday(8, 0, 0))))
}

func TestScheduler_ScenarioWeekdays(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.Monday, models.Wednesday, models.Friday)
	require.NoError(t, s.Schedule(ctx, a))

	regs, err := s.Registered(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, regs, 3)

	days := map[models.Weekday]bool{}
	for _, r := range regs {
		assert.Equal(t, 7, r.Rule.Hour)
		assert.Equal(t, 30, r.Rule.Minute)
		assert.True(t, r.Payload.Repeats)
		assert.Equal(t, models.ChallengeMath, r.Payload.ChallengeKind)
		assert.Equal(t, models.DifficultyHard, r.Payload.Difficulty)
		days[r.Rule.Weekday] = true
	}
	assert.Equal(t, map[models.Weekday]bool{models.Monday: true, models.Wednesday: true, models.Friday: true}, days)
}

func TestScheduler_OneShot(t *testing.T) {
	ctx := context.Background()
	now := monday(8, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	require.NoError(t, s.Schedule(ctx, alarm(7*60)))

	regs, err := s.Registered(ctx, "alarm-1")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.False(t, regs[0].Payload.Repeats)
	assert.True(t, monday(7, 0, 0).AddDate(0, 0, 1).Equal(regs[0].Rule.At))
}

func TestScheduler_Idempotent(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.Tuesday, models.Thursday)
	require.NoError(t, s.Schedule(ctx, a))
	first, err := s.Registered(ctx, a.ID)
	require.NoError(t, err)

	require.NoError(t, s.Schedule(ctx, a))
	second, err := s.Registered(ctx, a.ID)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].Rule.Equal(second[i].Rule))
		assert.Equal(t, first[i].Payload, second[i].Payload)
	}
}

func TestScheduler_EditReplacesRegistrations(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.Monday, models.Tuesday)
	require.NoError(t, s.Schedule(ctx, a))

	a.Days = nil
	a.TimeOfDay = 9 * 60
	require.NoError(t, s.Schedule(ctx, a))

	regs, err := s.Registered(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, notify.RuleOnce, regs[0].Rule.Kind)
	assert.True(t, monday(9, 0, 0).Equal(regs[0].Rule.At))
}

func TestScheduler_InactiveCancelsOnly(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.Monday)
	require.NoError(t, s.Schedule(ctx, a))
	require.NoError(t, s.ScheduleSnooze(ctx, a.Payload(), monday(6, 5, 0)))

	a.Active = false
	require.NoError(t, s.Schedule(ctx, a))

	regs, err := b.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestScheduler_CancelAll(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.AllWeekdays()...)
	other := alarm(300)
	other.ID = "alarm-2"
	require.NoError(t, s.Schedule(ctx, a))
	require.NoError(t, s.Schedule(ctx, other))
	require.NoError(t, s.ScheduleSnooze(ctx, a.Payload(), monday(6, 5, 0)))

	require.NoError(t, s.CancelAll(ctx, a.ID))
	require.NoError(t, s.CancelAll(ctx, a.ID))

	regs, err := b.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "alarm-2", regs[0].Payload.AlarmID)
}

func TestScheduler_RepairKeepsSnooze(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now)
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.Monday)
	require.NoError(t, s.ScheduleSnooze(ctx, a.Payload(), monday(6, 5, 0)))
	require.NoError(t, s.Repair(ctx, a))

	regs, err := s.Registered(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)

	var snoozes int
	for _, r := range regs {
		if r.Payload.Snooze {
			snoozes++
			assert.True(t, monday(6, 5, 0).Equal(r.Rule.At))
			assert.False(t, r.Payload.Repeats)
		}
	}
	assert.Equal(t, 1, snoozes)
}

func TestScheduler_PermissionDenied(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := newBackend(t, now, func(o *notify.Options) { o.PermissionDenied = true })
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	err := s.Schedule(ctx, alarm(450, models.Monday))
	require.ErrorIs(t, err, models.ErrPermissionDenied)
	assert.True(t, models.NeedsWarning(err))

	err = s.ScheduleSnooze(ctx, alarm(450).Payload(), monday(6, 5, 0))
	assert.ErrorIs(t, err, models.ErrPermissionDenied)
}

func TestScheduler_PartialFailureContinues(t *testing.T) {
	ctx := context.Background()
	now := monday(6, 0, 0)
	b := &flakyBackend{
		LocalBackend: newBackend(t, now),
		failDays:     map[models.Weekday]bool{models.Wednesday: true},
	}
	s := NewScheduler(b, logger.Discard(), func() time.Time { return now })

	a := alarm(450, models.Monday, models.Wednesday, models.Friday)
	err := s.Schedule(ctx, a)

	var schedErr *models.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	assert.ErrorIs(t, err, models.ErrBackendScheduling)
	assert.Equal(t, 3, schedErr.Attempted)
	assert.Len(t, schedErr.Failures, 1)
	assert.True(t, schedErr.Partial())

	regs, err := s.Registered(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, regs, 2)
}
