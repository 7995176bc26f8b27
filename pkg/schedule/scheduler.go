package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/borgmon/math-alarm/pkg/keylock"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
)

// Backend is the part of notify.Backend the scheduler drives
type Backend interface {
	EnsurePermission(ctx context.Context) error
	ScheduleOneShot(ctx context.Context, payload models.Payload, at time.Time) (string, error)
	ScheduleRecurringWeekly(ctx context.Context, payload models.Payload, hour, minute int, weekday models.Weekday) (string, error)
	Cancel(ctx context.Context, handle string) error
	ListScheduled(ctx context.Context) ([]notify.Scheduled, error)
}

// Scheduler turns alarms into backend registrations. Calls for the same alarm
// id never overlap.
type Scheduler struct {
	backend Backend
	log     *slog.Logger
	locks   *keylock.Map
	now     func() time.Time
}

// NewScheduler creates a new Scheduler instance. now may be nil.
func NewScheduler(backend Backend, log *slog.Logger, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		backend: backend,
		log:     log.With("component", "scheduler"),
		locks:   keylock.New(),
		now:     now,
	}
}

// Schedule cancels every registration of the alarm, then registers what Plan
// yields. Weekdays are registered independently; failures come back as a
// *models.SchedulingError after all were attempted.
func (s *Scheduler) Schedule(ctx context.Context, alarm models.Alarm) error {
	return s.schedule(ctx, alarm, false)
}

// Repair is Schedule that leaves snooze continuations in place
func (s *Scheduler) Repair(ctx context.Context, alarm models.Alarm) error {
	return s.schedule(ctx, alarm, true)
}

func (s *Scheduler) schedule(ctx context.Context, alarm models.Alarm, keepSnooze bool) error {
	unlock := s.locks.Lock(alarm.ID)
	defer unlock()

	regs, err := s.registered(ctx, alarm.ID)
	if err != nil {
		return err
	}
	if keepSnooze {
		regs = withoutSnooze(regs)
	}
	if err := s.cancel(ctx, alarm.ID, regs); err != nil {
		return err
	}

	if !alarm.Active {
		return nil
	}
	if err := s.backend.EnsurePermission(ctx); err != nil {
		return fmt.Errorf("alarm %s: %w", alarm.ID, err)
	}

	rules := Plan(alarm, s.now())
	payload := alarm.Payload()
	schedErr := &models.SchedulingError{AlarmID: alarm.ID, Attempted: len(rules)}

	for _, rule := range rules {
		var handle string
		var err error
		switch rule.Kind {
		case notify.RuleOnce:
			handle, err = s.backend.ScheduleOneShot(ctx, payload, rule.At)
		case notify.RuleWeekly:
			handle, err = s.backend.ScheduleRecurringWeekly(ctx, payload, rule.Hour, rule.Minute, rule.Weekday)
		}
		if err != nil {
			s.log.Warn("registration failed",
				slog.String("alarm_id", alarm.ID),
				slog.String("rule", rule.String()),
				logger.Err(err))
			schedErr.Failures = append(schedErr.Failures, fmt.Errorf("%s: %w", rule, err))
			continue
		}
		s.log.Debug("registered",
			slog.String("alarm_id", alarm.ID),
			slog.String("handle", handle),
			slog.String("rule", rule.String()))
	}

	s.logScheduled(ctx)

	if len(schedErr.Failures) > 0 {
		return schedErr
	}
	return nil
}

// CancelAll removes every registration of the alarm, snooze continuations included
func (s *Scheduler) CancelAll(ctx context.Context, alarmID string) error {
	unlock := s.locks.Lock(alarmID)
	defer unlock()

	regs, err := s.registered(ctx, alarmID)
	if err != nil {
		return err
	}
	return s.cancel(ctx, alarmID, regs)
}

// CancelHandles removes the given registrations of one alarm
func (s *Scheduler) CancelHandles(ctx context.Context, alarmID string, handles []string) error {
	unlock := s.locks.Lock(alarmID)
	defer unlock()

	regs := make([]notify.Scheduled, len(handles))
	for i, h := range handles {
		regs[i] = notify.Scheduled{Handle: h}
	}
	return s.cancel(ctx, alarmID, regs)
}

// ScheduleSnooze registers a one-shot snooze continuation of payload at at
func (s *Scheduler) ScheduleSnooze(ctx context.Context, payload models.Payload, at time.Time) error {
	unlock := s.locks.Lock(payload.AlarmID)
	defer unlock()

	if err := s.backend.EnsurePermission(ctx); err != nil {
		return fmt.Errorf("snooze %s: %w", payload.AlarmID, err)
	}
	handle, err := s.backend.ScheduleOneShot(ctx, payload.SnoozeContinuation(), at)
	if err != nil {
		return fmt.Errorf("%w: snooze %s: %w", models.ErrBackendScheduling, payload.AlarmID, err)
	}
	s.log.Info("snooze registered",
		slog.String("alarm_id", payload.AlarmID),
		slog.String("handle", handle),
		slog.Time("at", at))
	return nil
}

// Registered returns the backend registrations tagged with alarmID
func (s *Scheduler) Registered(ctx context.Context, alarmID string) ([]notify.Scheduled, error) {
	return s.registered(ctx, alarmID)
}

// NextFire returns when the alarm rings next, or zero if it is off
func (s *Scheduler) NextFire(alarm models.Alarm, now time.Time) time.Time {
	return NextFire(alarm, now)
}

func (s *Scheduler) registered(ctx context.Context, alarmID string) ([]notify.Scheduled, error) {
	all, err := s.backend.ListScheduled(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list registrations: %w", models.ErrBackendScheduling, err)
	}
	return notify.ForAlarm(all, alarmID), nil
}

// cancel must finish before anything new is registered for alarmID
func (s *Scheduler) cancel(ctx context.Context, alarmID string, regs []notify.Scheduled) error {
	var errs []error
	for _, r := range regs {
		if err := s.backend.Cancel(ctx, r.Handle); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("cancel failed", slog.String("alarm_id", alarmID), logger.Err(err))
		return fmt.Errorf("%w: cancel %s: %w", models.ErrBackendScheduling, alarmID, err)
	}
	if len(regs) > 0 {
		s.log.Debug("cancelled", slog.String("alarm_id", alarmID), slog.Int("count", len(regs)))
	}
	return nil
}

// logScheduled dumps the whole registration table at debug level
func (s *Scheduler) logScheduled(ctx context.Context) {
	if !s.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	all, err := s.backend.ListScheduled(ctx)
	if err != nil {
		return
	}
	for _, r := range all {
		s.log.Debug("scheduled",
			slog.String("alarm_id", r.Payload.AlarmID),
			slog.String("rule", r.Rule.String()),
			slog.Time("next", r.Next),
			slog.Bool("snooze", r.Payload.Snooze))
	}
}

func withoutSnooze(regs []notify.Scheduled) []notify.Scheduled {
	out := regs[:0:0]
	for _, r := range regs {
		if !r.Payload.Snooze {
			out = append(out, r)
		}
	}
	return out
}
