package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
	"github.com/borgmon/math-alarm/pkg/schedule"
)

// Alarms lists the canonical alarm records. Repair re-registers an alarm from
// its stored record under the same lock that edits take, and returns that record.
type Alarms interface {
	List() []models.Alarm
	Repair(ctx context.Context, id string) (models.Alarm, error)
}

// Scheduler prunes registrations of alarms that no longer exist
type Scheduler interface {
	CancelHandles(ctx context.Context, alarmID string, handles []string) error
}

// Registrations lists what the backend holds
type Registrations interface {
	ListScheduled(ctx context.Context) ([]notify.Scheduled, error)
}

// Ringing reports the alarm currently sounding
type Ringing interface {
	Current() (models.RingingSession, bool)
}

// Report summarizes one pass
type Report struct {
	Checked     int
	Rescheduled int
	Cancelled   int
	Failures    []error
}

// Clean reports whether the pass changed nothing and hit no errors
func (r Report) Clean() bool {
	return r.Rescheduled == 0 && r.Cancelled == 0 && len(r.Failures) == 0
}

// Options configures a Reconciler
type Options struct {
	Interval     time.Duration // default 15m
	InitialDelay time.Duration
	Now          func() time.Time
}

// Reconciler brings backend registrations back in line with the alarm list.
// It is a backstop: a pass over matching state does nothing.
type Reconciler struct {
	alarms    Alarms
	scheduler Scheduler
	regs      Registrations
	ringing   Ringing
	log       *slog.Logger
	opts      Options
}

// New creates a new Reconciler instance. ringing may be nil.
func New(alarms Alarms, scheduler Scheduler, regs Registrations, ringing Ringing, log *slog.Logger, opts Options) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Reconciler{
		alarms:    alarms,
		scheduler: scheduler,
		regs:      regs,
		ringing:   ringing,
		log:       log.With("component", "reconcile"),
		opts:      opts,
	}
}

// Start runs a pass after the initial delay and then every interval until ctx is done
func (r *Reconciler) Start(ctx context.Context) error {
	timer := time.NewTimer(r.opts.InitialDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		r.runLogged(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) runLogged(ctx context.Context) {
	report, err := r.Run(ctx)
	if err != nil {
		r.log.Warn("reconcile pass failed", logger.Err(err))
		return
	}
	attrs := []any{
		slog.Int("checked", report.Checked),
		slog.Int("rescheduled", report.Rescheduled),
		slog.Int("cancelled", report.Cancelled),
		slog.Int("failures", len(report.Failures)),
	}
	if report.Clean() {
		r.log.Debug("reconciled", attrs...)
		return
	}
	r.log.Info("reconciled", attrs...)
	for _, f := range report.Failures {
		r.log.Warn("reconcile failure", logger.Err(f))
	}
}

// Run performs one pass. Snooze continuations and the ringing alarm are left alone.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	all, err := r.regs.ListScheduled(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list registrations: %w", err)
	}

	byAlarm := make(map[string][]notify.Scheduled)
	for _, reg := range all {
		if reg.Payload.Snooze {
			continue
		}
		byAlarm[reg.Payload.AlarmID] = append(byAlarm[reg.Payload.AlarmID], reg)
	}

	var ringingID string
	if r.ringing != nil {
		if s, ok := r.ringing.Current(); ok {
			ringingID = s.AlarmID
		}
	}

	now := r.opts.Now()
	var report Report
	known := make(map[string]bool)

	for _, alarm := range r.alarms.List() {
		known[alarm.ID] = true
		report.Checked++
		if alarm.ID == ringingID {
			continue
		}
		regs := byAlarm[alarm.ID]

		if alarm.Active && matches(alarm, regs, now) || !alarm.Active && len(regs) == 0 {
			continue
		}
		r.log.Info("registrations drifted, repairing",
			slog.String("alarm_id", alarm.ID),
			slog.Bool("active", alarm.Active),
			slog.Int("registered", len(regs)))

		// the list above may be stale by now; Repair works from the stored record
		current, err := r.alarms.Repair(ctx, alarm.ID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			// deleted meanwhile; Delete cancelled its triggers
		case err != nil:
			report.Failures = append(report.Failures, fmt.Errorf("repair %s: %w", alarm.ID, err))
		case current.Active:
			report.Rescheduled++
		default:
			report.Cancelled += len(regs)
		}
	}

	for id, regs := range byAlarm {
		if known[id] || id == ringingID {
			continue
		}
		r.log.Info("cancelling orphaned registrations", slog.String("alarm_id", id), slog.Int("count", len(regs)))
		r.cancel(ctx, id, regs, &report)
	}
	return report, nil
}

func (r *Reconciler) cancel(ctx context.Context, alarmID string, regs []notify.Scheduled, report *Report) {
	handles := make([]string, len(regs))
	for i, reg := range regs {
		handles[i] = reg.Handle
	}
	if err := r.scheduler.CancelHandles(ctx, alarmID, handles); err != nil {
		report.Failures = append(report.Failures, fmt.Errorf("cancel %s: %w", alarmID, err))
		return
	}
	report.Cancelled += len(handles)
}

// matches reports whether regs is what scheduling alarm would produce. A
// one-shot only needs a pending trigger at its time of day; the date depends
// on when it was scheduled.
func matches(alarm models.Alarm, regs []notify.Scheduled, now time.Time) bool {
	if alarm.OneShot() {
		if len(regs) != 1 || regs[0].Rule.Kind != notify.RuleOnce {
			return false
		}
		at := regs[0].Rule.At.In(now.Location())
		return models.MinuteOfDay(at) == alarm.TimeOfDay &&
			!at.Before(models.RoundToMinute(now)) &&
			payloadMatches(alarm, regs[0].Payload)
	}

	planned := schedule.Plan(alarm, now)
	if len(planned) != len(regs) {
		return false
	}
	used := make([]bool, len(regs))
	for _, rule := range planned {
		found := false
		for i, reg := range regs {
			if !used[i] && reg.Rule.Equal(rule) && payloadMatches(alarm, reg.Payload) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// payloadMatches catches edits that changed the challenge but not the time
func payloadMatches(alarm models.Alarm, p models.Payload) bool {
	want := alarm.Payload()
	return p.ChallengeKind == want.ChallengeKind &&
		p.Difficulty == want.Difficulty &&
		p.SnoozeEnabled == want.SnoozeEnabled &&
		p.Vibrate == want.Vibrate
}
