package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/borgmon/math-alarm/pkg/keylock"
	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/google/uuid"
)

// Scheduler registers and cancels backend triggers for an alarm
type Scheduler interface {
	Schedule(ctx context.Context, alarm models.Alarm) error
	Repair(ctx context.Context, alarm models.Alarm) error
	CancelAll(ctx context.Context, alarmID string) error
}

// RingingAborter stops an alarm that may currently be sounding
type RingingAborter interface {
	Abort(ctx context.Context, alarmID string) error
}

// AlarmStore owns the canonical alarm list. Every mutation is persisted before
// the scheduler is told about it, and is rolled back if the write fails.
type AlarmStore struct {
	kv        KV
	scheduler Scheduler
	ringing   RingingAborter
	log       *slog.Logger
	locks     *keylock.Map
	newID     func() string

	mu     sync.RWMutex
	alarms []models.Alarm
}

// NewAlarmStore creates a new AlarmStore instance
func NewAlarmStore(kv KV, scheduler Scheduler, log *slog.Logger) *AlarmStore {
	return &AlarmStore{
		kv:        kv,
		scheduler: scheduler,
		log:       log.With("component", "alarms"),
		locks:     keylock.New(),
		newID:     func() string { return uuid.New().String() },
	}
}

// SetRinging wires the ringing machine. It is set after construction because the
// machine itself reports fired one-shots back to the store.
func (as *AlarmStore) SetRinging(r RingingAborter) {
	as.mu.Lock()
	defer as.mu.Unlock()
	as.ringing = r
}

// Load reads the persisted alarm list
func (as *AlarmStore) Load(ctx context.Context) error {
	var alarms []models.Alarm
	if _, err := getJSON(ctx, as.kv, KeyAlarms, &alarms); err != nil {
		return err
	}
	for i := range alarms {
		alarms[i].Days = models.NormalizeDays(alarms[i].Days)
	}

	as.mu.Lock()
	as.alarms = alarms
	as.mu.Unlock()

	as.log.Info("alarms loaded", slog.Int("count", len(alarms)))
	return nil
}

// List returns a snapshot of all alarms in insertion order
func (as *AlarmStore) List() []models.Alarm {
	as.mu.RLock()
	defer as.mu.RUnlock()

	result := make([]models.Alarm, len(as.alarms))
	for i, a := range as.alarms {
		result[i] = a.Clone()
	}
	return result
}

// Get returns an alarm by ID
func (as *AlarmStore) Get(id string) (models.Alarm, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()

	if i := as.indexOf(id); i >= 0 {
		return as.alarms[i].Clone(), true
	}
	return models.Alarm{}, false
}

// Create stores a new active alarm and schedules it. A scheduling error is
// returned together with the stored alarm.
func (as *AlarmStore) Create(ctx context.Context, fields models.AlarmFields) (models.Alarm, error) {
	fields = fields.Normalized()
	if err := models.Validate(fields); err != nil {
		return models.Alarm{}, err
	}

	alarm := models.Alarm{ID: as.newID(), Active: true}
	fields.Apply(&alarm)

	unlock := as.locks.Lock(alarm.ID)
	defer unlock()

	err := as.mutate(ctx, func(alarms []models.Alarm) ([]models.Alarm, error) {
		return append(alarms, alarm.Clone()), nil
	})
	if err != nil {
		return models.Alarm{}, err
	}
	as.log.Info("alarm created", slog.String("alarm_id", alarm.ID), slog.String("time", models.FormatTimeOfDay(alarm.TimeOfDay)), slog.String("days", alarm.DaysLabel()))

	return alarm, as.schedule(ctx, alarm)
}

// Update replaces the alarm's fields and reschedules it
func (as *AlarmStore) Update(ctx context.Context, id string, fields models.AlarmFields) (models.Alarm, error) {
	fields = fields.Normalized()
	if err := models.Validate(fields); err != nil {
		return models.Alarm{}, err
	}

	unlock := as.locks.Lock(id)
	defer unlock()

	var updated models.Alarm
	err := as.mutate(ctx, func(alarms []models.Alarm) ([]models.Alarm, error) {
		i := slices.IndexFunc(alarms, func(a models.Alarm) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("alarm %s: %w", id, models.ErrNotFound)
		}
		fields.Apply(&alarms[i])
		updated = alarms[i].Clone()
		return alarms, nil
	})
	if err != nil {
		return models.Alarm{}, err
	}
	as.log.Info("alarm updated", slog.String("alarm_id", id))

	return updated, as.schedule(ctx, updated)
}

// Toggle flips the alarm's active flag. Turning an alarm off silences it if it
// is ringing and cancels every trigger it has.
func (as *AlarmStore) Toggle(ctx context.Context, id string) (models.Alarm, error) {
	unlock := as.locks.Lock(id)
	defer unlock()

	var toggled models.Alarm
	err := as.mutate(ctx, func(alarms []models.Alarm) ([]models.Alarm, error) {
		i := slices.IndexFunc(alarms, func(a models.Alarm) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("alarm %s: %w", id, models.ErrNotFound)
		}
		alarms[i].Active = !alarms[i].Active
		toggled = alarms[i].Clone()
		return alarms, nil
	})
	if err != nil {
		return models.Alarm{}, err
	}
	as.log.Info("alarm toggled", slog.String("alarm_id", id), slog.Bool("active", toggled.Active))

	if toggled.Active {
		return toggled, as.schedule(ctx, toggled)
	}
	return toggled, as.silence(ctx, id)
}

// Delete removes the alarm, then silences and cancels it. Triggers left behind by
// a failed cancel are cleaned up by the reconciler.
func (as *AlarmStore) Delete(ctx context.Context, id string) error {
	unlock := as.locks.Lock(id)
	defer unlock()

	err := as.mutate(ctx, func(alarms []models.Alarm) ([]models.Alarm, error) {
		i := slices.IndexFunc(alarms, func(a models.Alarm) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("alarm %s: %w", id, models.ErrNotFound)
		}
		return slices.Delete(alarms, i, i+1), nil
	})
	if err != nil {
		return err
	}
	as.log.Info("alarm deleted", slog.String("alarm_id", id))

	return as.silence(ctx, id)
}

// MarkFired deactivates a one-shot alarm whose only trigger was delivered.
// Its registrations are left alone since the backend already consumed them.
func (as *AlarmStore) MarkFired(ctx context.Context, id string) error {
	unlock := as.locks.Lock(id)
	defer unlock()

	err := as.mutate(ctx, func(alarms []models.Alarm) ([]models.Alarm, error) {
		i := slices.IndexFunc(alarms, func(a models.Alarm) bool { return a.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("alarm %s: %w", id, models.ErrNotFound)
		}
		if !alarms[i].OneShot() {
			return alarms, nil
		}
		alarms[i].Active = false
		return alarms, nil
	})
	if errors.Is(err, models.ErrNotFound) {
		// deleted while its trigger was in flight
		return nil
	}
	return err
}

// Repair re-registers the triggers of the alarm as currently stored, leaving
// snooze continuations alone. An inactive alarm loses its weekly and one-shot
// triggers. It holds the alarm's lock, so it never interleaves with an edit.
func (as *AlarmStore) Repair(ctx context.Context, id string) (models.Alarm, error) {
	unlock := as.locks.Lock(id)
	defer unlock()

	alarm, ok := as.Get(id)
	if !ok {
		return models.Alarm{}, fmt.Errorf("alarm %s: %w", id, models.ErrNotFound)
	}
	if err := as.scheduler.Repair(ctx, alarm); err != nil {
		as.log.Warn("repair failed", slog.String("alarm_id", id), logger.Err(err))
		return alarm, err
	}
	return alarm, nil
}

// Deliverable reports whether a fired trigger still belongs to a live alarm.
// Snooze continuations outlive a fired one-shot, so only deletion drops them.
func (as *AlarmStore) Deliverable(p models.Payload) bool {
	alarm, ok := as.Get(p.AlarmID)
	if !ok {
		return false
	}
	return alarm.Active || p.Snooze
}

// mutate applies fn to a copy of the list, persists the result and only then
// publishes it. On any error the in-memory list is left as it was.
func (as *AlarmStore) mutate(ctx context.Context, fn func([]models.Alarm) ([]models.Alarm, error)) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	next := make([]models.Alarm, len(as.alarms))
	for i, a := range as.alarms {
		next[i] = a.Clone()
	}
	next, err := fn(next)
	if err != nil {
		return err
	}
	if next == nil {
		next = []models.Alarm{}
	}
	if err := setJSON(ctx, as.kv, KeyAlarms, next); err != nil {
		as.log.Error("persist alarms failed, rolled back", logger.Err(err))
		return err
	}
	as.alarms = next
	return nil
}

func (as *AlarmStore) schedule(ctx context.Context, alarm models.Alarm) error {
	if err := as.scheduler.Schedule(ctx, alarm); err != nil {
		as.log.Warn("alarm may not ring", slog.String("alarm_id", alarm.ID), logger.Err(err))
		return err
	}
	return nil
}

// silence aborts a ringing session before cancelling so a snooze issued in
// between cannot outlive the cancel.
func (as *AlarmStore) silence(ctx context.Context, id string) error {
	as.mu.RLock()
	ringing := as.ringing
	as.mu.RUnlock()

	var errs []error
	if ringing != nil {
		if err := ringing.Abort(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := as.scheduler.CancelAll(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		as.log.Warn("silence alarm failed", slog.String("alarm_id", id), logger.Err(err))
		return err
	}
	return nil
}

func (as *AlarmStore) indexOf(id string) int {
	return slices.IndexFunc(as.alarms, func(a models.Alarm) bool { return a.ID == id })
}
