package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/store"
	"github.com/google/uuid"
)

// Options configures a LocalBackend
type Options struct {
	Tick             time.Duration // how often due triggers are checked, default 1s
	PermissionDenied bool          // refuse every registration, like an OS without notification rights
	Notifier         Notifier      // nil shows nothing
	Now              func() time.Time
}

// LocalBackend keeps trigger registrations in the store as an iCalendar
// document and fires them from a ticker while the process runs. One-shots
// that came due while it was stopped fire on the first tick after Load.
type LocalBackend struct {
	kv   store.KV
	log  *slog.Logger
	opts Options

	mu        sync.Mutex
	regs      map[string]*Scheduled
	presented []Presented
	handler   DeliveryHandler
}

// NewLocalBackend creates a new LocalBackend instance
func NewLocalBackend(kv store.KV, log *slog.Logger, opts Options) *LocalBackend {
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LocalBackend{
		kv:   kv,
		log:  log.With("component", "backend"),
		opts: opts,
		regs: make(map[string]*Scheduled),
	}
}

// Load reads persisted registrations. Weekly slots missed while stopped are
// skipped and advanced to their next occurrence.
func (b *LocalBackend) Load(ctx context.Context) error {
	raw, ok, err := b.kv.Get(ctx, store.KeyTriggers)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", models.ErrStorage, store.KeyTriggers, err)
	}

	var regs []Scheduled
	if ok {
		regs, err = decodeCalendar(bytes.NewReader(raw), time.Local)
		if err != nil {
			return fmt.Errorf("%w: %w", models.ErrStorage, err)
		}
	}

	now := b.opts.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regs = make(map[string]*Scheduled, len(regs))
	for i := range regs {
		reg := regs[i]
		if reg.Rule.Repeats() {
			reg.Next = reg.Rule.Next(now)
		}
		b.regs[reg.Handle] = &reg
	}
	b.log.Info("triggers loaded", slog.Int("count", len(b.regs)))
	return nil
}

// OnDelivery implements Backend
func (b *LocalBackend) OnDelivery(h DeliveryHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// EnsurePermission implements Backend
func (b *LocalBackend) EnsurePermission(_ context.Context) error {
	if b.opts.PermissionDenied {
		return models.ErrPermissionDenied
	}
	return nil
}

// ScheduleOneShot implements Backend
func (b *LocalBackend) ScheduleOneShot(ctx context.Context, payload models.Payload, at time.Time) (string, error) {
	rule := OnceAt(at)
	payload.Repeats = false
	return b.add(ctx, Scheduled{Payload: payload, Rule: rule, Next: rule.At})
}

// ScheduleRecurringWeekly implements Backend
func (b *LocalBackend) ScheduleRecurringWeekly(ctx context.Context, payload models.Payload, hour, minute int, weekday models.Weekday) (string, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || !weekday.Valid() {
		return "", fmt.Errorf("invalid weekly slot %d %02d:%02d", weekday, hour, minute)
	}
	rule := WeeklyAt(hour, minute, weekday)
	payload.Repeats = true
	return b.add(ctx, Scheduled{Payload: payload, Rule: rule, Next: rule.Next(b.opts.Now())})
}

func (b *LocalBackend) add(ctx context.Context, reg Scheduled) (string, error) {
	if err := b.EnsurePermission(ctx); err != nil {
		return "", err
	}
	reg.Handle = uuid.New().String()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.regs[reg.Handle] = &reg
	if err := b.persistLocked(ctx); err != nil {
		delete(b.regs, reg.Handle)
		return "", err
	}
	b.log.Debug("trigger registered",
		slog.String("handle", reg.Handle),
		slog.String("alarm_id", reg.Payload.AlarmID),
		slog.String("rule", reg.Rule.String()))
	return reg.Handle, nil
}

// Cancel implements Backend
func (b *LocalBackend) Cancel(ctx context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	reg, ok := b.regs[handle]
	if !ok {
		return nil
	}
	delete(b.regs, handle)
	if err := b.persistLocked(ctx); err != nil {
		b.regs[handle] = reg
		return err
	}
	b.log.Debug("trigger cancelled", slog.String("handle", handle), slog.String("alarm_id", reg.Payload.AlarmID))
	return nil
}

// ListScheduled implements Backend. Results are ordered by next fire time.
func (b *LocalBackend) ListScheduled(_ context.Context) ([]Scheduled, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked(), nil
}

// ListPresented implements Backend
func (b *LocalBackend) ListPresented(_ context.Context) ([]Presented, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.presented), nil
}

// DismissPresented implements Backend. Desktop notifications cannot be
// retracted once shown, so this only forgets the entry.
func (b *LocalBackend) DismissPresented(_ context.Context, handle string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presented = slices.DeleteFunc(b.presented, func(p Presented) bool { return p.Handle == handle })
	return nil
}

// Run fires due triggers until ctx is cancelled
func (b *LocalBackend) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.Tick)
	defer ticker.Stop()

	b.log.Info("trigger loop started", slog.Duration("tick", b.opts.Tick))
	b.FireDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.FireDue(ctx)
		}
	}
}

// FireDue delivers every trigger whose fire time has come. One-shots are
// removed and weekly slots move to their next occurrence. It returns the
// number of deliveries.
func (b *LocalBackend) FireDue(ctx context.Context) int {
	now := b.opts.Now()

	b.mu.Lock()
	var fired []Scheduled
	for handle, reg := range b.regs {
		if reg.Next.IsZero() || reg.Next.After(now) {
			continue
		}
		fired = append(fired, *reg)
		if reg.Rule.Repeats() {
			reg.Next = reg.Rule.After(now)
		} else {
			delete(b.regs, handle)
		}
	}
	if len(fired) == 0 {
		b.mu.Unlock()
		return 0
	}
	slices.SortFunc(fired, func(a, c Scheduled) int { return a.Next.Compare(c.Next) })

	for _, reg := range fired {
		b.presented = slices.DeleteFunc(b.presented, func(p Presented) bool { return p.Handle == reg.Handle })
		b.presented = append(b.presented, Presented{Handle: reg.Handle, Payload: reg.Payload, At: now})
	}
	if err := b.persistLocked(ctx); err != nil {
		// fired triggers are delivered anyway; a stale one-shot on disk would fire again after restart
		b.log.Error("persist triggers after firing", logger.Err(err))
	}
	handler := b.handler
	b.mu.Unlock()

	for _, reg := range fired {
		b.log.Info("trigger fired",
			slog.String("handle", reg.Handle),
			slog.String("alarm_id", reg.Payload.AlarmID),
			slog.Bool("snooze", reg.Payload.Snooze))
		if b.opts.Notifier != nil {
			b.opts.Notifier.Notify(notificationText(reg.Payload))
		}
		if handler != nil {
			handler(ctx, reg.Payload)
		}
	}
	return len(fired)
}

// Tap redelivers a presented notification, as if the user clicked it
func (b *LocalBackend) Tap(ctx context.Context, handle string) error {
	b.mu.Lock()
	i := slices.IndexFunc(b.presented, func(p Presented) bool { return p.Handle == handle })
	if i < 0 {
		b.mu.Unlock()
		return fmt.Errorf("presented %s: %w", handle, models.ErrNotFound)
	}
	payload := b.presented[i].Payload
	handler := b.handler
	b.mu.Unlock()

	if handler != nil {
		handler(ctx, payload)
	}
	return nil
}

// Export writes the current registrations as iCalendar
func (b *LocalBackend) Export(w io.Writer) error {
	b.mu.Lock()
	regs := b.snapshotLocked()
	b.mu.Unlock()
	return Export(w, regs, b.opts.Now())
}

func (b *LocalBackend) snapshotLocked() []Scheduled {
	out := make([]Scheduled, 0, len(b.regs))
	for _, reg := range b.regs {
		out = append(out, *reg)
	}
	slices.SortFunc(out, func(a, c Scheduled) int {
		if n := a.Next.Compare(c.Next); n != 0 {
			return n
		}
		return strings.Compare(a.Handle, c.Handle)
	})
	return out
}

func (b *LocalBackend) persistLocked(ctx context.Context) error {
	if len(b.regs) == 0 {
		if err := b.kv.Delete(ctx, store.KeyTriggers); err != nil {
			return fmt.Errorf("%w: delete %s: %w", models.ErrStorage, store.KeyTriggers, err)
		}
		return nil
	}
	raw, err := marshalCalendar(b.snapshotLocked(), b.opts.Now())
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", models.ErrStorage, store.KeyTriggers, err)
	}
	if err := b.kv.Set(ctx, store.KeyTriggers, raw); err != nil {
		return fmt.Errorf("%w: write %s: %w", models.ErrStorage, store.KeyTriggers, err)
	}
	return nil
}

func notificationText(p models.Payload) (string, string) {
	if p.Snooze {
		return "Alarm (snoozed)", fmt.Sprintf("Solve the %s challenge to turn it off", p.ChallengeKind)
	}
	return "Alarm", fmt.Sprintf("Solve a %s %s challenge to turn it off", p.Difficulty, p.ChallengeKind)
}
