package notify

import (
	"context"
	"time"

	"github.com/borgmon/math-alarm/pkg/models"
)

// Scheduled is a trigger held by a backend
type Scheduled struct {
	Handle  string
	Payload models.Payload
	Rule    Rule
	Next    time.Time // next fire instant, zero if unknown
}

// Presented is a delivered notification that has not been dismissed yet
type Presented struct {
	Handle  string
	Payload models.Payload
	At      time.Time
}

// DeliveryHandler receives the payload of a fired or tapped trigger
type DeliveryHandler func(ctx context.Context, payload models.Payload)

// Backend is the platform facility that wakes the app at a wall-clock time.
// Implementations must keep registrations across restarts.
type Backend interface {
	// EnsurePermission returns models.ErrPermissionDenied when triggers cannot be registered
	EnsurePermission(ctx context.Context) error
	ScheduleOneShot(ctx context.Context, payload models.Payload, at time.Time) (string, error)
	ScheduleRecurringWeekly(ctx context.Context, payload models.Payload, hour, minute int, weekday models.Weekday) (string, error)
	// Cancel removes a registration. Unknown handles are ignored.
	Cancel(ctx context.Context, handle string) error
	ListScheduled(ctx context.Context) ([]Scheduled, error)
	ListPresented(ctx context.Context) ([]Presented, error)
	DismissPresented(ctx context.Context, handle string) error
	// OnDelivery sets the callback invoked when a trigger fires
	OnDelivery(h DeliveryHandler)
}

// Notifier shows a desktop notification
type Notifier interface {
	Notify(title, body string)
}

// ForAlarm filters registrations by alarm id
func ForAlarm(regs []Scheduled, alarmID string) []Scheduled {
	var out []Scheduled
	for _, r := range regs {
		if r.Payload.AlarmID == alarmID {
			out = append(out, r)
		}
	}
	return out
}
