package schedule

import (
	"time"

	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/borgmon/math-alarm/pkg/notify"
)

// Plan returns the registrations an alarm should have at now. Inactive alarms
// have none. A one-shot fires today when its minute has not passed yet, the
// current minute included, otherwise tomorrow. Each weekday gets its own
// weekly rule; there is no daily rule.
func Plan(alarm models.Alarm, now time.Time) []notify.Rule {
	if !alarm.Active {
		return nil
	}

	if alarm.OneShot() {
		return []notify.Rule{notify.OnceAt(nextOneShot(alarm.TimeOfDay, now))}
	}

	days := models.NormalizeDays(alarm.Days)
	rules := make([]notify.Rule, 0, len(days))
	for _, d := range days {
		rules = append(rules, notify.WeeklyAt(alarm.Hour(), alarm.Minute(), d))
	}
	return rules
}

func nextOneShot(timeOfDay int, now time.Time) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, timeOfDay/60, timeOfDay%60, 0, 0, now.Location())
	if timeOfDay < models.MinuteOfDay(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// NextFire returns the earliest instant any planned rule fires at or after now
func NextFire(alarm models.Alarm, now time.Time) time.Time {
	var next time.Time
	for _, r := range Plan(alarm, now) {
		t := r.Next(now)
		if t.IsZero() {
			continue
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}
