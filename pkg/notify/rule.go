package notify

import (
	"fmt"
	"time"

	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/teambition/rrule-go"
)

// RuleKind tells one-shot and weekly triggers apart
type RuleKind string

const (
	RuleOnce   RuleKind = "once"
	RuleWeekly RuleKind = "weekly"
)

// Rule is when a trigger fires. Once rules use At; weekly rules use Hour,
// Minute and Weekday on the local wall clock.
type Rule struct {
	Kind    RuleKind       `json:"kind"`
	At      time.Time      `json:"at,omitempty"`
	Hour    int            `json:"hour,omitempty"`
	Minute  int            `json:"minute,omitempty"`
	Weekday models.Weekday `json:"weekday,omitempty"`
}

// OnceAt returns a one-shot rule at t, truncated to the second
func OnceAt(t time.Time) Rule {
	return Rule{Kind: RuleOnce, At: t.Truncate(time.Second)}
}

// WeeklyAt returns a rule repeating every week on wd at hour:minute
func WeeklyAt(hour, minute int, wd models.Weekday) Rule {
	return Rule{Kind: RuleWeekly, Hour: hour, Minute: minute, Weekday: wd}
}

// Repeats reports whether the rule is weekly
func (r Rule) Repeats() bool {
	return r.Kind == RuleWeekly
}

// Equal compares rules by the instant or weekly slot they describe
func (r Rule) Equal(o Rule) bool {
	if r.Kind != o.Kind {
		return false
	}
	if r.Kind == RuleOnce {
		return r.At.Equal(o.At)
	}
	return r.Hour == o.Hour && r.Minute == o.Minute && r.Weekday == o.Weekday
}

func (r Rule) String() string {
	if r.Kind == RuleOnce {
		return "once " + r.At.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("weekly %s %02d:%02d", r.Weekday, r.Hour, r.Minute)
}

var rruleWeekdays = map[models.Weekday]rrule.Weekday{
	models.Monday:    rrule.MO,
	models.Tuesday:   rrule.TU,
	models.Wednesday: rrule.WE,
	models.Thursday:  rrule.TH,
	models.Friday:    rrule.FR,
	models.Saturday:  rrule.SA,
	models.Sunday:    rrule.SU,
}

// weeklyOption builds the RRULE for a weekly slot anchored at the start of
// the day holding from, in from's location.
func (r Rule) weeklyOption(from time.Time) rrule.ROption {
	y, m, d := from.Date()
	return rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[r.Weekday]},
		Byhour:    []int{r.Hour},
		Byminute:  []int{r.Minute},
		Bysecond:  []int{0},
		Dtstart:   time.Date(y, m, d, 0, 0, 0, 0, from.Location()),
	}
}

// Next returns the first fire time at or after from. A weekly slot whose
// minute is from's minute counts as not yet passed. A zero time means the
// rule is invalid.
func (r Rule) Next(from time.Time) time.Time {
	if r.Kind == RuleOnce {
		return r.At
	}
	if _, ok := rruleWeekdays[r.Weekday]; !ok {
		return time.Time{}
	}
	rule, err := rrule.NewRRule(r.weeklyOption(from))
	if err != nil {
		return time.Time{}
	}
	return rule.After(models.RoundToMinute(from), true)
}

// After returns the first weekly fire strictly after t
func (r Rule) After(t time.Time) time.Time {
	if r.Kind == RuleOnce {
		return time.Time{}
	}
	if _, ok := rruleWeekdays[r.Weekday]; !ok {
		return time.Time{}
	}
	rule, err := rrule.NewRRule(r.weeklyOption(t))
	if err != nil {
		return time.Time{}
	}
	return rule.After(t, false)
}
