package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of Alarm.TimeOfDay
const MinutesPerDay = 24 * 60

// Weekday is a day tag with the fixed mapping Mon=1 ... Sun=7
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// EveryDay is the pseudo day tag accepted on input and expanded to all seven weekdays
const EveryDay = "Every day"

var weekdayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// AllWeekdays returns Mon..Sun in order
func AllWeekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Valid reports whether w is in 1..7
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// MarshalText implements encoding.TextMarshaler
func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return []byte(weekdayNames[w]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (w *Weekday) UnmarshalText(b []byte) error {
	d, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*w = d
	return nil
}

// TimeWeekday converts to the standard library weekday
func (w Weekday) TimeWeekday() time.Weekday {
	return time.Weekday(int(w) % 7)
}

// WeekdayOf returns the day tag of t in t's location
func WeekdayOf(t time.Time) Weekday {
	wd := t.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return Weekday(wd)
}

// ParseWeekday accepts short or long English day names, case-insensitive
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for i := Monday; i <= Sunday; i++ {
		name := weekdayNames[i]
		if strings.EqualFold(s, name) || strings.EqualFold(s, i.TimeWeekday().String()) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ParseDays converts UI day tags into a normalized weekday set. "Every day" expands to all seven days.
func ParseDays(tags []string) ([]Weekday, error) {
	days := make([]Weekday, 0, len(tags))
	for _, tag := range tags {
		if strings.EqualFold(strings.TrimSpace(tag), EveryDay) {
			return AllWeekdays(), nil
		}
		d, err := ParseWeekday(tag)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return NormalizeDays(days), nil
}

// NormalizeDays sorts and de-duplicates a weekday set, dropping invalid values
func NormalizeDays(days []Weekday) []Weekday {
	out := make([]Weekday, 0, len(days))
	for _, d := range days {
		if d.Valid() && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

// ChallengeKind selects the puzzle shown when the alarm rings
type ChallengeKind string

const (
	ChallengeMath     ChallengeKind = "math"
	ChallengeAlphabet ChallengeKind = "alphabet"
	ChallengeQRCode   ChallengeKind = "qrcode"
)

// ChallengeKinds lists the supported kinds in display order
var ChallengeKinds = []ChallengeKind{ChallengeMath, ChallengeAlphabet, ChallengeQRCode}

// Difficulty of the challenge
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyExpert Difficulty = "Expert"
)

// Difficulties lists the supported difficulties in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert}

// Alarm is a persisted alarm definition
type Alarm struct {
	ID            string        `json:"id"`
	TimeOfDay     int           `json:"time"`          // minutes since midnight, 0..1439
	Days          []Weekday     `json:"days"`          // empty = one-shot
	ChallengeKind ChallengeKind `json:"gameType"`      // math, alphabet, qrcode
	Difficulty    Difficulty    `json:"mathDifficulty"` // Easy..Expert
	Vibrate       bool          `json:"vibrate"`
	SnoozeEnabled bool          `json:"snoozeEnabled"`
	Active        bool          `json:"active"`
}

// AlarmFields is the mutable part of an alarm as submitted by the UI
type AlarmFields struct {
	TimeOfDay     int           `validate:"min=0,max=1439"`
	Days          []Weekday     `validate:"max=7,dive,min=1,max=7"`
	ChallengeKind ChallengeKind `validate:"oneof=math alphabet qrcode"`
	Difficulty    Difficulty    `validate:"oneof=Easy Medium Hard Expert"`
	Vibrate       bool
	SnoozeEnabled bool
}

// Normalized returns a copy with defaults applied and days normalized
func (f AlarmFields) Normalized() AlarmFields {
	if f.ChallengeKind == "" {
		f.ChallengeKind = ChallengeMath
	}
	if f.Difficulty == "" {
		f.Difficulty = DifficultyMedium
	}
	f.Days = NormalizeDays(f.Days)
	return f
}

// Apply copies the fields onto the alarm, keeping ID and Active
func (f AlarmFields) Apply(a *Alarm) {
	a.TimeOfDay = f.TimeOfDay
	a.Days = slices.Clone(f.Days)
	a.ChallengeKind = f.ChallengeKind
	a.Difficulty = f.Difficulty
	a.Vibrate = f.Vibrate
	a.SnoozeEnabled = f.SnoozeEnabled
}

// Fields extracts the mutable part of the alarm
func (a Alarm) Fields() AlarmFields {
	return AlarmFields{
		TimeOfDay:     a.TimeOfDay,
		Days:          slices.Clone(a.Days),
		ChallengeKind: a.ChallengeKind,
		Difficulty:    a.Difficulty,
		Vibrate:       a.Vibrate,
		SnoozeEnabled: a.SnoozeEnabled,
	}
}

// OneShot reports whether the alarm fires once
func (a Alarm) OneShot() bool {
	return len(a.Days) == 0
}

// Hour of the alarm's time of day
func (a Alarm) Hour() int {
	return a.TimeOfDay / 60
}

// Minute of the alarm's time of day
func (a Alarm) Minute() int {
	return a.TimeOfDay % 60
}

// Clone returns a deep copy
func (a Alarm) Clone() Alarm {
	a.Days = slices.Clone(a.Days)
	return a
}

// Payload builds the trigger payload for this alarm
func (a Alarm) Payload() Payload {
	return Payload{
		AlarmID:       a.ID,
		ChallengeKind: a.ChallengeKind,
		Difficulty:    a.Difficulty,
		SnoozeEnabled: a.SnoozeEnabled,
		Vibrate:       a.Vibrate,
		Repeats:       !a.OneShot(),
	}
}

// DaysLabel renders the days for display
func (a Alarm) DaysLabel() string {
	switch len(a.Days) {
	case 0:
		return "Once"
	case 7:
		return EveryDay
	}
	names := make([]string, len(a.Days))
	for i, d := range a.Days {
		names[i] = d.String()
	}
	return strings.Join(names, ", ")
}

// FormatTimeOfDay renders minutes since midnight as HH:MM
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinuteOfDay returns t's minutes since midnight in t's location
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// RoundToMinute rounds a time down to the nearest minute
func RoundToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
