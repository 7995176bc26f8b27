package notify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const productID = "-//borgmon//math-alarm//EN"

// Payload properties carried on each VEVENT
const (
	propAlarmID       = "X-MATH-ALARM-ID"
	propGameType      = "X-MATH-ALARM-GAME"
	propDifficulty    = "X-MATH-ALARM-DIFFICULTY"
	propSnoozeEnabled = "X-MATH-ALARM-SNOOZE-ENABLED"
	propVibrate       = "X-MATH-ALARM-VIBRATE"
	propSnooze        = "X-MATH-ALARM-SNOOZE"
)

const floatingFormat = "20060102T150405"

// encodeCalendar writes registrations as VEVENTs. One-shots get a UTC DTSTART;
// weekly slots get a floating DTSTART at their next occurrence plus a weekly RRULE.
func encodeCalendar(w io.Writer, regs []Scheduled, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, r := range regs {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, r.Handle)
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

		switch r.Rule.Kind {
		case RuleOnce:
			ev.Props.SetDateTime(ical.PropDateTimeStart, r.Rule.At.UTC())
		case RuleWeekly:
			start := r.Next
			if start.IsZero() {
				start = r.Rule.Next(stamp)
			}
			setFloating(ev.Props, ical.PropDateTimeStart, start)
			ev.Props.SetRecurrenceRule(&rrule.ROption{
				Freq:      rrule.WEEKLY,
				Byweekday: []rrule.Weekday{rruleWeekdays[r.Rule.Weekday]},
			})
		default:
			return fmt.Errorf("registration %s: unknown rule kind %q", r.Handle, r.Rule.Kind)
		}

		ev.Props.SetText(ical.PropSummary, summary(r))
		setPayload(ev.Props, r.Payload)
		cal.Children = append(cal.Children, ev.Component)
	}

	return ical.NewEncoder(w).Encode(cal)
}

// decodeCalendar reads what encodeCalendar wrote. Weekly times are read in loc.
func decodeCalendar(r io.Reader, loc *time.Location) ([]Scheduled, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode triggers: %w", err)
	}

	var regs []Scheduled
	for _, ev := range cal.Events() {
		reg, err := decodeEvent(ev, loc)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func decodeEvent(ev ical.Event, loc *time.Location) (Scheduled, error) {
	uid, err := ev.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return Scheduled{}, fmt.Errorf("trigger without UID: %w", err)
	}
	start, err := ev.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		return Scheduled{}, fmt.Errorf("trigger %s: %w", uid, err)
	}

	reg := Scheduled{Handle: uid, Payload: payloadOf(ev.Props)}

	opt, err := ev.Props.RecurrenceRule()
	if err != nil {
		return Scheduled{}, fmt.Errorf("trigger %s: %w", uid, err)
	}
	if opt == nil {
		reg.Rule = OnceAt(start)
		reg.Next = reg.Rule.At
		return reg, nil
	}
	if opt.Freq != rrule.WEEKLY {
		return Scheduled{}, fmt.Errorf("trigger %s: unsupported frequency %v", uid, opt.Freq)
	}

	wd := models.WeekdayOf(start)
	if len(opt.Byweekday) > 0 {
		wd = models.Weekday(opt.Byweekday[0].Day() + 1)
	}
	reg.Rule = WeeklyAt(start.Hour(), start.Minute(), wd)
	reg.Next = start
	return reg, nil
}

func setFloating(props ical.Props, name string, t time.Time) {
	prop := ical.NewProp(name)
	prop.SetValueType(ical.ValueDateTime)
	prop.Value = t.Format(floatingFormat)
	props.Set(prop)
}

func setPayload(props ical.Props, p models.Payload) {
	props.SetText(propAlarmID, p.AlarmID)
	props.SetText(propGameType, string(p.ChallengeKind))
	props.SetText(propDifficulty, string(p.Difficulty))
	props.SetText(propSnoozeEnabled, strconv.FormatBool(p.SnoozeEnabled))
	props.SetText(propVibrate, strconv.FormatBool(p.Vibrate))
	props.SetText(propSnooze, strconv.FormatBool(p.Snooze))
}

func payloadOf(props ical.Props) models.Payload {
	text := func(name string) string {
		v, _ := props.Text(name)
		return v
	}
	flag := func(name string) bool {
		v, _ := strconv.ParseBool(text(name))
		return v
	}
	p := models.Payload{
		AlarmID:       text(propAlarmID),
		ChallengeKind: models.ChallengeKind(text(propGameType)),
		Difficulty:    models.Difficulty(text(propDifficulty)),
		SnoozeEnabled: flag(propSnoozeEnabled),
		Vibrate:       flag(propVibrate),
		Snooze:        flag(propSnooze),
	}
	p.Repeats = props.Get(ical.PropRecurrenceRule) != nil
	return p
}

func summary(r Scheduled) string {
	if r.Payload.Snooze {
		return "Snoozed alarm"
	}
	return fmt.Sprintf("Alarm (%s %s)", r.Payload.ChallengeKind, r.Payload.Difficulty)
}

// Export writes regs as an iCalendar document
func Export(w io.Writer, regs []Scheduled, now time.Time) error {
	if len(regs) == 0 {
		return nil
	}
	return encodeCalendar(w, regs, now)
}

func marshalCalendar(regs []Scheduled, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeCalendar(&buf, regs, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
