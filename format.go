package main

import (
	"fmt"
	"strconv"

	"github.com/borgmon/math-alarm/pkg/models"
)

// parseTimeOfDay is the inverse of models.FormatTimeOfDay for the two select boxes
func parseTimeOfDay(hour, minute string) (int, error) {
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: hour %q", models.ErrValidation, hour)
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: minute %q", models.ErrValidation, minute)
	}
	return h*60 + m, nil
}

// describeAlarm is the one-line summary used by the tray, the list and the CLI
func describeAlarm(a models.Alarm) string {
	state := "on"
	if !a.Active {
		state = "off"
	}
	return fmt.Sprintf("%s  %s  %s/%s  [%s]",
		models.FormatTimeOfDay(a.TimeOfDay), a.DaysLabel(), a.ChallengeKind, a.Difficulty, state)
}

// dayOptions are the check boxes of the alarm form
func dayOptions() []string {
	opts := []string{models.EveryDay}
	for _, d := range models.AllWeekdays() {
		opts = append(opts, d.String())
	}
	return opts
}

// selectedDays maps the alarm's days back onto dayOptions
func selectedDays(days []models.Weekday) []string {
	if len(days) == 7 {
		return []string{models.EveryDay}
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.String())
	}
	return out
}

func numberOptions(from, to int, width int) []string {
	opts := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		opts = append(opts, fmt.Sprintf("%0*d", width, i))
	}
	return opts
}

func kindOptions() []string {
	opts := make([]string, len(models.ChallengeKinds))
	for i, k := range models.ChallengeKinds {
		opts[i] = string(k)
	}
	return opts
}

func difficultyOptions() []string {
	opts := make([]string, len(models.Difficulties))
	for i, d := range models.Difficulties {
		opts[i] = string(d)
	}
	return opts
}

// truncateString truncates a string to maxLen runes, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
