package models

import "time"

// Payload travels with every trigger registration. It is the only source the ringing
// machine has for what to present, since the process may restart between scheduling and firing.
type Payload struct {
	AlarmID       string        `json:"alarmId"`
	ChallengeKind ChallengeKind `json:"gameType"`
	Difficulty    Difficulty    `json:"mathDifficulty"`
	SnoozeEnabled bool          `json:"snoozeEnabled"`
	Vibrate       bool          `json:"vibrate"`
	Repeats       bool          `json:"repeats"`  // weekly registration
	Snooze        bool          `json:"isSnooze"` // snooze continuation
}

// SnoozeContinuation returns a copy marked as a snooze continuation
func (p Payload) SnoozeContinuation() Payload {
	p.Snooze = true
	p.Repeats = false
	return p
}

// RingingSession records that an alarm is currently sounding
type RingingSession struct {
	AlarmID   string    `json:"alarmId"`
	StartedAt time.Time `json:"startedAt"`
	Payload   Payload   `json:"payload"`
}
