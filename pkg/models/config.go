package models

// Settings ranges
const (
	MinVolume                  = 0
	MaxVolume                  = 100
	MinSnoozeMinutes           = 1
	MaxSnoozeMinutes           = 30
	MinChallengeTimeoutSeconds = 15
	MaxChallengeTimeoutSeconds = 180
)

// DefaultSoundID is the ringtone used when none or an unknown one is selected
const DefaultSoundID = "alarm-clock-short"

// Settings holds the user-facing settings read by the engine
type Settings struct {
	AlarmVolume      int    `json:"alarmVolume"    validate:"min=0,max=100"`  // percent
	SnoozeMinutes    int    `json:"snoozeTime"     validate:"min=1,max=30"`   // minutes
	ChallengeTimeout int    `json:"mathTimeout"    validate:"min=15,max=180"` // seconds
	SoundID          string `json:"soundId"`
	AutoStart        bool   `json:"autoStart"`
}

// DefaultSettings returns the settings used before the user changes anything
func DefaultSettings() Settings {
	return Settings{
		AlarmVolume:      80,
		SnoozeMinutes:    5,
		ChallengeTimeout: 60,
		SoundID:          DefaultSoundID,
	}
}

// Clamped returns a copy with every value forced into its allowed range.
// Zero snooze and timeout values mean "unset" and take the defaults.
func (s Settings) Clamped() Settings {
	def := DefaultSettings()
	s.AlarmVolume = clamp(s.AlarmVolume, MinVolume, MaxVolume)
	if s.SnoozeMinutes == 0 {
		s.SnoozeMinutes = def.SnoozeMinutes
	}
	s.SnoozeMinutes = clamp(s.SnoozeMinutes, MinSnoozeMinutes, MaxSnoozeMinutes)
	if s.ChallengeTimeout == 0 {
		s.ChallengeTimeout = def.ChallengeTimeout
	}
	s.ChallengeTimeout = clamp(s.ChallengeTimeout, MinChallengeTimeoutSeconds, MaxChallengeTimeoutSeconds)
	if s.SoundID == "" {
		s.SoundID = def.SoundID
	}
	return s
}

// ClampSnoozeMinutes forces a snooze duration into 1..30
func ClampSnoozeMinutes(m int) int {
	return clamp(m, MinSnoozeMinutes, MaxSnoozeMinutes)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
