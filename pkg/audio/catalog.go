package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/borgmon/math-alarm/pkg/models"
)

// Sound is a selectable ringtone
type Sound struct {
	ID   string
	Name string
}

// Sounds lists the ringtones offered in settings
var Sounds = []Sound{
	{ID: models.DefaultSoundID, Name: "Alarm Clock"},
	{ID: "funny-alarm", Name: "Funny Alarm"},
	{ID: "oversimplified-alarm", Name: "Oversimplified"},
	{ID: "star-dust-alarm", Name: "Star Dust"},
}

// ResolveSound returns the sound for id, or the default for unknown ids
func ResolveSound(id string) Sound {
	for _, s := range Sounds {
		if s.ID == id {
			return s
		}
	}
	return Sounds[0]
}

// SoundNames returns display names in catalog order
func SoundNames() []string {
	names := make([]string, len(Sounds))
	for i, s := range Sounds {
		names[i] = s.Name
	}
	return names
}

// SoundByName is the inverse of SoundNames
func SoundByName(name string) (Sound, bool) {
	for _, s := range Sounds {
		if s.Name == name {
			return s, true
		}
	}
	return Sound{}, false
}

// loadSound reads <dir>/<id>.wav
func loadSound(dir, id string) (Format, []byte, error) {
	if dir == "" {
		return Format{}, nil, fmt.Errorf("sound %s: no sounds directory", id)
	}
	data, err := os.ReadFile(filepath.Join(dir, id+".wav"))
	if err != nil {
		return Format{}, nil, fmt.Errorf("sound %s: %w", id, err)
	}
	f, samples, err := parseWAV(data)
	if err != nil {
		return Format{}, nil, fmt.Errorf("sound %s: %w", id, err)
	}
	return f, samples, nil
}
