package store

import (
	"context"

	"fyne.io/fyne/v2"
)

// PrefsKV stores values in the Fyne application preferences
type PrefsKV struct {
	prefs fyne.Preferences
}

// NewPrefsKV creates a KV backed by the app's preferences
func NewPrefsKV(app fyne.App) *PrefsKV {
	return &PrefsKV{prefs: app.Preferences()}
}

// Get returns the JSON string saved under key
func (p *PrefsKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v := p.prefs.String(key)
	if v == "" {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Set saves value as a string preference
func (p *PrefsKV) Set(_ context.Context, key string, value []byte) error {
	p.prefs.SetString(key, string(value))
	return nil
}

// Delete removes key from preferences
func (p *PrefsKV) Delete(_ context.Context, key string) error {
	p.prefs.RemoveValue(key)
	return nil
}
