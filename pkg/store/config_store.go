package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
)

// SettingsStore handles user settings persistence under KeySettings
type SettingsStore struct {
	kv  KV
	log *slog.Logger

	mu     sync.RWMutex
	cached *models.Settings
}

// NewSettingsStore creates a new SettingsStore instance
func NewSettingsStore(kv KV, log *slog.Logger) *SettingsStore {
	return &SettingsStore{kv: kv, log: log.With("component", "settings")}
}

// Load returns the stored settings, clamped into range. Missing or unreadable
// settings fall back to defaults so an alarm can always ring.
func (ss *SettingsStore) Load(ctx context.Context) models.Settings {
	ss.mu.RLock()
	if ss.cached != nil {
		s := *ss.cached
		ss.mu.RUnlock()
		return s
	}
	ss.mu.RUnlock()

	s := models.DefaultSettings()
	if _, err := getJSON(ctx, ss.kv, KeySettings, &s); err != nil {
		ss.log.Warn("using default settings", logger.Err(err))
		return models.DefaultSettings()
	}
	s = s.Clamped()

	ss.mu.Lock()
	ss.cached = &s
	ss.mu.Unlock()
	return s
}

// Save validates and persists settings
func (ss *SettingsStore) Save(ctx context.Context, s models.Settings) error {
	if err := models.Validate(s); err != nil {
		return err
	}
	if s.SoundID == "" {
		s.SoundID = models.DefaultSoundID
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if err := setJSON(ctx, ss.kv, KeySettings, s); err != nil {
		return err
	}
	ss.cached = &s
	return nil
}
