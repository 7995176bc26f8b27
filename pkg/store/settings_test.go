package store

import (
	"context"
	"testing"
	"time"

	"github.com/borgmon/math-alarm/pkg/logger"
	"github.com/borgmon/math-alarm/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsStore(t *testing.T) {
	ctx := context.Background()
	kv := openTestBadger(t)

	ss := NewSettingsStore(kv, logger.Discard())
	assert.Equal(t, models.DefaultSettings(), ss.Load(ctx))

	s := models.DefaultSettings()
	s.AlarmVolume = 40
	s.SnoozeMinutes = 10
	require.NoError(t, ss.Save(ctx, s))

	fresh := NewSettingsStore(kv, logger.Discard())
	assert.Equal(t, s, fresh.Load(ctx))

	s.SnoozeMinutes = 45
	assert.ErrorIs(t, ss.Save(ctx, s), models.ErrValidation)
}

func TestSettingsStore_ClampsStoredValues(t *testing.T) {
	ctx := context.Background()
	kv := openTestBadger(t)
	require.NoError(t, kv.Set(ctx, KeySettings, []byte(`{"alarmVolume":150,"snoozeTime":0,"mathTimeout":5}`)))

	got := NewSettingsStore(kv, logger.Discard()).Load(ctx)
	assert.Equal(t, models.MaxVolume, got.AlarmVolume)
	assert.Equal(t, models.DefaultSettings().SnoozeMinutes, got.SnoozeMinutes)
	assert.Equal(t, models.MinChallengeTimeoutSeconds, got.ChallengeTimeout)
}

func TestSettingsStore_CorruptFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	kv := openTestBadger(t)
	require.NoError(t, kv.Set(ctx, KeySettings, []byte(`{not json`)))

	assert.Equal(t, models.DefaultSettings(), NewSettingsStore(kv, logger.Discard()).Load(ctx))
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	ss := NewSessionStore(openTestBadger(t))

	got, err := ss.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	session := models.RingingSession{
		AlarmID:   "a1",
		StartedAt: time.Date(2026, 10, 12, 7, 30, 0, 0, time.UTC),
		Payload:   models.Payload{AlarmID: "a1", ChallengeKind: models.ChallengeMath, Difficulty: models.DifficultyHard},
	}
	require.NoError(t, ss.Save(ctx, session))

	got, err = ss.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.AlarmID, got.AlarmID)
	assert.True(t, session.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, session.Payload, got.Payload)

	require.NoError(t, ss.Clear(ctx))
	got, err = ss.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
