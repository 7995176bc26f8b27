package store

import (
	"context"
	"fmt"

	"github.com/borgmon/math-alarm/pkg/models"
)

// SessionStore persists the ringing session so it survives restarts
type SessionStore struct {
	kv KV
}

// NewSessionStore creates a SessionStore on kv
func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Load returns the persisted session, or nil when idle
func (s *SessionStore) Load(ctx context.Context) (*models.RingingSession, error) {
	var session models.RingingSession
	ok, err := getJSON(ctx, s.kv, KeySession, &session)
	if err != nil || !ok {
		return nil, err
	}
	if session.AlarmID == "" {
		return nil, nil
	}
	return &session, nil
}

// Save persists session
func (s *SessionStore) Save(ctx context.Context, session models.RingingSession) error {
	return setJSON(ctx, s.kv, KeySession, session)
}

// Clear removes the persisted session
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeySession); err != nil {
		return fmt.Errorf("%w: delete %s: %w", models.ErrStorage, KeySession, err)
	}
	return nil
}
