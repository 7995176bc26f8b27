package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/borgmon/math-alarm/pkg/models"
)

// Keys used in the persistent store
const (
	KeyAlarms   = "alarms"
	KeySettings = "settings"
	KeySession  = "activeAlarm"
	KeyTriggers = "triggers"
)

// KV is durable key-value storage for JSON blobs
type KV interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// getJSON decodes the value at key into v. It reports false when the key is absent.
func getJSON(ctx context.Context, kv KV, key string, v any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %w", models.ErrStorage, key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", models.ErrStorage, key, err)
	}
	return true, nil
}

func setJSON(ctx context.Context, kv KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", models.ErrStorage, key, err)
	}
	if err := kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("%w: write %s: %w", models.ErrStorage, key, err)
	}
	return nil
}
