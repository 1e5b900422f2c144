package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known keys.
const (
	KeyUsername = "username"
	KeyUserID   = "user_id"
	KeySalt     = "salt"
	KeyVerifier = "verifier"

	KeyPendingQueue = "pending_queue"
	KeySyncStatus   = "sync_status"
	KeyWatermark    = "last_sync_watermark"
	KeyLastFullSync = "last_full_sync"
)

// GetInt64 reads a decimal integer. A missing key yields 0.
func GetInt64(ctx context.Context, r Repository, key string) (int64, error) {
	b, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("metadata[%s] is not an integer: %w", key, err)
	}
	return v, nil
}

func SetInt64(ctx context.Context, r Repository, key string, v int64) error {
	return r.Set(ctx, key, []byte(strconv.FormatInt(v, 10)))
}

// GetJSON unmarshals the value stored under key into v. It reports false
// when the key is absent.
func GetJSON(ctx context.Context, r Repository, key string, v any) (bool, error) {
	b, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if len(b) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("metadata[%s] is not valid json: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal metadata[%s]: %w", key, err)
	}
	return r.Set(ctx, key, b)
}
