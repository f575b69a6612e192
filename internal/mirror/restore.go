package mirror

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sheetpos/backend/internal/store"
)

// Restore copies mirrored documents into kv for every key the local store has
// never written. Keys already present locally are left untouched. It returns
// the keys that were restored.
func Restore(ctx context.Context, kv store.KV, m Mirror, logger *zap.Logger, keys ...string) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	restored := make([]string, 0, len(keys))
	for _, key := range keys {
		_, err := kv.Get(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return restored, fmt.Errorf("read local %s: %w", key, err)
		}

		payload, ok, err := m.Fetch(ctx, key)
		if err != nil {
			return restored, fmt.Errorf("fetch mirrored %s: %w", key, err)
		}
		if !ok {
			continue
		}
		if err := kv.Set(ctx, key, string(payload)); err != nil {
			return restored, fmt.Errorf("restore %s: %w", key, err)
		}
		logger.Info("restored collection from mirror", zap.String("key", key), zap.Int("bytes", len(payload)))
		restored = append(restored, key)
	}
	return restored, nil
}
