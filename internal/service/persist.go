package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sheetpos/backend/internal/store"
)

type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// Deps are shared by every service.
type Deps struct {
	Writer *store.Writer
	Logger *zap.Logger
	Clock  Clock
}

func (d Deps) withDefaults(name string) Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	d.Logger = d.Logger.Named(name)
	if d.Clock == nil {
		d.Clock = systemClock
	}
	return d
}

// loadCollection decodes the document stored under key. A missing key leaves
// dst untouched. check runs on the decoded value so malformed records never
// reach memory.
func loadCollection[T any](ctx context.Context, w *store.Writer, key string, dst *T, check func(T) error) error {
	raw, err := w.Read(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read %s: %w", key, err)
	}
	if raw == "" {
		return nil
	}

	var decoded T
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrMalformedRecord, key, err)
	}
	if check != nil {
		if err := check(decoded); err != nil {
			return fmt.Errorf("%w: %s: %v", store.ErrMalformedRecord, key, err)
		}
	}
	*dst = decoded
	return nil
}

// persist snapshots value and hands it to the writer. Callers hold their lock
// so snapshots for one key are enqueued in mutation order.
func persist(w *store.Writer, logger *zap.Logger, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Error("encode collection failed", zap.String("key", key), zap.Error(err))
		return
	}
	w.Set(key, payload)
}
