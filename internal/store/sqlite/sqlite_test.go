package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/store"
)

func TestStoreRoundTripAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pos.db")

	s, err := New(ctx, path)
	require.NoError(t, err)

	_, err = s.Get(ctx, store.KeyCustomers)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, store.KeyCustomers, `[{"id":"a"}]`))
	require.NoError(t, s.Set(ctx, store.KeyCustomers, `[{"id":"b"}]`))
	require.NoError(t, s.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, store.KeyCustomers)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"b"}]`, got)

	require.NoError(t, reopened.Remove(ctx, store.KeyCustomers))
	_, err = reopened.Get(ctx, store.KeyCustomers)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
