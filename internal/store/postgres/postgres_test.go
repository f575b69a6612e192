package postgres

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestGetReturnsValue(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE key = $1`)).
		WithArgs(store.KeySales).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[]`))

	got, err := s.Get(context.Background(), store.KeySales)
	require.NoError(t, err)
	assert.Equal(t, `[]`, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM kv_entries WHERE key = $1`)).
		WithArgs("cart").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := s.Get(context.Background(), "cart")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUpserts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries (key, value, updated_at)`)).
		WithArgs(store.KeyProducts, `[{"id":"p1"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), store.KeyProducts, `[{"id":"p1"}]`))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPropagatesDriverError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO kv_entries`)).
		WithArgs(store.KeyProducts, `[]`).
		WillReturnError(boom)

	assert.ErrorIs(t, s.Set(context.Background(), store.KeyProducts, `[]`), boom)
}

func TestRemoveAndMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS kv_entries`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv_entries WHERE key = $1`)).
		WithArgs(store.KeyCart).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Remove(context.Background(), store.KeyCart))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreAgainstLiveDatabase(t *testing.T) {
	databaseURL := os.Getenv("SHEETPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SHEETPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Remove(ctx, "it-probe")
		_ = s.Close()
	})

	require.NoError(t, s.Set(ctx, "it-probe", `{"ok":true}`))
	got, err := s.Get(ctx, "it-probe")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, got)
}
