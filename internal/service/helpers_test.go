package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/store"
	"sheetpos/backend/internal/store/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	kv     *memory.Store
	writer *store.Writer
	clock  *fakeClock
	deps   Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kv := memory.New()
	clock := newFakeClock()
	writer := store.NewWriter(kv, nil)
	return &testEnv{
		kv:     kv,
		writer: writer,
		clock:  clock,
		deps:   Deps{Writer: writer, Clock: clock.Now},
	}
}

func (e *testEnv) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.writer.Flush(ctx))
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T {
	return &v
}

// seedSheet creates a roofing-sheet category and one product priced as given.
func seedSheet(t *testing.T, catalog *Catalog, purchase string, selling string, stock int) domain.Product {
	t.Helper()
	ctx := adminCtx()

	categories := catalog.ListCategories(ctx)
	var categoryID string
	for _, category := range categories {
		if category.Kind == domain.KindRoofingSheet {
			categoryID = category.ID
		}
	}
	if categoryID == "" {
		category, err := catalog.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Roofing Sheet", Kind: domain.KindRoofingSheet})
		require.NoError(t, err)
		categoryID = category.ID
	}

	product, err := catalog.CreateProduct(ctx, domain.ProductCreateRequest{
		CategoryID:    categoryID,
		Type:          "Colour Coated",
		Thickness:     "0.45mm",
		Size:          selling + "mm",
		PurchasePrice: dec(purchase),
		SellingPrice:  dec(selling),
		Stock:         stock,
	})
	require.NoError(t, err)
	return product
}
