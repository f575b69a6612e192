package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/domain"
)

func newTestCart(t *testing.T) (*testEnv, *Catalog, *Cart) {
	t.Helper()
	env := newTestEnv(t)
	catalog := NewCatalog(env.deps, 5)
	return env, catalog, NewCart(env.deps, catalog)
}

func TestCartAddItemDoesNotMerge(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)

	first, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	second, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, cart.Items(ctx), 2)
}

func TestCartAddItemValidation(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)

	_, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = cart.AddItem(ctx, domain.CartLine{ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartItemKeepsProductSnapshot(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)

	_, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = catalog.UpdateProduct(adminCtx(), product.ID, domain.ProductUpdateRequest{SellingPrice: ptr(dec("999"))})
	require.NoError(t, err)

	assert.True(t, dec("1200").Equal(cart.TotalAmount(ctx)))
}

func TestCartUpdateQuantityRejectsNonPositive(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)
	item, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)

	for _, qty := range []int{0, -2} {
		updated, err := cart.UpdateQuantity(ctx, item.ID, qty)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Nil(t, updated)
	}
	assert.Equal(t, 3, cart.Items(ctx)[0].Quantity)

	updated, err := cart.UpdateQuantity(ctx, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Quantity)

	missing, err := cart.UpdateQuantity(ctx, "missing", 2)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCartIncreaseDecrease(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)
	item, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, cart.Decrease(ctx, item.ID).Quantity, "decrease at one is a no-op")
	assert.Equal(t, 2, cart.Increase(ctx, item.ID).Quantity)
	assert.Equal(t, 1, cart.Decrease(ctx, item.ID).Quantity)
	assert.Nil(t, cart.Increase(ctx, "missing"))
}

func TestCartClearResetsDiscount(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)
	_, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, cart.SetDiscount(ctx, dec("100")))

	view := cart.View(ctx)
	assert.True(t, dec("1200").Equal(view.TotalAmount))
	assert.True(t, dec("160").Equal(view.TotalProfit))
	assert.True(t, dec("1100").Equal(view.NetAmount))

	assert.ErrorIs(t, cart.SetDiscount(ctx, dec("-1")), ErrValidation)

	cart.Clear(ctx)
	view = cart.View(ctx)
	assert.Empty(t, view.Items)
	assert.True(t, view.Discount.IsZero())
	assert.True(t, view.TotalAmount.IsZero())
}

func TestCartTotalsMatchItemsUnderRandomOperations(t *testing.T) {
	_, catalog, cart := newTestCart(t)
	ctx := context.Background()

	products := []domain.Product{
		seedSheet(t, catalog, "520", "600", 100),
		seedSheet(t, catalog, "700", "820", 100),
		seedSheet(t, catalog, "10.50", "12.75", 100),
	}

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 300; step++ {
		items := cart.Items(ctx)
		switch op := rng.Intn(4); {
		case op == 0 || len(items) == 0:
			product := products[rng.Intn(len(products))]
			_, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 1 + rng.Intn(5)})
			require.NoError(t, err)
		case op == 1:
			cart.RemoveItem(ctx, items[rng.Intn(len(items))].ID)
		case op == 2:
			_, _ = cart.UpdateQuantity(ctx, items[rng.Intn(len(items))].ID, rng.Intn(8)-2)
		default:
			cart.Decrease(ctx, items[rng.Intn(len(items))].ID)
		}

		expected := decimal.Zero
		for _, item := range cart.Items(ctx) {
			require.GreaterOrEqual(t, item.Quantity, 1)
			expected = expected.Add(item.Product.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		require.True(t, expected.Equal(cart.TotalAmount(ctx)), "step %d: expected %s got %s", step, expected, cart.TotalAmount(ctx))
	}
}

func TestCartRestoresFromSnapshot(t *testing.T) {
	env, catalog, cart := newTestCart(t)
	ctx := context.Background()
	product := seedSheet(t, catalog, "520", "600", 10)
	_, err := cart.AddItem(ctx, domain.CartLine{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, cart.SetDiscount(ctx, dec("50")))
	env.flush(t)

	restored := NewCart(env.deps, catalog)
	require.NoError(t, restored.Load(ctx))
	view := restored.View(ctx)
	assert.Len(t, view.Items, 1)
	assert.True(t, dec("50").Equal(view.Discount))
	assert.True(t, dec("1200").Equal(view.TotalAmount))
}
