package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/domain"
)

type checkoutFixture struct {
	env      *testEnv
	catalog  *Catalog
	cart     *Cart
	ledger   *Ledger
	checkout *Checkout
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	env := newTestEnv(t)
	catalog := NewCatalog(env.deps, 5)
	cart := NewCart(env.deps, catalog)
	ledger := NewLedger(env.deps)
	return &checkoutFixture{
		env:      env,
		catalog:  catalog,
		cart:     cart,
		ledger:   ledger,
		checkout: NewCheckout(env.deps, cart, catalog, ledger, "en"),
	}
}

// fillScenarioCart builds 600x2 + 820x1.
func (f *checkoutFixture) fillScenarioCart(t *testing.T) (domain.Product, domain.Product) {
	t.Helper()
	ctx := context.Background()
	a := seedSheet(t, f.catalog, "520", "600", 10)
	b := seedSheet(t, f.catalog, "700", "820", 10)
	_, err := f.cart.AddItem(ctx, domain.CartLine{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, domain.CartLine{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)
	return a, b
}

func TestCalculateScenario(t *testing.T) {
	totals := Calculate(dec("2020"), dec("280"), domain.CheckoutForm{
		DiscountType:    domain.DiscountPercent,
		DiscountPercent: dec("10"),
		DiscountFixed:   dec("50"),
		AdvanceAmount:   dec("1000"),
	})

	assert.True(t, dec("2020").Equal(totals.SubTotal))
	assert.True(t, dec("202").Equal(totals.DiscountAmount))
	assert.True(t, dec("1818").Equal(totals.TotalAmount))
	assert.True(t, dec("818").Equal(totals.DueAmount))
	assert.True(t, totals.ChangeAmount.IsZero())
	assert.True(t, dec("78").Equal(totals.Profit))
}

func TestCalculateDueNeverNegative(t *testing.T) {
	subTotals := []string{"0", "1", "2020", "99999.99"}
	discounts := []domain.CheckoutForm{
		{DiscountType: domain.DiscountPercent, DiscountPercent: dec("0")},
		{DiscountType: domain.DiscountPercent, DiscountPercent: dec("100")},
		{DiscountType: domain.DiscountFixed, DiscountFixed: dec("0")},
		{DiscountType: domain.DiscountFixed, DiscountFixed: dec("5000000")},
	}
	advances := []string{"0", "1", "1818", "1000000"}

	for _, sub := range subTotals {
		for _, form := range discounts {
			for _, advance := range advances {
				form.AdvanceAmount = dec(advance)
				totals := Calculate(dec(sub), decimal.Zero, form)
				assert.False(t, totals.TotalAmount.IsNegative(), "total sub=%s form=%+v", sub, form)
				assert.False(t, totals.DueAmount.IsNegative(), "due sub=%s form=%+v", sub, form)
				assert.False(t, totals.ChangeAmount.IsNegative())
			}
		}
	}
}

func TestCalculateFixedDiscountCannotGoBelowZero(t *testing.T) {
	totals := Calculate(dec("100"), dec("20"), domain.CheckoutForm{
		DiscountType:  domain.DiscountFixed,
		DiscountFixed: dec("150"),
		AdvanceAmount: dec("10"),
	})
	assert.True(t, totals.TotalAmount.IsZero())
	assert.True(t, totals.DueAmount.IsZero())
	assert.True(t, dec("10").Equal(totals.ChangeAmount))
}

func TestUpdateFormKeepsInactiveDiscount(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
		DiscountPercent: ptr(dec("10")),
		DiscountFixed:   ptr(dec("75")),
	})
	require.NoError(t, err)

	form, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{DiscountType: ptr(domain.DiscountFixed)})
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountFixed, form.DiscountType)
	assert.True(t, dec("10").Equal(form.DiscountPercent))
	assert.True(t, dec("75").Equal(form.DiscountFixed))
}

func TestUpdateFormRejectsBadInput(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	for name, patch := range map[string]domain.CheckoutFormPatch{
		"percent over 100": {DiscountPercent: ptr(dec("101"))},
		"negative percent": {DiscountPercent: ptr(dec("-1"))},
		"negative fixed":   {DiscountFixed: ptr(dec("-5"))},
		"negative advance": {AdvanceAmount: ptr(dec("-5"))},
		"unknown type":     {DiscountType: ptr(domain.DiscountType("coupon"))},
	} {
		_, err := f.checkout.UpdateForm(ctx, patch)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
	assert.Equal(t, emptyForm(), f.checkout.Form(ctx))
}

func TestCommitFailsClosed(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{CustomerName: ptr("Ravi")})
	require.NoError(t, err)
	_, err = f.checkout.Commit(ctx)
	assert.ErrorIs(t, err, ErrValidation, "empty cart")

	f.fillScenarioCart(t)
	_, err = f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{CustomerName: ptr("   ")})
	require.NoError(t, err)
	_, err = f.checkout.Commit(ctx)
	assert.ErrorIs(t, err, ErrValidation, "blank name")

	assert.Len(t, f.cart.Items(ctx), 2, "cart untouched")
	assert.Empty(t, f.checkout.ListOrders(ctx, domain.OrderFilter{}))
}

func TestCommitScenarioCreatesCreditCustomer(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	a, b := f.fillScenarioCart(t)

	due := f.env.clock.Now().AddDate(0, 0, 14)
	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
		CustomerName:    ptr("Ravi Kumar"),
		CustomerPhone:   ptr("98400 12345"),
		DiscountType:    ptr(domain.DiscountPercent),
		DiscountPercent: ptr(dec("10")),
		AdvanceAmount:   ptr(dec("1000")),
		DueDate:         &due,
	})
	require.NoError(t, err)

	preview := f.checkout.Preview(ctx)
	assert.True(t, dec("818").Equal(preview.Totals.DueAmount))

	order, err := f.checkout.Commit(ctx)
	require.NoError(t, err)

	assert.True(t, dec("2020").Equal(order.SubTotal))
	assert.True(t, dec("202").Equal(order.DiscountAmount))
	assert.True(t, dec("1818").Equal(order.TotalAmount))
	assert.True(t, dec("1000").Equal(order.PaidAmount))
	assert.True(t, dec("818").Equal(order.DueAmount))
	assert.Equal(t, domain.OrderStatusCredit, order.Status)
	assert.Equal(t, 3, order.ItemQuantity())
	assert.NotEmpty(t, order.CustomerID)

	customer, ok := f.ledger.FindByPhone(ctx, "9840012345")
	require.True(t, ok)
	assert.Equal(t, order.CustomerID, customer.ID)
	assert.Equal(t, "Ravi Kumar", customer.Name)
	assert.True(t, dec("818").Equal(customer.OutstandingCredit))
	assert.True(t, dec("1636").Equal(customer.CreditLimit))
	require.Len(t, customer.History, 1)
	assert.Equal(t, domain.CreditPurchase, customer.History[0].Type)
	assert.Equal(t, order.ID, customer.History[0].OrderID)
	require.NotNil(t, customer.History[0].DueDate)
	assert.True(t, due.Equal(*customer.History[0].DueDate))

	assert.Empty(t, f.cart.Items(ctx))
	assert.Equal(t, emptyForm(), f.checkout.Form(ctx))

	gotA, err := f.catalog.GetProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, gotA.Stock)
	gotB, err := f.catalog.GetProduct(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, gotB.Stock)

	stored, err := f.checkout.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.CustomerID, stored.CustomerID)
}

func TestCommitAppendsToExistingCustomer(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	existing, err := f.ledger.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Meena", Phone: "9000000001", CreditLimit: dec("5000")})
	require.NoError(t, err)
	_, err = f.ledger.AddCredit(ctx, existing.ID, domain.CreditRequest{Amount: dec("500")})
	require.NoError(t, err)

	f.fillScenarioCart(t)
	_, err = f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
		CustomerName:  ptr("Meena"),
		CustomerPhone: ptr("9000000001"),
		AdvanceAmount: ptr(dec("2000")),
	})
	require.NoError(t, err)

	order, err := f.checkout.Commit(ctx)
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(order.DueAmount))

	customer, err := f.ledger.GetCustomer(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, dec("520").Equal(customer.OutstandingCredit))
	assert.Len(t, customer.History, 2)
	assert.Equal(t, 2, customer.TotalPurchases)
	assert.True(t, dec("5000").Equal(customer.CreditLimit))
	assert.Len(t, f.ledger.ListCustomers(ctx), 1)
}

func TestCommitPaidInFullSkipsLedger(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.fillScenarioCart(t)

	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
		CustomerName:  ptr("Walk-in"),
		CustomerPhone: ptr("9000000002"),
		AdvanceAmount: ptr(dec("2100")),
	})
	require.NoError(t, err)

	order, err := f.checkout.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.True(t, order.DueAmount.IsZero())
	assert.True(t, dec("2020").Equal(order.PaidAmount))
	assert.Empty(t, f.ledger.ListCustomers(ctx))
}

func TestListOrdersFilters(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()

	commit := func(phone string) domain.Order {
		f.fillScenarioCart(t)
		_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
			CustomerName:  ptr("Buyer"),
			CustomerPhone: ptr(phone),
			AdvanceAmount: ptr(dec("5000")),
		})
		require.NoError(t, err)
		order, err := f.checkout.Commit(ctx)
		require.NoError(t, err)
		return order
	}

	first := commit("111")
	f.env.clock.Advance(24 * time.Hour)
	second := commit("222")

	all := f.checkout.ListOrders(ctx, domain.OrderFilter{})
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	byPhone := f.checkout.ListOrders(ctx, domain.OrderFilter{CustomerPhone: "111"})
	require.Len(t, byPhone, 1)
	assert.Equal(t, first.ID, byPhone[0].ID)

	from := f.env.clock.Now().Add(-time.Hour)
	recent := f.checkout.ListOrders(ctx, domain.OrderFilter{From: &from})
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].ID)

	_, err := f.checkout.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSalesLogSurvivesReload(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.fillScenarioCart(t)
	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{CustomerName: ptr("Buyer"), AdvanceAmount: ptr(dec("2020"))})
	require.NoError(t, err)
	order, err := f.checkout.Commit(ctx)
	require.NoError(t, err)
	f.env.flush(t)

	reloaded := NewCheckout(f.env.deps, f.cart, f.catalog, f.ledger, "en")
	require.NoError(t, reloaded.Load(ctx))
	got, err := reloaded.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
}

func TestReceiptEscpos(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	f.fillScenarioCart(t)
	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
		CustomerName:    ptr("Ravi"),
		DiscountPercent: ptr(dec("10")),
		AdvanceAmount:   ptr(dec("1000")),
	})
	require.NoError(t, err)
	order, err := f.checkout.Commit(ctx)
	require.NoError(t, err)

	receipt, err := f.checkout.Receipt(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt-"+order.ID+".bin", receipt.FileName)
	assert.Contains(t, receipt.PreviewText, "1,818.00")
	assert.Contains(t, receipt.PreviewText, "818.00")

	raw, err := base64.StdEncoding.DecodeString(receipt.EscposBase64)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1b, 0x40}, raw[:2])
	assert.Equal(t, []byte{0x1d, 0x56, 0x41, 0x10}, raw[len(raw)-4:])

	_, err = f.checkout.Receipt(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
