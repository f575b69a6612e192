package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpos/backend/internal/domain"
)

func commitScenario(t *testing.T, f *checkoutFixture, advance string, phone string) domain.Order {
	t.Helper()
	ctx := context.Background()
	f.fillScenarioCart(t)
	_, err := f.checkout.UpdateForm(ctx, domain.CheckoutFormPatch{
		CustomerName:    ptr("Buyer"),
		CustomerPhone:   ptr(phone),
		DiscountPercent: ptr(dec("10")),
		AdvanceAmount:   ptr(dec(advance)),
	})
	require.NoError(t, err)
	order, err := f.checkout.Commit(ctx)
	require.NoError(t, err)
	return order
}

func TestReportsSummaryWindows(t *testing.T) {
	f := newCheckoutFixture(t)
	reports := NewReports(f.env.deps, f.checkout, f.catalog, f.ledger)
	ctx := context.Background()

	// 2026-03-01: inside the month, outside the week.
	f.env.clock.Advance(-9 * 24 * time.Hour)
	commitScenario(t, f, "1818", "")
	// 2026-03-07: inside the week.
	f.env.clock.Advance(6 * 24 * time.Hour)
	commitScenario(t, f, "1818", "")
	// 2026-03-10: today, on credit.
	f.env.clock.Advance(3 * 24 * time.Hour)
	commitScenario(t, f, "1000", "9000000040")

	summary, err := reports.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Today.Orders)
	assert.Equal(t, 2, summary.Week.Orders)
	assert.Equal(t, 3, summary.Month.Orders)
	assert.True(t, dec("1818").Equal(summary.Today.Total))
	assert.True(t, dec("5454").Equal(summary.Month.Total))
	assert.Equal(t, 1, summary.CustomerCount)
	assert.Equal(t, 1, summary.DebtorCount)
	assert.True(t, dec("818").Equal(summary.TotalOutstanding))
	assert.Equal(t, 6, summary.ProductCount)
	assert.True(t, summary.InventoryRetailValue.GreaterThan(summary.InventoryCostValue))
}

func TestReportsDaily(t *testing.T) {
	f := newCheckoutFixture(t)
	reports := NewReports(f.env.deps, f.checkout, f.catalog, f.ledger)
	ctx := context.Background()

	order := commitScenario(t, f, "1000", "9000000050")
	commitScenario(t, f, "1818", "")
	_, err := f.ledger.RecordPayment(ctx, order.CustomerID, domain.PaymentRequest{Amount: dec("300")})
	require.NoError(t, err)

	report, err := reports.Daily(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", report.Date)
	assert.Equal(t, 2, report.Orders)
	assert.Equal(t, 6, report.ItemsSold)
	assert.True(t, dec("4040").Equal(report.GrossSales))
	assert.True(t, dec("404").Equal(report.Discount))
	assert.True(t, dec("3636").Equal(report.NetSales))
	assert.True(t, dec("2818").Equal(report.Collected))
	assert.True(t, dec("818").Equal(report.CreditIssued))
	assert.True(t, dec("300").Equal(report.PaymentsTaken))
	require.Len(t, report.ByStatus, 2)
	assert.Equal(t, domain.OrderStatusCredit, report.ByStatus[0].Status)

	other, err := reports.Daily(ctx, "2026-03-09")
	require.NoError(t, err)
	assert.Zero(t, other.Orders)

	_, err = reports.Daily(ctx, "10/03/2026")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReportsTopProducts(t *testing.T) {
	f := newCheckoutFixture(t)
	reports := NewReports(f.env.deps, f.checkout, f.catalog, f.ledger)
	ctx := context.Background()

	order := commitScenario(t, f, "1818", "")

	top := reports.TopProducts(ctx, nil, nil, 5)
	require.Len(t, top, 2)
	assert.Equal(t, order.Items[0].Product.ID, top[0].ProductID)
	assert.Equal(t, 2, top[0].Quantity)
	assert.True(t, dec("1200").Equal(top[0].Revenue))
	assert.Len(t, reports.TopProducts(ctx, nil, nil, 1), 1)
}
