package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"sheetpos/backend/internal/domain"
)

const dateLayout = "2006-01-02"

type OrderSource interface {
	ListOrders(ctx context.Context, filter domain.OrderFilter) []domain.Order
}

type ProductSource interface {
	ListProducts(ctx context.Context, categoryID string) []domain.Product
}

type CustomerSource interface {
	ListCustomers(ctx context.Context) []domain.Customer
}

// Reports aggregates read-only views over the other services.
type Reports struct {
	deps      Deps
	orders    OrderSource
	products  ProductSource
	customers CustomerSource
}

func NewReports(deps Deps, orders OrderSource, products ProductSource, customers CustomerSource) *Reports {
	return &Reports{
		deps:      deps.withDefaults("reports"),
		orders:    orders,
		products:  products,
		customers: customers,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Summary covers today, the last seven days including today and the month to
// date.
func (r *Reports) Summary(ctx context.Context) (domain.DashboardSummary, error) {
	now := r.deps.Clock()
	today := startOfDay(now)
	weekStart := today.AddDate(0, 0, -6)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	from := weekStart
	if monthStart.Before(from) {
		from = monthStart
	}

	var (
		orders    []domain.Order
		products  []domain.Product
		customers []domain.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders = r.orders.ListOrders(gctx, domain.OrderFilter{From: &from})
		return gctx.Err()
	})
	g.Go(func() error {
		products = r.products.ListProducts(gctx, "")
		return gctx.Err()
	})
	g.Go(func() error {
		customers = r.customers.ListCustomers(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := domain.DashboardSummary{
		GeneratedAt:          now.Format(time.RFC3339),
		Today:                emptyWindow(),
		Week:                 emptyWindow(),
		Month:                emptyWindow(),
		InventoryCostValue:   decimal.Zero,
		InventoryRetailValue: decimal.Zero,
		TotalOutstanding:     decimal.Zero,
	}
	for _, order := range orders {
		if !order.CreatedAt.Before(today) {
			addToWindow(&summary.Today, order)
		}
		if !order.CreatedAt.Before(weekStart) {
			addToWindow(&summary.Week, order)
		}
		if !order.CreatedAt.Before(monthStart) {
			addToWindow(&summary.Month, order)
		}
	}

	summary.ProductCount = len(products)
	for _, product := range products {
		stock := decimal.NewFromInt(int64(product.Stock))
		summary.InventoryCostValue = summary.InventoryCostValue.Add(product.PurchasePrice.Mul(stock))
		summary.InventoryRetailValue = summary.InventoryRetailValue.Add(product.SellingPrice.Mul(stock))
		if product.IsLowStock() {
			summary.LowStockCount++
		}
		if product.Stock == 0 {
			summary.OutOfStockCount++
		}
	}

	summary.CustomerCount = len(customers)
	for _, customer := range customers {
		if customer.OutstandingCredit.IsPositive() {
			summary.DebtorCount++
			summary.TotalOutstanding = summary.TotalOutstanding.Add(customer.OutstandingCredit)
		}
	}
	return summary, nil
}

func emptyWindow() domain.SalesWindow {
	return domain.SalesWindow{Total: decimal.Zero, Profit: decimal.Zero}
}

func addToWindow(w *domain.SalesWindow, order domain.Order) {
	w.Orders++
	w.Total = w.Total.Add(order.TotalAmount)
	w.Profit = w.Profit.Add(order.Profit)
}

// ParseReportDate parses YYYY-MM-DD in the clock's location; blank means today.
func (r *Reports) ParseReportDate(raw string) (time.Time, error) {
	now := r.deps.Clock()
	if strings.TrimSpace(raw) == "" {
		return startOfDay(now), nil
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return day, nil
}

func (r *Reports) Daily(ctx context.Context, date string) (domain.DailyReport, error) {
	day, err := r.ParseReportDate(date)
	if err != nil {
		return domain.DailyReport{}, err
	}
	next := day.AddDate(0, 0, 1)

	var (
		orders    []domain.Order
		customers []domain.Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		orders = r.orders.ListOrders(gctx, domain.OrderFilter{From: &day, To: &next})
		return gctx.Err()
	})
	g.Go(func() error {
		customers = r.customers.ListCustomers(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return domain.DailyReport{}, err
	}

	report := domain.DailyReport{
		Date:          day.Format(dateLayout),
		GrossSales:    decimal.Zero,
		Discount:      decimal.Zero,
		NetSales:      decimal.Zero,
		Collected:     decimal.Zero,
		CreditIssued:  decimal.Zero,
		Profit:        decimal.Zero,
		ByStatus:      []domain.DailyReportStatus{},
		PaymentsTaken: decimal.Zero,
	}
	byStatus := make(map[string]*domain.DailyReportStatus)
	for _, order := range orders {
		report.Orders++
		report.ItemsSold += order.ItemQuantity()
		report.GrossSales = report.GrossSales.Add(order.SubTotal)
		report.Discount = report.Discount.Add(order.DiscountAmount)
		report.NetSales = report.NetSales.Add(order.TotalAmount)
		report.Collected = report.Collected.Add(order.PaidAmount)
		report.CreditIssued = report.CreditIssued.Add(order.DueAmount)
		report.Profit = report.Profit.Add(order.Profit)

		entry, ok := byStatus[order.Status]
		if !ok {
			entry = &domain.DailyReportStatus{Status: order.Status, Total: decimal.Zero}
			byStatus[order.Status] = entry
		}
		entry.Orders++
		entry.Total = entry.Total.Add(order.TotalAmount)
	}
	for _, entry := range byStatus {
		report.ByStatus = append(report.ByStatus, *entry)
	}
	sort.Slice(report.ByStatus, func(i, j int) bool {
		return report.ByStatus[i].Status < report.ByStatus[j].Status
	})

	for _, customer := range customers {
		for _, entry := range customer.History {
			if entry.Type == domain.CreditPayment && !entry.Date.Before(day) && entry.Date.Before(next) {
				report.PaymentsTaken = report.PaymentsTaken.Add(entry.Amount)
			}
		}
	}
	return report, nil
}

// TopProducts ranks products by quantity sold in [from, to).
func (r *Reports) TopProducts(ctx context.Context, from *time.Time, to *time.Time, n int) []domain.TopProduct {
	if n <= 0 {
		n = 10
	}

	totals := make(map[string]*domain.TopProduct)
	for _, order := range r.orders.ListOrders(ctx, domain.OrderFilter{From: from, To: to}) {
		for _, item := range order.Items {
			entry, ok := totals[item.Product.ID]
			if !ok {
				entry = &domain.TopProduct{ProductID: item.Product.ID, Label: item.Product.Label(), Revenue: decimal.Zero}
				totals[item.Product.ID] = entry
			}
			entry.Quantity += item.Quantity
			entry.Revenue = entry.Revenue.Add(item.LineTotal())
		}
	}

	out := make([]domain.TopProduct, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if cmp := out[i].Revenue.Cmp(out[j].Revenue); cmp != 0 {
			return cmp > 0
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
