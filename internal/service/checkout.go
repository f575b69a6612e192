package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/store"
	"sheetpos/backend/internal/xid"
)

var hundred = decimal.NewFromInt(100)

type StockDeductor interface {
	DeductStock(ctx context.Context, items []domain.CartItem)
}

type CreditRecorder interface {
	RecordCheckoutCredit(ctx context.Context, order domain.Order) (domain.Customer, error)
}

// Checkout holds the form for the sale being built and the append-only
// sales log.
type Checkout struct {
	deps    Deps
	cart    *Cart
	stock   StockDeductor
	credits CreditRecorder
	receipt receiptFormatter

	commitMu sync.Mutex

	mu     sync.RWMutex
	form   domain.CheckoutForm
	orders []domain.Order
}

func NewCheckout(deps Deps, cart *Cart, stock StockDeductor, credits CreditRecorder, receiptLocale string) *Checkout {
	return &Checkout{
		deps:    deps.withDefaults("checkout"),
		cart:    cart,
		stock:   stock,
		credits: credits,
		receipt: newReceiptFormatter(receiptLocale),
		form:    emptyForm(),
	}
}

func emptyForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		DiscountType:    domain.DiscountPercent,
		DiscountPercent: decimal.Zero,
		DiscountFixed:   decimal.Zero,
		AdvanceAmount:   decimal.Zero,
	}
}

func (c *Checkout) Load(ctx context.Context) error {
	var orders []domain.Order
	if err := loadCollection(ctx, c.deps.Writer, store.KeySales, &orders, func(items []domain.Order) error {
		for _, order := range items {
			if order.ID == "" {
				return fmt.Errorf("order without id")
			}
			due := maxDecimal(decimal.Zero, order.TotalAmount.Sub(order.PaidAmount))
			if !due.Equal(order.DueAmount) {
				return fmt.Errorf("order %q: due %s does not match total %s minus paid %s", order.ID, order.DueAmount, order.TotalAmount, order.PaidAmount)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.orders = orders
	c.mu.Unlock()
	return nil
}

// Calculate derives checkout totals. Discount never drives the total below
// zero and the due amount is never negative.
func Calculate(subTotal decimal.Decimal, profit decimal.Decimal, form domain.CheckoutForm) domain.CheckoutTotals {
	var discount decimal.Decimal
	switch form.DiscountType {
	case domain.DiscountFixed:
		discount = form.DiscountFixed
	default:
		discount = subTotal.Mul(form.DiscountPercent).Div(hundred).Round(2)
	}

	total := maxDecimal(decimal.Zero, subTotal.Sub(discount))
	return domain.CheckoutTotals{
		SubTotal:       subTotal,
		DiscountAmount: discount,
		TotalAmount:    total,
		AdvanceAmount:  form.AdvanceAmount,
		DueAmount:      maxDecimal(decimal.Zero, total.Sub(form.AdvanceAmount)),
		ChangeAmount:   maxDecimal(decimal.Zero, form.AdvanceAmount.Sub(total)),
		Profit:         profit.Sub(discount),
	}
}

func validateForm(form domain.CheckoutForm) error {
	switch form.DiscountType {
	case domain.DiscountPercent, domain.DiscountFixed:
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrValidation, form.DiscountType)
	}
	if form.DiscountPercent.IsNegative() || form.DiscountPercent.GreaterThan(hundred) {
		return fmt.Errorf("%w: discount percent must be between 0 and 100", ErrValidation)
	}
	if err := requireNonNegative("discount_fixed", form.DiscountFixed); err != nil {
		return err
	}
	return requireNonNegative("advance_amount", form.AdvanceAmount)
}

func (c *Checkout) Form(_ context.Context) domain.CheckoutForm {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.form
}

// UpdateForm applies the patch. Switching discount type keeps the value
// stored for the other type.
func (c *Checkout) UpdateForm(_ context.Context, patch domain.CheckoutFormPatch) (domain.CheckoutForm, error) {
	if err := validateStruct(patch); err != nil {
		return domain.CheckoutForm{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	form := c.form
	if patch.CustomerName != nil {
		form.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.CustomerPhone != nil {
		form.CustomerPhone = strings.TrimSpace(*patch.CustomerPhone)
	}
	if patch.DiscountType != nil {
		form.DiscountType = *patch.DiscountType
	}
	if patch.DiscountPercent != nil {
		form.DiscountPercent = *patch.DiscountPercent
	}
	if patch.DiscountFixed != nil {
		form.DiscountFixed = *patch.DiscountFixed
	}
	if patch.AdvanceAmount != nil {
		form.AdvanceAmount = *patch.AdvanceAmount
	}
	if patch.ClearDueDate {
		form.DueDate = nil
	} else if patch.DueDate != nil {
		due := patch.DueDate.UTC()
		form.DueDate = &due
	}
	if patch.Notes != nil {
		form.Notes = strings.TrimSpace(*patch.Notes)
	}
	if err := validateForm(form); err != nil {
		return domain.CheckoutForm{}, err
	}

	c.form = form
	return form, nil
}

func (c *Checkout) ResetForm(_ context.Context) {
	c.mu.Lock()
	c.form = emptyForm()
	c.mu.Unlock()
}

func (c *Checkout) Preview(ctx context.Context) domain.CheckoutPreview {
	view := c.cart.View(ctx)
	form := c.Form(ctx)
	return domain.CheckoutPreview{
		Form:   form,
		Totals: Calculate(view.TotalAmount, view.TotalProfit, form),
		Cart:   view,
	}
}

// Commit turns the cart into an order. The order is recorded first; stock and
// ledger updates follow and their failures are logged without rolling the
// order back.
func (c *Checkout) Commit(ctx context.Context) (domain.Order, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	items := c.cart.Items(ctx)
	if len(items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	form := c.Form(ctx)
	if strings.TrimSpace(form.CustomerName) == "" {
		return domain.Order{}, fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	if err := validateForm(form); err != nil {
		return domain.Order{}, err
	}

	totals := Calculate(totalAmount(items), totalProfit(items), form)
	order := domain.Order{
		ID:             xid.New("ord"),
		CreatedAt:      c.deps.Clock(),
		CustomerName:   form.CustomerName,
		CustomerPhone:  normalizePhone(form.CustomerPhone),
		Items:          items,
		SubTotal:       totals.SubTotal,
		DiscountType:   form.DiscountType,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.TotalAmount,
		PaidAmount:     decimal.Min(form.AdvanceAmount, totals.TotalAmount),
		DueAmount:      totals.DueAmount,
		Profit:         totals.Profit,
		DueDate:        form.DueDate,
		Notes:          form.Notes,
		Status:         domain.OrderStatusPaid,
	}
	if order.DueAmount.IsPositive() {
		order.Status = domain.OrderStatusCredit
	}

	c.mu.Lock()
	c.orders = append(c.orders, order)
	idx := len(c.orders) - 1
	c.mu.Unlock()

	c.stock.DeductStock(ctx, items)

	if order.DueAmount.IsPositive() {
		if order.CustomerPhone == "" {
			c.deps.Logger.Warn("credit order without phone, not booked to ledger",
				zap.String("order_id", order.ID),
				zap.String("due", order.DueAmount.String()),
			)
		} else if customer, err := c.credits.RecordCheckoutCredit(ctx, order); err != nil {
			c.deps.Logger.Error("ledger update failed after order commit",
				zap.String("order_id", order.ID),
				zap.String("phone", order.CustomerPhone),
				zap.Error(err),
			)
		} else {
			order.CustomerID = customer.ID
		}
	}

	c.mu.Lock()
	c.orders[idx] = order
	c.saveOrders()
	c.form = emptyForm()
	c.mu.Unlock()

	c.cart.Clear(ctx)

	c.deps.Logger.Info("order committed",
		zap.String("order_id", order.ID),
		zap.String("status", order.Status),
		zap.String("total", order.TotalAmount.String()),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

// ListOrders returns matching orders, newest first.
func (c *Checkout) ListOrders(_ context.Context, filter domain.OrderFilter) []domain.Order {
	phone := normalizePhone(filter.CustomerPhone)

	c.mu.RLock()
	out := make([]domain.Order, 0, len(c.orders))
	for _, order := range c.orders {
		if filter.From != nil && order.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !order.CreatedAt.Before(*filter.To) {
			continue
		}
		if phone != "" && order.CustomerPhone != phone {
			continue
		}
		out = append(out, order)
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func (c *Checkout) GetOrder(_ context.Context, id string) (domain.Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, order := range c.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return domain.Order{}, fmt.Errorf("%w: order %q", ErrNotFound, id)
}

func (c *Checkout) saveOrders() {
	persist(c.deps.Writer, c.deps.Logger, store.KeySales, c.orders)
}
