package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/store"
	"sheetpos/backend/internal/xid"
)

const defaultTopDebtors = 5

// Ledger tracks customers and their credit history.
type Ledger struct {
	deps Deps

	mu        sync.RWMutex
	customers []domain.Customer
}

func NewLedger(deps Deps) *Ledger {
	return &Ledger{deps: deps.withDefaults("ledger")}
}

func (l *Ledger) Load(ctx context.Context) error {
	var customers []domain.Customer
	if err := loadCollection(ctx, l.deps.Writer, store.KeyCustomers, &customers, func(items []domain.Customer) error {
		for _, item := range items {
			if err := domain.ValidateCustomer(item); err != nil {
				return fmt.Errorf("customer %q: %w", item.ID, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	l.mu.Lock()
	l.customers = customers
	l.mu.Unlock()
	return nil
}

func (l *Ledger) ListCustomers(_ context.Context) []domain.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneCustomers(l.customers)
}

func (l *Ledger) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.index(id)
	if idx < 0 {
		return domain.Customer{}, fmt.Errorf("%w: customer %q", ErrNotFound, id)
	}
	return cloneCustomer(l.customers[idx]), nil
}

func (l *Ledger) FindByPhone(_ context.Context, phone string) (domain.Customer, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.phoneIndex(phone)
	if idx < 0 {
		return domain.Customer{}, false
	}
	return cloneCustomer(l.customers[idx]), true
}

// SearchCustomers matches the query against name and phone, case-insensitively.
func (l *Ledger) SearchCustomers(_ context.Context, query string) []domain.Customer {
	query = strings.ToLower(strings.TrimSpace(query))

	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Customer, 0)
	for _, customer := range l.customers {
		if query == "" ||
			strings.Contains(strings.ToLower(customer.Name), query) ||
			strings.Contains(customer.Phone, query) {
			out = append(out, cloneCustomer(customer))
		}
	}
	return out
}

func (l *Ledger) CreateCustomer(_ context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = normalizePhone(req.Phone)
	if err := validateStruct(req); err != nil {
		return domain.Customer{}, err
	}
	if err := requireNonNegative("credit_limit", req.CreditLimit); err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		ID:                xid.New("cus"),
		Name:              req.Name,
		Phone:             req.Phone,
		Address:           strings.TrimSpace(req.Address),
		CreditLimit:       req.CreditLimit,
		OutstandingCredit: decimal.Zero,
		History:           []domain.CreditHistoryItem{},
		CreatedAt:         l.deps.Clock(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if customer.Phone != "" && l.phoneIndex(customer.Phone) >= 0 {
		return domain.Customer{}, fmt.Errorf("%w: phone %s already registered", ErrValidation, customer.Phone)
	}
	l.customers = append(l.customers, customer)
	l.save()
	return cloneCustomer(customer), nil
}

func (l *Ledger) UpdateCustomer(_ context.Context, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.CreditLimit != nil {
		if err := requireNonNegative("credit_limit", *req.CreditLimit); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(id)
	if idx < 0 {
		return nil, nil
	}
	updated := l.customers[idx]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: customer name is required", ErrValidation)
		}
		updated.Name = name
	}
	if req.Phone != nil {
		phone := normalizePhone(*req.Phone)
		if other := l.phoneIndex(phone); phone != "" && other >= 0 && other != idx {
			return nil, fmt.Errorf("%w: phone %s already registered", ErrValidation, phone)
		}
		updated.Phone = phone
	}
	assignTrimmed(&updated.Address, req.Address)
	if req.CreditLimit != nil {
		updated.CreditLimit = *req.CreditLimit
	}

	l.customers[idx] = updated
	l.save()
	out := cloneCustomer(updated)
	return &out, nil
}

func (l *Ledger) DeleteCustomer(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(id)
	if idx < 0 {
		return nil
	}
	if l.customers[idx].OutstandingCredit.IsPositive() {
		l.deps.Logger.Warn("customer deleted with outstanding credit",
			zap.String("customer_id", id),
			zap.String("outstanding", l.customers[idx].OutstandingCredit.String()),
		)
	}
	l.customers = append(l.customers[:idx], l.customers[idx+1:]...)
	l.save()
	return nil
}

// AddCredit records a credit purchase. The credit limit is not enforced.
func (l *Ledger) AddCredit(_ context.Context, id string, req domain.CreditRequest) (*domain.Customer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(id)
	if idx < 0 {
		return nil, nil
	}
	l.appendPurchase(idx, req.Amount, req.DueDate, strings.TrimSpace(req.Notes), "")
	l.save()

	out := cloneCustomer(l.customers[idx])
	return &out, nil
}

// RecordPayment reduces the outstanding balance, flooring it at zero.
// Overpayment is not carried forward.
func (l *Ledger) RecordPayment(_ context.Context, id string, req domain.PaymentRequest) (*domain.Customer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(id)
	if idx < 0 {
		return nil, nil
	}
	customer := &l.customers[idx]
	customer.History = append(customer.History, domain.CreditHistoryItem{
		ID:     xid.New("pay"),
		Date:   l.deps.Clock(),
		Amount: req.Amount,
		Type:   domain.CreditPayment,
		Notes:  strings.TrimSpace(req.Notes),
	})
	customer.OutstandingCredit = maxDecimal(decimal.Zero, customer.OutstandingCredit.Sub(req.Amount))
	l.save()

	out := cloneCustomer(*customer)
	return &out, nil
}

// RecordCheckoutCredit books the unpaid part of an order against the customer
// with the order's phone, creating the customer when none exists.
func (l *Ledger) RecordCheckoutCredit(_ context.Context, order domain.Order) (domain.Customer, error) {
	phone := normalizePhone(order.CustomerPhone)
	if phone == "" || !order.DueAmount.IsPositive() {
		return domain.Customer{}, fmt.Errorf("%w: credit checkout needs a phone and a due amount", ErrValidation)
	}
	notes := "order " + order.ID

	l.mu.Lock()
	defer l.mu.Unlock()

	if idx := l.phoneIndex(phone); idx >= 0 {
		l.appendPurchase(idx, order.DueAmount, order.DueDate, notes, order.ID)
		l.save()
		return cloneCustomer(l.customers[idx]), nil
	}

	now := l.deps.Clock()
	customer := domain.Customer{
		ID:                xid.New("cus"),
		Name:              strings.TrimSpace(order.CustomerName),
		Phone:             phone,
		CreditLimit:       order.DueAmount.Mul(decimal.NewFromInt(2)),
		OutstandingCredit: order.DueAmount,
		TotalPurchases:    1,
		LastPurchaseDate:  &now,
		History: []domain.CreditHistoryItem{{
			ID:      xid.New("crd"),
			Date:    now,
			Amount:  order.DueAmount,
			Type:    domain.CreditPurchase,
			Notes:   notes,
			DueDate: order.DueDate,
			OrderID: order.ID,
		}},
		CreatedAt: now,
	}
	l.customers = append(l.customers, customer)
	l.save()
	l.deps.Logger.Info("credit customer created at checkout",
		zap.String("customer_id", customer.ID),
		zap.String("order_id", order.ID),
		zap.String("due", order.DueAmount.String()),
	)
	return cloneCustomer(customer), nil
}

// TopDebtors returns customers who owe money, largest balance first. Equal
// balances are ordered by customer id.
func (l *Ledger) TopDebtors(_ context.Context, n int) []domain.Customer {
	if n <= 0 {
		n = defaultTopDebtors
	}

	l.mu.RLock()
	debtors := make([]domain.Customer, 0)
	for _, customer := range l.customers {
		if customer.OutstandingCredit.IsPositive() {
			debtors = append(debtors, cloneCustomer(customer))
		}
	}
	l.mu.RUnlock()

	sort.Slice(debtors, func(i, j int) bool {
		if cmp := debtors[i].OutstandingCredit.Cmp(debtors[j].OutstandingCredit); cmp != 0 {
			return cmp > 0
		}
		return debtors[i].ID < debtors[j].ID
	})
	if len(debtors) > n {
		debtors = debtors[:n]
	}
	return debtors
}

// UpcomingDues lists purchase entries due in (now, now+days], soonest first.
func (l *Ledger) UpcomingDues(_ context.Context, days int) []domain.UpcomingDue {
	now := l.deps.Clock()
	horizon := now.Add(time.Duration(days) * 24 * time.Hour)

	return l.collectDues(func(_ domain.Customer, due time.Time) bool {
		return due.After(now) && !due.After(horizon)
	})
}

// OverdueEntries lists purchase entries already due for customers who still
// owe money.
func (l *Ledger) OverdueEntries(_ context.Context) []domain.UpcomingDue {
	now := l.deps.Clock()
	return l.collectDues(func(customer domain.Customer, due time.Time) bool {
		return customer.OutstandingCredit.IsPositive() && !due.After(now)
	})
}

func (l *Ledger) TotalOutstanding(_ context.Context) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := decimal.Zero
	for _, customer := range l.customers {
		total = total.Add(customer.OutstandingCredit)
	}
	return total
}

func (l *Ledger) collectDues(keep func(domain.Customer, time.Time) bool) []domain.UpcomingDue {
	l.mu.RLock()
	out := make([]domain.UpcomingDue, 0)
	for _, customer := range l.customers {
		for _, entry := range customer.History {
			if entry.Type != domain.CreditPurchase || entry.DueDate == nil {
				continue
			}
			if !keep(customer, *entry.DueDate) {
				continue
			}
			out = append(out, domain.UpcomingDue{
				CustomerID:    customer.ID,
				CustomerName:  customer.Name,
				CustomerPhone: customer.Phone,
				Entry:         entry,
			})
		}
	}
	l.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Entry.DueDate.Before(*out[j].Entry.DueDate)
	})
	return out
}

func (l *Ledger) appendPurchase(idx int, amount decimal.Decimal, dueDate *time.Time, notes string, orderID string) {
	now := l.deps.Clock()
	customer := &l.customers[idx]
	customer.History = append(customer.History, domain.CreditHistoryItem{
		ID:      xid.New("crd"),
		Date:    now,
		Amount:  amount,
		Type:    domain.CreditPurchase,
		Notes:   notes,
		DueDate: dueDate,
		OrderID: orderID,
	})
	customer.OutstandingCredit = customer.OutstandingCredit.Add(amount)
	customer.TotalPurchases++
	customer.LastPurchaseDate = &now

	if customer.OverLimit() {
		l.deps.Logger.Warn("customer over credit limit",
			zap.String("customer_id", customer.ID),
			zap.String("outstanding", customer.OutstandingCredit.String()),
			zap.String("limit", customer.CreditLimit.String()),
		)
	}
}

func (l *Ledger) index(id string) int {
	for i := range l.customers {
		if l.customers[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) phoneIndex(phone string) int {
	phone = normalizePhone(phone)
	if phone == "" {
		return -1
	}
	for i := range l.customers {
		if l.customers[i].Phone == phone {
			return i
		}
	}
	return -1
}

func (l *Ledger) save() {
	persist(l.deps.Writer, l.deps.Logger, store.KeyCustomers, l.customers)
}

// normalizePhone keeps digits and a leading plus, so "0812-3456" and
// "0812 3456" match.
func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cloneCustomer(c domain.Customer) domain.Customer {
	c.History = append([]domain.CreditHistoryItem{}, c.History...)
	return c
}

func cloneCustomers(customers []domain.Customer) []domain.Customer {
	out := make([]domain.Customer, 0, len(customers))
	for _, customer := range customers {
		out = append(out, cloneCustomer(customer))
	}
	return out
}
