package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/store"
	"sheetpos/backend/internal/xid"
)

// ProductLookup resolves catalog products for the cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// Cart is the in-progress sale. Totals are derived on every read.
type Cart struct {
	deps    Deps
	catalog ProductLookup

	mu       sync.RWMutex
	items    []domain.CartItem
	discount decimal.Decimal
}

func NewCart(deps Deps, catalog ProductLookup) *Cart {
	return &Cart{
		deps:    deps.withDefaults("cart"),
		catalog: catalog,
	}
}

func (c *Cart) Load(ctx context.Context) error {
	var snapshot domain.CartSnapshot
	if err := loadCollection(ctx, c.deps.Writer, store.KeyCart, &snapshot, func(s domain.CartSnapshot) error {
		for _, item := range s.Items {
			if item.ID == "" || item.Quantity < 1 {
				return fmt.Errorf("cart item %q: invalid quantity %d", item.ID, item.Quantity)
			}
			if err := domain.ValidateProduct(item.Product); err != nil {
				return fmt.Errorf("cart item %q: %w", item.ID, err)
			}
		}
		if s.Discount.IsNegative() {
			return fmt.Errorf("negative cart discount")
		}
		return nil
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.items, c.discount = snapshot.Items, snapshot.Discount
	c.mu.Unlock()
	return nil
}

// AddItem appends a new line with a snapshot of the product. Repeated adds of
// the same product produce separate lines.
func (c *Cart) AddItem(ctx context.Context, line domain.CartLine) (domain.CartItem, error) {
	if err := validateStruct(line); err != nil {
		return domain.CartItem{}, err
	}
	product, err := c.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return domain.CartItem{}, err
	}

	item := domain.CartItem{
		ID:       xid.New("ci"),
		Product:  product,
		Quantity: line.Quantity,
		AddedAt:  c.deps.Clock(),
	}
	if line.Quantity > product.Stock {
		c.deps.Logger.Warn("cart quantity exceeds stock",
			zap.String("product_id", product.ID),
			zap.Int("quantity", line.Quantity),
			zap.Int("stock", product.Stock),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, item)
	c.save()
	return item, nil
}

func (c *Cart) RemoveItem(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.save()
}

// UpdateQuantity sets an absolute quantity. Zero or negative quantities are
// rejected; use RemoveItem to drop a line.
func (c *Cart) UpdateQuantity(_ context.Context, id string, quantity int) (*domain.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return nil, nil
	}
	c.items[idx].Quantity = quantity
	c.save()

	updated := c.items[idx]
	return &updated, nil
}

func (c *Cart) Increase(_ context.Context, id string) *domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return nil
	}
	c.items[idx].Quantity++
	c.save()

	updated := c.items[idx]
	return &updated
}

// Decrease lowers the quantity by one but never below one.
func (c *Cart) Decrease(_ context.Context, id string) *domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return nil
	}
	if c.items[idx].Quantity > 1 {
		c.items[idx].Quantity--
		c.save()
	}

	updated := c.items[idx]
	return &updated
}

func (c *Cart) SetDiscount(_ context.Context, amount decimal.Decimal) error {
	if err := requireNonNegative("discount", amount); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.discount = amount
	c.save()
	return nil
}

func (c *Cart) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.discount = decimal.Zero
	c.save()
}

func (c *Cart) Items(_ context.Context) []domain.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.CartItem(nil), c.items...)
}

func (c *Cart) View(_ context.Context) domain.CartView {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := totalAmount(c.items)
	return domain.CartView{
		Items:       append([]domain.CartItem{}, c.items...),
		ItemCount:   itemCount(c.items),
		TotalAmount: total,
		TotalProfit: totalProfit(c.items),
		Discount:    c.discount,
		NetAmount:   total.Sub(c.discount),
	}
}

func (c *Cart) TotalAmount(_ context.Context) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return totalAmount(c.items)
}

func (c *Cart) TotalProfit(_ context.Context) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return totalProfit(c.items)
}

func (c *Cart) ItemCount(_ context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return itemCount(c.items)
}

func (c *Cart) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) save() {
	persist(c.deps.Writer, c.deps.Logger, store.KeyCart, domain.CartSnapshot{
		Items:    c.items,
		Discount: c.discount,
	})
}

func totalAmount(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func totalProfit(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineProfit())
	}
	return total
}

func itemCount(items []domain.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
