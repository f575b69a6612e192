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

// Catalog owns categories, companies and products.
type Catalog struct {
	deps            Deps
	lowStockDefault int

	mu         sync.RWMutex
	categories []domain.Category
	companies  []domain.Company
	products   []domain.Product
}

func NewCatalog(deps Deps, lowStockDefault int) *Catalog {
	if lowStockDefault < 0 {
		lowStockDefault = 0
	}
	return &Catalog{
		deps:            deps.withDefaults("catalog"),
		lowStockDefault: lowStockDefault,
	}
}

func (c *Catalog) Load(ctx context.Context) error {
	var (
		categories []domain.Category
		companies  []domain.Company
		products   []domain.Product
	)

	if err := loadCollection(ctx, c.deps.Writer, store.KeyCategories, &categories, func(items []domain.Category) error {
		for _, item := range items {
			if item.ID == "" || !item.Kind.Valid() {
				return fmt.Errorf("category %q: invalid kind %q", item.ID, item.Kind)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if err := loadCollection(ctx, c.deps.Writer, store.KeyCompanies, &companies, nil); err != nil {
		return err
	}
	if err := loadCollection(ctx, c.deps.Writer, store.KeyProducts, &products, func(items []domain.Product) error {
		for _, item := range items {
			if err := domain.ValidateProduct(item); err != nil {
				return fmt.Errorf("product %q: %w", item.ID, err)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.categories, c.companies, c.products = categories, companies, products
	c.mu.Unlock()

	c.deps.Logger.Info("catalog loaded",
		zap.Int("categories", len(categories)),
		zap.Int("companies", len(companies)),
		zap.Int("products", len(products)),
	)
	return nil
}

func (c *Catalog) ListCategories(_ context.Context) []domain.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Category(nil), c.categories...)
}

func (c *Catalog) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Category{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return domain.Category{}, err
	}

	category := domain.Category{
		ID:        xid.New("cat"),
		Name:      req.Name,
		Kind:      req.Kind,
		CreatedAt: c.deps.Clock(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return domain.Category{}, fmt.Errorf("%w: category %q already exists", ErrValidation, category.Name)
		}
	}
	c.categories = append(c.categories, category)
	c.saveCategories()
	return category, nil
}

// UpdateCategory renames a category. It returns nil when the id is unknown.
func (c *Catalog) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (*domain.Category, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.categoryIndex(id)
	if idx < 0 {
		return nil, nil
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category name is required", ErrValidation)
		}
		c.categories[idx].Name = name

		touched := false
		for i := range c.products {
			if c.products[i].CategoryID == id {
				c.products[i].CategoryName = name
				touched = true
			}
		}
		if touched {
			c.saveProducts()
		}
	}
	c.saveCategories()

	updated := c.categories[idx]
	return &updated, nil
}

// DeleteCategory removes the category together with its companies and products.
func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.categoryIndex(id)
	if idx < 0 {
		return nil
	}
	c.categories = append(c.categories[:idx], c.categories[idx+1:]...)

	companies := c.companies[:0]
	for _, company := range c.companies {
		if company.CategoryID != id {
			companies = append(companies, company)
		}
	}
	c.companies = companies

	products := c.products[:0]
	removed := 0
	for _, product := range c.products {
		if product.CategoryID == id {
			removed++
			continue
		}
		products = append(products, product)
	}
	c.products = products

	c.saveCategories()
	c.saveCompanies()
	c.saveProducts()
	c.deps.Logger.Info("category deleted", zap.String("category_id", id), zap.Int("products_removed", removed))
	return nil
}

func (c *Catalog) ListCompanies(_ context.Context, categoryID string) []domain.Company {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Company, 0, len(c.companies))
	for _, company := range c.companies {
		if categoryID == "" || company.CategoryID == categoryID {
			out = append(out, company)
		}
	}
	return out
}

func (c *Catalog) CreateCompany(ctx context.Context, req domain.CompanyCreateRequest) (domain.Company, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Company{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return domain.Company{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.categoryIndex(req.CategoryID) < 0 {
		return domain.Company{}, fmt.Errorf("%w: unknown category %q", ErrValidation, req.CategoryID)
	}
	company := domain.Company{
		ID:         xid.New("co"),
		CategoryID: req.CategoryID,
		Name:       req.Name,
		CreatedAt:  c.deps.Clock(),
	}
	c.companies = append(c.companies, company)
	c.saveCompanies()
	return company, nil
}

func (c *Catalog) UpdateCompany(ctx context.Context, id string, req domain.CompanyUpdateRequest) (*domain.Company, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.companyIndex(id)
	if idx < 0 {
		return nil, nil
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: company name is required", ErrValidation)
		}
		c.companies[idx].Name = name

		touched := false
		for i := range c.products {
			if c.products[i].CompanyID == id {
				c.products[i].CompanyName = name
				touched = true
			}
		}
		if touched {
			c.saveProducts()
		}
	}
	c.saveCompanies()

	updated := c.companies[idx]
	return &updated, nil
}

// DeleteCompany detaches products from the company instead of deleting them.
func (c *Catalog) DeleteCompany(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.companyIndex(id)
	if idx < 0 {
		return nil
	}
	c.companies = append(c.companies[:idx], c.companies[idx+1:]...)

	now := c.deps.Clock()
	touched := false
	for i := range c.products {
		if c.products[i].CompanyID == id {
			c.products[i].CompanyID = ""
			c.products[i].CompanyName = ""
			c.products[i].UpdatedAt = now
			touched = true
		}
	}

	c.saveCompanies()
	if touched {
		c.saveProducts()
	}
	return nil
}

func (c *Catalog) ListProducts(_ context.Context, categoryID string) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.products))
	for _, product := range c.products {
		if categoryID == "" || product.CategoryID == categoryID {
			out = append(out, product)
		}
	}
	return out
}

func (c *Catalog) GetProduct(_ context.Context, id string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := c.productIndex(id)
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("%w: product %q", ErrNotFound, id)
	}
	return c.products[idx], nil
}

func (c *Catalog) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := validateStruct(req); err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	catIdx := c.categoryIndex(req.CategoryID)
	if catIdx < 0 {
		return domain.Product{}, fmt.Errorf("%w: unknown category %q", ErrValidation, req.CategoryID)
	}
	category := c.categories[catIdx]

	now := c.deps.Clock()
	product := domain.Product{
		ID:                xid.New("prd"),
		Kind:              category.Kind,
		CategoryID:        category.ID,
		CategoryName:      category.Name,
		Name:              strings.TrimSpace(req.Name),
		Type:              strings.TrimSpace(req.Type),
		Color:             strings.TrimSpace(req.Color),
		Thickness:         strings.TrimSpace(req.Thickness),
		Size:              strings.TrimSpace(req.Size),
		Unit:              strings.TrimSpace(req.Unit),
		PurchasePrice:     req.PurchasePrice,
		SellingPrice:      req.SellingPrice,
		Stock:             req.Stock,
		LowStockThreshold: c.lowStockDefault,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.LowStockThreshold != nil {
		product.LowStockThreshold = *req.LowStockThreshold
	}
	if err := c.attachCompany(&product, strings.TrimSpace(req.CompanyID)); err != nil {
		return domain.Product{}, err
	}
	if err := domain.ValidateProduct(product); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	c.products = append(c.products, product)
	c.saveProducts()
	if product.NegativeMargin() {
		c.deps.Logger.Warn("product sells below cost", zap.String("product_id", product.ID), zap.String("label", product.Label()))
	}
	return product, nil
}

// UpdateProduct applies the non-nil fields and re-validates the variant. An
// empty company id detaches the product from its company.
func (c *Catalog) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.productIndex(id)
	if idx < 0 {
		return nil, nil
	}

	updated := c.products[idx]
	if req.CompanyID != nil {
		if err := c.attachCompany(&updated, strings.TrimSpace(*req.CompanyID)); err != nil {
			return nil, err
		}
	}
	assignTrimmed(&updated.Name, req.Name)
	assignTrimmed(&updated.Type, req.Type)
	assignTrimmed(&updated.Color, req.Color)
	assignTrimmed(&updated.Thickness, req.Thickness)
	assignTrimmed(&updated.Size, req.Size)
	assignTrimmed(&updated.Unit, req.Unit)
	if req.PurchasePrice != nil {
		updated.PurchasePrice = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		updated.SellingPrice = *req.SellingPrice
	}
	if req.LowStockThreshold != nil {
		updated.LowStockThreshold = *req.LowStockThreshold
	}
	if err := domain.ValidateProduct(updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	updated.UpdatedAt = c.deps.Clock()

	c.products[idx] = updated
	c.saveProducts()
	return &updated, nil
}

func (c *Catalog) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.productIndex(id)
	if idx < 0 {
		return nil
	}
	c.products = append(c.products[:idx], c.products[idx+1:]...)
	c.saveProducts()
	return nil
}

// AdjustStock applies a signed delta. The result must stay non-negative.
func (c *Catalog) AdjustStock(ctx context.Context, id string, req domain.StockAdjustmentRequest) (*domain.Product, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.productIndex(id)
	if idx < 0 {
		return nil, nil
	}
	next := c.products[idx].Stock + req.Delta
	if next < 0 {
		return nil, fmt.Errorf("%w: stock would drop to %d", ErrValidation, next)
	}
	c.products[idx].Stock = next
	c.products[idx].UpdatedAt = c.deps.Clock()
	c.saveProducts()

	actor, _ := ActorFromContext(ctx)
	c.deps.Logger.Info("stock adjusted",
		zap.String("product_id", id),
		zap.Int("delta", req.Delta),
		zap.Int("stock", next),
		zap.String("reason", req.Reason),
		zap.String("actor", actor.Username),
	)

	updated := c.products[idx]
	return &updated, nil
}

func (c *Catalog) SetStock(_ context.Context, id string, stock int) (*domain.Product, error) {
	if stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.productIndex(id)
	if idx < 0 {
		return nil, nil
	}
	c.products[idx].Stock = stock
	c.products[idx].UpdatedAt = c.deps.Clock()
	c.saveProducts()

	updated := c.products[idx]
	return &updated, nil
}

// DeductStock takes sold quantities out of stock, clamping at zero. Products
// deleted since they were added to the cart are skipped.
func (c *Catalog) DeductStock(_ context.Context, items []domain.CartItem) {
	if len(items) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.deps.Clock()
	touched := false
	for _, item := range items {
		idx := c.productIndex(item.Product.ID)
		if idx < 0 {
			c.deps.Logger.Warn("sold product no longer in catalog", zap.String("product_id", item.Product.ID))
			continue
		}
		next := c.products[idx].Stock - item.Quantity
		if next < 0 {
			c.deps.Logger.Warn("stock clamped at zero",
				zap.String("product_id", item.Product.ID),
				zap.Int("stock", c.products[idx].Stock),
				zap.Int("sold", item.Quantity),
			)
			next = 0
		}
		c.products[idx].Stock = next
		c.products[idx].UpdatedAt = now
		touched = true
	}
	if touched {
		c.saveProducts()
	}
}

func (c *Catalog) LowStockProducts(_ context.Context) []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0)
	for _, product := range c.products {
		if product.IsLowStock() {
			out = append(out, product)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Stock < out[j].Stock
	})
	return out
}

// ReorderSuggestions proposes restocking every low-stock product up to twice
// its threshold.
func (c *Catalog) ReorderSuggestions(ctx context.Context) []domain.ReorderSuggestion {
	low := c.LowStockProducts(ctx)

	suggestions := make([]domain.ReorderSuggestion, 0, len(low))
	for _, product := range low {
		target := 2 * max(product.LowStockThreshold, 1)
		qty := target - product.Stock
		if qty < 1 {
			continue
		}
		suggestions = append(suggestions, domain.ReorderSuggestion{
			ProductID:         product.ID,
			Label:             product.Label(),
			CurrentStock:      product.Stock,
			LowStockThreshold: product.LowStockThreshold,
			RecommendedQty:    qty,
			PurchasePrice:     product.PurchasePrice,
			EstimatedCost:     product.PurchasePrice.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].CurrentStock != suggestions[j].CurrentStock {
			return suggestions[i].CurrentStock < suggestions[j].CurrentStock
		}
		return suggestions[i].EstimatedCost.GreaterThan(suggestions[j].EstimatedCost)
	})
	return suggestions
}

func (c *Catalog) attachCompany(product *domain.Product, companyID string) error {
	if companyID == "" {
		product.CompanyID = ""
		product.CompanyName = ""
		return nil
	}
	idx := c.companyIndex(companyID)
	if idx < 0 {
		return fmt.Errorf("%w: unknown company %q", ErrValidation, companyID)
	}
	company := c.companies[idx]
	if company.CategoryID != product.CategoryID {
		return fmt.Errorf("%w: company %q belongs to another category", ErrValidation, companyID)
	}
	product.CompanyID = company.ID
	product.CompanyName = company.Name
	return nil
}

func (c *Catalog) categoryIndex(id string) int {
	for i := range c.categories {
		if c.categories[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) companyIndex(id string) int {
	for i := range c.companies {
		if c.companies[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) productIndex(id string) int {
	for i := range c.products {
		if c.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Catalog) saveCategories() {
	persist(c.deps.Writer, c.deps.Logger, store.KeyCategories, c.categories)
}

func (c *Catalog) saveCompanies() {
	persist(c.deps.Writer, c.deps.Logger, store.KeyCompanies, c.companies)
}

func (c *Catalog) saveProducts() {
	persist(c.deps.Writer, c.deps.Logger, store.KeyProducts, c.products)
}

func assignTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
