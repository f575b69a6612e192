package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      ProductKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

type CategoryCreateRequest struct {
	Name string      `json:"name" validate:"required,max=80"`
	Kind ProductKind `json:"kind" validate:"required,oneof=roofing_sheet building_material hardware"`
}

type CategoryUpdateRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=80"`
}

type Company struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}

type CompanyCreateRequest struct {
	CategoryID string `json:"category_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=80"`
}

type CompanyUpdateRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=80"`
}

// Product is one sellable variant: category x company x type x color x thickness x size.
type Product struct {
	ID                string          `json:"id"`
	Kind              ProductKind     `json:"kind"`
	CategoryID        string          `json:"category_id"`
	CategoryName      string          `json:"category_name"`
	CompanyID         string          `json:"company_id,omitempty"`
	CompanyName       string          `json:"company_name,omitempty"`
	Name              string          `json:"name,omitempty"`
	Type              string          `json:"type,omitempty"`
	Color             string          `json:"color,omitempty"`
	Thickness         string          `json:"thickness,omitempty"`
	Size              string          `json:"size,omitempty"`
	Unit              string          `json:"unit,omitempty"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Stock             int             `json:"stock"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (p Product) UnitProfit() decimal.Decimal {
	return p.SellingPrice.Sub(p.PurchasePrice)
}

// NegativeMargin is informational only; selling below cost is allowed.
func (p Product) NegativeMargin() bool {
	return p.UnitProfit().IsNegative()
}

func (p Product) IsLowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

func (p Product) Label() string {
	parts := make([]string, 0, 7)
	for _, part := range []string{p.CategoryName, p.CompanyName, p.Name, p.Type, p.Color, p.Thickness, p.Size} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return p.ID
	}
	return strings.Join(parts, " ")
}

func (p Product) Variant() VariantFields {
	return VariantFields{
		CompanyID: p.CompanyID,
		Name:      p.Name,
		Type:      p.Type,
		Color:     p.Color,
		Thickness: p.Thickness,
		Size:      p.Size,
		Unit:      p.Unit,
	}
}

type ProductCreateRequest struct {
	CategoryID        string          `json:"category_id" validate:"required"`
	CompanyID         string          `json:"company_id,omitempty"`
	Name              string          `json:"name,omitempty" validate:"max=120"`
	Type              string          `json:"type,omitempty" validate:"max=60"`
	Color             string          `json:"color,omitempty" validate:"max=40"`
	Thickness         string          `json:"thickness,omitempty" validate:"max=40"`
	Size              string          `json:"size,omitempty" validate:"max=40"`
	Unit              string          `json:"unit,omitempty" validate:"max=20"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	Stock             int             `json:"stock" validate:"gte=0"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

type ProductUpdateRequest struct {
	CompanyID         *string          `json:"company_id,omitempty"`
	Name              *string          `json:"name,omitempty" validate:"omitempty,max=120"`
	Type              *string          `json:"type,omitempty" validate:"omitempty,max=60"`
	Color             *string          `json:"color,omitempty" validate:"omitempty,max=40"`
	Thickness         *string          `json:"thickness,omitempty" validate:"omitempty,max=40"`
	Size              *string          `json:"size,omitempty" validate:"omitempty,max=40"`
	Unit              *string          `json:"unit,omitempty" validate:"omitempty,max=20"`
	PurchasePrice     *decimal.Decimal `json:"purchase_price,omitempty"`
	SellingPrice      *decimal.Decimal `json:"selling_price,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
}

type StockAdjustmentRequest struct {
	Delta  int    `json:"delta" validate:"ne=0"`
	Reason string `json:"reason,omitempty" validate:"max=200"`
}

type ReorderSuggestion struct {
	ProductID         string          `json:"product_id"`
	Label             string          `json:"label"`
	CurrentStock      int             `json:"current_stock"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	RecommendedQty    int             `json:"recommended_qty"`
	PurchasePrice     decimal.Decimal `json:"purchase_price"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Phone   string `json:"phone,omitempty" validate:"max=20"`
	Address string `json:"address,omitempty" validate:"max=240"`
	Notes   string `json:"notes,omitempty" validate:"max=500"`
}

type SupplierUpdateRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=240"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CartItem holds a snapshot of the product at the time it was added.
type CartItem struct {
	ID       string    `json:"id"`
	Product  Product   `json:"product"`
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.SellingPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) LineProfit() decimal.Decimal {
	return i.Product.UnitProfit().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartDiscountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CartSnapshot struct {
	Items    []CartItem      `json:"items"`
	Discount decimal.Decimal `json:"discount"`
}

type CartView struct {
	Items       []CartItem      `json:"items"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Discount    decimal.Decimal `json:"discount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type CheckoutForm struct {
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	DiscountType    DiscountType    `json:"discount_type"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountFixed   decimal.Decimal `json:"discount_fixed"`
	AdvanceAmount   decimal.Decimal `json:"advance_amount"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

type CheckoutFormPatch struct {
	CustomerName    *string          `json:"customer_name,omitempty" validate:"omitempty,max=120"`
	CustomerPhone   *string          `json:"customer_phone,omitempty" validate:"omitempty,max=20"`
	DiscountType    *DiscountType    `json:"discount_type,omitempty" validate:"omitempty,oneof=percent fixed"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	DiscountFixed   *decimal.Decimal `json:"discount_fixed,omitempty"`
	AdvanceAmount   *decimal.Decimal `json:"advance_amount,omitempty"`
	DueDate         *time.Time       `json:"due_date,omitempty"`
	ClearDueDate    bool             `json:"clear_due_date,omitempty"`
	Notes           *string          `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type CheckoutTotals struct {
	SubTotal       decimal.Decimal `json:"sub_total"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AdvanceAmount  decimal.Decimal `json:"advance_amount"`
	DueAmount      decimal.Decimal `json:"due_amount"`
	ChangeAmount   decimal.Decimal `json:"change_amount"`
	Profit         decimal.Decimal `json:"profit"`
}

type CheckoutPreview struct {
	Form   CheckoutForm   `json:"form"`
	Totals CheckoutTotals `json:"totals"`
	Cart   CartView       `json:"cart"`
}

const (
	OrderStatusPaid   = "paid"
	OrderStatusCredit = "credit"
)

// Order is an immutable record of a committed sale.
type Order struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	CustomerID     string          `json:"customer_id,omitempty"`
	CustomerName   string          `json:"customer_name"`
	CustomerPhone  string          `json:"customer_phone,omitempty"`
	Items          []CartItem      `json:"items"`
	SubTotal       decimal.Decimal `json:"sub_total"`
	DiscountType   DiscountType    `json:"discount_type"`
	DiscountAmount decimal.Decimal `json:"discount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	DueAmount      decimal.Decimal `json:"due_amount"`
	Profit         decimal.Decimal `json:"profit"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Status         string          `json:"status"`
}

func (o Order) ItemQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

type OrderFilter struct {
	From          *time.Time
	To            *time.Time
	CustomerPhone string
	Limit         int
}

type ReceiptResponse struct {
	OrderID      string `json:"order_id"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
	FileName     string `json:"file_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the persisted form of a staff login.
type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
