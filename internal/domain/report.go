package domain

import "github.com/shopspring/decimal"

type SalesWindow struct {
	Orders int             `json:"orders"`
	Total  decimal.Decimal `json:"total"`
	Profit decimal.Decimal `json:"profit"`
}

type DashboardSummary struct {
	GeneratedAt          string          `json:"generated_at"`
	Today                SalesWindow     `json:"today"`
	Week                 SalesWindow     `json:"week"`
	Month                SalesWindow     `json:"month"`
	ProductCount         int             `json:"product_count"`
	LowStockCount        int             `json:"low_stock_count"`
	OutOfStockCount      int             `json:"out_of_stock_count"`
	InventoryCostValue   decimal.Decimal `json:"inventory_cost_value"`
	InventoryRetailValue decimal.Decimal `json:"inventory_retail_value"`
	CustomerCount        int             `json:"customer_count"`
	DebtorCount          int             `json:"debtor_count"`
	TotalOutstanding     decimal.Decimal `json:"total_outstanding"`
}

type DailyReportStatus struct {
	Status string          `json:"status"`
	Orders int             `json:"orders"`
	Total  decimal.Decimal `json:"total"`
}

type DailyReport struct {
	Date          string              `json:"date"`
	Orders        int                 `json:"orders"`
	ItemsSold     int                 `json:"items_sold"`
	GrossSales    decimal.Decimal     `json:"gross_sales"`
	Discount      decimal.Decimal     `json:"discount"`
	NetSales      decimal.Decimal     `json:"net_sales"`
	Collected     decimal.Decimal     `json:"collected"`
	CreditIssued  decimal.Decimal     `json:"credit_issued"`
	Profit        decimal.Decimal     `json:"profit"`
	ByStatus      []DailyReportStatus `json:"by_status"`
	PaymentsTaken decimal.Decimal     `json:"payments_taken"`
}

type TopProduct struct {
	ProductID string          `json:"product_id"`
	Label     string          `json:"label"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}
