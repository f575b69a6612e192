package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sheetpos/backend/internal/domain"
	"sheetpos/backend/internal/xid"
)

type demoProduct struct {
	company   string
	name      string
	typ       string
	color     string
	thickness string
	size      string
	unit      string
	purchase  int64
	selling   int64
	stock     int
}

type demoCategory struct {
	name      string
	kind      domain.ProductKind
	companies []string
	products  []demoProduct
}

var demoCatalog = []demoCategory{
	{
		name:      "Roofing Sheet",
		kind:      domain.KindRoofingSheet,
		companies: []string{"Jindal", "Tata Shaktee"},
		products: []demoProduct{
			{company: "Jindal", typ: "Colour Coated", color: "Red", thickness: "0.45mm", size: "8ft", purchase: 520, selling: 600, stock: 40},
			{company: "Jindal", typ: "Colour Coated", color: "Blue", thickness: "0.50mm", size: "10ft", purchase: 700, selling: 820, stock: 25},
			{company: "Tata Shaktee", typ: "Galvanised", thickness: "0.40mm", size: "12ft", purchase: 760, selling: 880, stock: 4},
		},
	},
	{
		name:      "Cement",
		kind:      domain.KindBuildingMaterial,
		companies: []string{"UltraTech"},
		products: []demoProduct{
			{company: "UltraTech", name: "OPC 53", typ: "OPC", size: "50kg", unit: "bag", purchase: 360, selling: 410, stock: 120},
		},
	},
	{
		name: "Hardware",
		kind: domain.KindHardware,
		products: []demoProduct{
			{name: "J-Hook Bolt", size: "4in", unit: "pcs", purchase: 6, selling: 10, stock: 800},
			{name: "Roofing Screw", size: "2.5in", unit: "pcs", purchase: 3, selling: 5, stock: 3},
		},
	},
}

// SeedDemo fills an empty catalog with a small sample assortment.
func (c *Catalog) SeedDemo(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.categories) > 0 || len(c.products) > 0 {
		return nil
	}

	now := c.deps.Clock()
	for _, seed := range demoCatalog {
		category := domain.Category{ID: xid.New("cat"), Name: seed.name, Kind: seed.kind, CreatedAt: now}
		c.categories = append(c.categories, category)

		companyIDs := make(map[string]string, len(seed.companies))
		for _, name := range seed.companies {
			company := domain.Company{ID: xid.New("co"), CategoryID: category.ID, Name: name, CreatedAt: now}
			c.companies = append(c.companies, company)
			companyIDs[name] = company.ID
		}

		for _, p := range seed.products {
			product := domain.Product{
				ID:                xid.New("prd"),
				Kind:              category.Kind,
				CategoryID:        category.ID,
				CategoryName:      category.Name,
				CompanyID:         companyIDs[p.company],
				CompanyName:       p.company,
				Name:              p.name,
				Type:              p.typ,
				Color:             p.color,
				Thickness:         p.thickness,
				Size:              p.size,
				Unit:              p.unit,
				PurchasePrice:     decimal.NewFromInt(p.purchase),
				SellingPrice:      decimal.NewFromInt(p.selling),
				Stock:             p.stock,
				LowStockThreshold: c.lowStockDefault,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := domain.ValidateProduct(product); err != nil {
				return fmt.Errorf("seed %s: %w", product.Label(), err)
			}
			c.products = append(c.products, product)
		}
	}

	c.saveCategories()
	c.saveCompanies()
	c.saveProducts()
	c.deps.Logger.Info("demo catalog seeded", zap.Int("products", len(c.products)))
	return nil
}
