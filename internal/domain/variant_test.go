package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateVariant(t *testing.T) {
	tests := []struct {
		name    string
		kind    ProductKind
		fields  VariantFields
		wantErr bool
	}{
		{"sheet complete", KindRoofingSheet, VariantFields{Type: "Corrugated", Thickness: "0.47mm", Size: "10ft"}, false},
		{"sheet without company is fine", KindRoofingSheet, VariantFields{Type: "Tile", Color: "Red", Thickness: "0.5mm", Size: "8ft"}, false},
		{"sheet missing size", KindRoofingSheet, VariantFields{Type: "Corrugated", Thickness: "0.47mm"}, true},
		{"material plain", KindBuildingMaterial, VariantFields{Type: "OPC 53", Unit: "bag"}, false},
		{"material with thickness", KindBuildingMaterial, VariantFields{Thickness: "2mm"}, true},
		{"hardware named", KindHardware, VariantFields{Name: "J-hook bolt", Size: "4in"}, false},
		{"hardware unnamed", KindHardware, VariantFields{Size: "4in"}, true},
		{"hardware with color", KindHardware, VariantFields{Name: "Screw", Color: "Blue"}, true},
		{"unknown kind", ProductKind("paint"), VariantFields{Name: "Primer"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVariant(tt.kind, tt.fields)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVariant)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateProductRejectsNegativePrices(t *testing.T) {
	p := Product{
		ID:            "prod-1",
		Kind:          KindHardware,
		CategoryID:    "cat-1",
		Name:          "Washer",
		PurchasePrice: decimal.NewFromInt(-1),
		SellingPrice:  decimal.NewFromInt(5),
	}
	assert.ErrorIs(t, ValidateProduct(p), ErrInvalidVariant)

	p.PurchasePrice = decimal.NewFromInt(7)
	require.NoError(t, ValidateProduct(p))
	assert.True(t, p.NegativeMargin())
}

func TestProductLabelAndLowStock(t *testing.T) {
	p := Product{
		CategoryName:      "Roofing Sheet",
		CompanyName:       "Tata",
		Type:              "Corrugated",
		Color:             "Blue",
		Thickness:         "0.47mm",
		Size:              "10ft",
		Stock:             5,
		LowStockThreshold: 5,
	}
	assert.Equal(t, "Roofing Sheet Tata Corrugated Blue 0.47mm 10ft", p.Label())
	assert.True(t, p.IsLowStock())

	p.Stock = 6
	assert.False(t, p.IsLowStock())
}

func TestReplayOutstandingFloorsPayments(t *testing.T) {
	now := time.Now()
	history := []CreditHistoryItem{
		{ID: "1", Date: now, Amount: decimal.NewFromInt(500), Type: CreditPurchase},
		{ID: "2", Date: now, Amount: decimal.NewFromInt(700), Type: CreditPayment},
		{ID: "3", Date: now, Amount: decimal.NewFromInt(100), Type: CreditPurchase},
	}
	assert.True(t, decimal.NewFromInt(100).Equal(ReplayOutstanding(history)))
}

func TestValidateCustomerDetectsMismatch(t *testing.T) {
	c := Customer{
		ID:                "cust-1",
		Name:              "Ravi",
		OutstandingCredit: decimal.NewFromInt(300),
		History: []CreditHistoryItem{
			{ID: "1", Amount: decimal.NewFromInt(200), Type: CreditPurchase},
		},
	}
	assert.ErrorIs(t, ValidateCustomer(c), ErrLedgerMismatch)

	c.OutstandingCredit = decimal.NewFromInt(200)
	assert.NoError(t, ValidateCustomer(c))
}
