package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ProductKind tags a category with the variant fields its products carry.
type ProductKind string

const (
	KindRoofingSheet     ProductKind = "roofing_sheet"
	KindBuildingMaterial ProductKind = "building_material"
	KindHardware         ProductKind = "hardware"
)

var ErrInvalidVariant = errors.New("invalid product variant")

type VariantFields struct {
	CompanyID string
	Name      string
	Type      string
	Color     string
	Thickness string
	Size      string
	Unit      string
}

func (k ProductKind) Valid() bool {
	switch k {
	case KindRoofingSheet, KindBuildingMaterial, KindHardware:
		return true
	default:
		return false
	}
}

// ValidateVariant checks that the populated fields fit the kind.
func ValidateVariant(kind ProductKind, v VariantFields) error {
	switch kind {
	case KindRoofingSheet:
		missing := missingFields([2]string{"type", v.Type}, [2]string{"thickness", v.Thickness}, [2]string{"size", v.Size})
		if len(missing) > 0 {
			return fmt.Errorf("%w: roofing sheet requires %s", ErrInvalidVariant, strings.Join(missing, ", "))
		}
		return nil
	case KindBuildingMaterial:
		if v.Color != "" || v.Thickness != "" {
			return fmt.Errorf("%w: building material does not take color or thickness", ErrInvalidVariant)
		}
		return nil
	case KindHardware:
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("%w: hardware item requires name", ErrInvalidVariant)
		}
		if v.Color != "" || v.Thickness != "" {
			return fmt.Errorf("%w: hardware item does not take color or thickness", ErrInvalidVariant)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidVariant, kind)
	}
}

// ValidateProduct is applied on construction and when decoding persisted records.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.CategoryID) == "" {
		return fmt.Errorf("%w: id and category are required", ErrInvalidVariant)
	}
	if p.PurchasePrice.IsNegative() || p.SellingPrice.IsNegative() {
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidVariant)
	}
	if p.Stock < 0 || p.LowStockThreshold < 0 {
		return fmt.Errorf("%w: stock and threshold must not be negative", ErrInvalidVariant)
	}
	return ValidateVariant(p.Kind, p.Variant())
}

func missingFields(fields ...[2]string) []string {
	var missing []string
	for _, field := range fields {
		if strings.TrimSpace(field[1]) == "" {
			missing = append(missing, field[0])
		}
	}
	return missing
}
