package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies a product for pricing purposes.
type Category string

const (
	CategoryGold      Category = "gold"
	CategorySilver    Category = "silver"
	CategoryImitation Category = "imitation"
)

// ParseCategory normalises and validates a category string.
func ParseCategory(value string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryGold:
		return CategoryGold, nil
	case CategorySilver:
		return CategorySilver, nil
	case CategoryImitation:
		return CategoryImitation, nil
	default:
		return "", fmt.Errorf("unknown category %q", value)
	}
}

// PricedByWeight reports whether line prices derive from weight and metal rate.
func (c Category) PricedByWeight() bool {
	return c == CategoryGold || c == CategorySilver
}

// MakingChargeType distinguishes percentage making charges from fixed ones.
type MakingChargeType string

const (
	MakingPercentage MakingChargeType = "percentage"
	MakingFixed      MakingChargeType = "fixed"
)

// ParseMakingChargeType validates a making charge type string.
func ParseMakingChargeType(value string) (MakingChargeType, error) {
	switch MakingChargeType(strings.ToLower(strings.TrimSpace(value))) {
	case MakingPercentage:
		return MakingPercentage, nil
	case MakingFixed:
		return MakingFixed, nil
	default:
		return "", fmt.Errorf("unknown making charge type %q", value)
	}
}

// Stock status values.
const (
	StatusInStock = "in_stock"
	StatusSoldOut = "sold_out"
)

// Product is one registered piece of stock. Monetary fields are paise,
// weight is milligrams, percentage making charges are basis points.
type Product struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Category         Category         `json:"category"`
	Barcode          string           `json:"barcode"`
	WeightMg         int64            `json:"weightMg,omitempty"`
	SellingPrice     int64            `json:"sellingPrice,omitempty"`
	MakingCharge     int64            `json:"makingCharge"`
	MakingChargeType MakingChargeType `json:"makingChargeType"`
	GSTBps           int              `json:"gstBps"`
	Quantity         int32            `json:"quantity"`
	Status           string           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Validate checks category-specific required fields before registration.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required")
	}
	if p.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	if p.Category.PricedByWeight() {
		if p.WeightMg <= 0 {
			return fmt.Errorf("%s products require a positive weight", p.Category)
		}
		if p.MakingCharge < 0 {
			return fmt.Errorf("making charge must not be negative")
		}
		if p.MakingChargeType != MakingPercentage && p.MakingChargeType != MakingFixed {
			return fmt.Errorf("%s products require a making charge type", p.Category)
		}
		return nil
	}
	if p.SellingPrice <= 0 {
		return fmt.Errorf("%s products require a positive selling price", p.Category)
	}
	return nil
}
