package catalog

import (
	"strings"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	for _, in := range []string{"gold", "GOLD", "  Gold "} {
		c, err := ParseCategory(in)
		if err != nil {
			t.Fatalf("ParseCategory(%q): %v", in, err)
		}
		if c != CategoryGold {
			t.Fatalf("ParseCategory(%q) = %q", in, c)
		}
	}
	if _, err := ParseCategory("platinum"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestPricedByWeight(t *testing.T) {
	if !CategoryGold.PricedByWeight() || !CategorySilver.PricedByWeight() {
		t.Fatal("metal categories must be priced by weight")
	}
	if CategoryImitation.PricedByWeight() {
		t.Fatal("imitation must not be priced by weight")
	}
}

func TestProductValidate(t *testing.T) {
	gold := Product{
		Name:             "Gold Chain",
		Category:         CategoryGold,
		WeightMg:         10_000,
		MakingCharge:     1200,
		MakingChargeType: MakingPercentage,
		Quantity:         1,
	}
	if err := gold.Validate(); err != nil {
		t.Fatalf("valid gold product rejected: %v", err)
	}

	noWeight := gold
	noWeight.WeightMg = 0
	if err := noWeight.Validate(); err == nil {
		t.Fatal("gold without weight must be rejected")
	}

	noChargeType := gold
	noChargeType.MakingChargeType = ""
	if err := noChargeType.Validate(); err == nil {
		t.Fatal("gold without making charge type must be rejected")
	}

	imitation := Product{
		Name:         "Necklace Set",
		Category:     CategoryImitation,
		SellingPrice: 85_000,
	}
	if err := imitation.Validate(); err != nil {
		t.Fatalf("valid imitation product rejected: %v", err)
	}

	noPrice := imitation
	noPrice.SellingPrice = 0
	if err := noPrice.Validate(); err == nil {
		t.Fatal("imitation without selling price must be rejected")
	}
}

func TestGenerateBarcode(t *testing.T) {
	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	code := GenerateBarcode(CategoryGold, now)
	if !strings.HasPrefix(code, "GLD") {
		t.Fatalf("unexpected prefix: %q", code)
	}
	if len(code) < len("GLD")+10+3 {
		t.Fatalf("barcode too short: %q", code)
	}
	if GenerateBarcode(CategorySilver, now)[:3] != "SLV" {
		t.Fatal("silver barcodes must use the SLV prefix")
	}
	if GenerateBarcode(CategoryImitation, now)[:3] != "IMT" {
		t.Fatal("imitation barcodes must use the IMT prefix")
	}
}
