package rates

import (
	"testing"

	"github.com/noah-isme/backend-aurum/internal/catalog"
)

func TestResolve(t *testing.T) {
	q := Quote{GoldPerGram: 583_000, SilverPerGram: 7_500}

	if rate := Resolve(catalog.CategoryGold, q); rate != 583_000 {
		t.Fatalf("unexpected gold rate: %d", rate)
	}
	if rate := Resolve(catalog.CategorySilver, q); rate != 7_500 {
		t.Fatalf("unexpected silver rate: %d", rate)
	}
	if rate := Resolve(catalog.CategoryImitation, q); rate != 0 {
		t.Fatalf("imitation must not resolve a metal rate, got %d", rate)
	}
}

func TestResolveZeroQuote(t *testing.T) {
	if rate := Resolve(catalog.CategoryGold, Quote{}); rate != 0 {
		t.Fatalf("expected zero rate from empty quote, got %d", rate)
	}
}
