// Package pricing computes line prices and cart totals for a sale.
//
// Monetary values are rupee paise carried as int64; weights are milligrams
// and percentage inputs are basis points, so every computation here is exact
// integer arithmetic.
package pricing

import "github.com/noah-isme/backend-aurum/internal/catalog"

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// Line carries the pricing inputs of a single scanned cart entry.
type Line struct {
	Category         catalog.Category
	WeightMg         int64
	RatePerGram      Money
	MakingCharge     int64
	MakingChargeType catalog.MakingChargeType
	SellingPrice     Money
	GSTBps           int
}

// PriceLine computes the taxed price of one line.
//
// Metal lines price weight at the current rate plus the making charge, then
// apply the line's GST. Everything else is the selling price plus GST. Missing
// or non-positive required inputs yield 0 rather than an error; callers
// validate required fields before a line is allowed into the cart.
func PriceLine(l Line) Money {
	gst := int64(l.GSTBps)
	if gst < 0 {
		gst = 0
	}
	var base Money
	if l.Category.PricedByWeight() {
		if l.WeightMg <= 0 || l.RatePerGram <= 0 || l.MakingCharge < 0 {
			return 0
		}
		metalValue := l.WeightMg * l.RatePerGram / 1000
		making := l.MakingCharge
		if l.MakingChargeType != catalog.MakingFixed {
			making = metalValue * l.MakingCharge / 10000
		}
		base = metalValue + making
	} else {
		if l.SellingPrice <= 0 {
			return 0
		}
		base = l.SellingPrice
	}
	return base * (10000 + gst) / 10000
}
