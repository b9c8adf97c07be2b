// Package cart holds the in-progress sale session: customer, scanned lines,
// and the always-recomputed summary, mirrored to Redis for crash recovery.
package cart

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/pricing"
)

// Customer identifies the buyer on the invoice.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

// Line is one scanned product entry. Each line represents exactly one
// physical unit; scanning the same barcode twice adds two lines.
type Line struct {
	ID               string                   `json:"id"`
	ProductID        uuid.UUID                `json:"productId"`
	Barcode          string                   `json:"barcode"`
	ProductName      string                   `json:"productName"`
	Category         catalog.Category         `json:"category"`
	WeightMg         int64                    `json:"weightMg"`
	CurrentRate      pricing.Money            `json:"currentRate"`
	MakingCharge     int64                    `json:"makingCharge"`
	MakingChargeType catalog.MakingChargeType `json:"makingChargeType"`
	SellingPrice     pricing.Money            `json:"sellingPrice"`
	GSTBps           int                      `json:"gstBps"`
	TotalPrice       pricing.Money            `json:"totalPrice"`
}

// Session is the in-progress sale owned by one cashier device.
type Session struct {
	ID           string               `json:"id"`
	Customer     Customer             `json:"customer"`
	Lines        []Line               `json:"lines"`
	Discount     int64                `json:"discount"`
	DiscountType pricing.DiscountType `json:"discountType"`
	AmountPaid   pricing.Money        `json:"amountPaid"`
	PaymentMode  string               `json:"paymentMode"`
	Summary      pricing.Summary      `json:"summary"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// NewSession constructs an empty session with sane summary defaults.
func NewSession(id string) Session {
	return Session{
		ID:           id,
		Lines:        []Line{},
		DiscountType: pricing.DiscountFlat,
		PaymentMode:  "cash",
	}
}

// Recompute refreshes line totals and the summary. It runs after every
// mutation so callers never observe stale totals.
func (s *Session) Recompute(cartGSTBps int) {
	totals := make([]pricing.Money, 0, len(s.Lines))
	for i := range s.Lines {
		line := &s.Lines[i]
		line.TotalPrice = pricing.PriceLine(pricing.Line{
			Category:         line.Category,
			WeightMg:         line.WeightMg,
			RatePerGram:      line.CurrentRate,
			MakingCharge:     line.MakingCharge,
			MakingChargeType: line.MakingChargeType,
			SellingPrice:     line.SellingPrice,
			GSTBps:           line.GSTBps,
		})
		totals = append(totals, line.TotalPrice)
	}
	s.Summary = pricing.Aggregate(totals, s.Discount, s.DiscountType, s.AmountPaid, cartGSTBps)
}

// newLineID derives a locally unique line id from the wall clock.
func newLineID(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10)
}
