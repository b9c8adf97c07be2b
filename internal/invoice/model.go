// Package invoice owns the durable record of completed sales and the shared
// invoice number counter.
package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-aurum/internal/cart"
	"github.com/noah-isme/backend-aurum/internal/pricing"
)

// Status values for a persisted invoice.
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
)

// Payment snapshots the cart summary at commit time.
type Payment struct {
	pricing.Summary
	Mode string    `json:"mode"`
	Date time.Time `json:"date"`
}

// Invoice is the immutable record of one completed sale. It is written
// exactly once and never mutated or deleted by this service.
type Invoice struct {
	ID        uuid.UUID     `json:"id"`
	Number    string        `json:"number"`
	Customer  cart.Customer `json:"customer"`
	Items     []cart.Line   `json:"items"`
	Payment   Payment       `json:"payment"`
	Status    string        `json:"status"`
	Month     string        `json:"month"`
	CreatedAt time.Time     `json:"createdAt"`
}

// FormatNumber renders a reserved counter value as the printed invoice
// number: decimal, zero-padded to at least four digits.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%04d", n)
}

// MonthKey renders the month bucket an invoice is filed under.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
