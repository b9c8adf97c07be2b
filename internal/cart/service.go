package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/pricing"
	"github.com/noah-isme/backend-aurum/internal/rates"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrLineNotFound indicates the referenced cart line does not exist.
var ErrLineNotFound = errors.New("cart line not found")

// ProductSource resolves scanned barcodes against the live catalog.
type ProductSource interface {
	GetByBarcode(ctx context.Context, barcode string) (catalog.Product, error)
}

// RateSource provides the current metal rate quote.
type RateSource interface {
	Current(ctx context.Context) (rates.Quote, error)
}

// Service drives a sale session through scan/remove/summary mutations,
// recomputing totals and mirroring the snapshot on every change.
type Service struct {
	Products   ProductSource
	Rates      RateSource
	Snapshots  SnapshotStore
	CartGSTBps int
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get loads the session snapshot, creating a fresh session if none exists.
func (s *Service) Get(ctx context.Context, sessionID string) (Session, error) {
	if s == nil {
		return Session{}, errors.New("cart service not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return Session{}, fmt.Errorf("session id required: %w", ErrInvalidInput)
	}
	snapshot, err := s.Snapshots.Load(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if snapshot == nil {
		return NewSession(sessionID), nil
	}
	// Totals are recomputed on load; a snapshot never carries authority
	// over derived fields.
	snapshot.Recompute(s.CartGSTBps)
	return *snapshot, nil
}

// AddLine scans a barcode into the session. The line captures the product's
// pricing inputs and the rate in force at scan time.
func (s *Service) AddLine(ctx context.Context, sessionID, barcode string) (Session, error) {
	if s == nil || s.Products == nil || s.Rates == nil {
		return Session{}, errors.New("cart service not configured")
	}
	if strings.TrimSpace(barcode) == "" {
		return Session{}, fmt.Errorf("barcode required: %w", ErrInvalidInput)
	}
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	product, err := s.Products.GetByBarcode(ctx, barcode)
	if err != nil {
		return Session{}, err
	}
	if product.Quantity <= 0 {
		return Session{}, fmt.Errorf("product %s is sold out: %w", product.Barcode, ErrInvalidInput)
	}
	quote, err := s.Rates.Current(ctx)
	if err != nil {
		return Session{}, err
	}
	line := Line{
		ID:               newLineID(s.now()),
		ProductID:        product.ID,
		Barcode:          product.Barcode,
		ProductName:      product.Name,
		Category:         product.Category,
		WeightMg:         product.WeightMg,
		CurrentRate:      rates.Resolve(product.Category, quote),
		MakingCharge:     product.MakingCharge,
		MakingChargeType: product.MakingChargeType,
		SellingPrice:     product.SellingPrice,
		GSTBps:           product.GSTBps,
	}
	if err := validateLine(line); err != nil {
		return Session{}, err
	}
	session.Lines = append(session.Lines, line)
	return s.persist(ctx, session)
}

// RemoveLine drops one scanned line from the session.
func (s *Service) RemoveLine(ctx context.Context, sessionID, lineID string) (Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	kept := session.Lines[:0]
	found := false
	for _, line := range session.Lines {
		if line.ID == lineID {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	if !found {
		return Session{}, ErrLineNotFound
	}
	session.Lines = kept
	return s.persist(ctx, session)
}

// SummaryInput carries the user-editable summary fields.
type SummaryInput struct {
	Customer     Customer             `json:"customer"`
	Discount     int64                `json:"discount"`
	DiscountType pricing.DiscountType `json:"discountType"`
	AmountPaid   pricing.Money        `json:"amountPaid"`
	PaymentMode  string               `json:"paymentMode"`
}

// UpdateSummary applies the editable inputs and recomputes totals.
func (s *Service) UpdateSummary(ctx context.Context, sessionID string, in SummaryInput) (Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if in.Discount < 0 {
		return Session{}, fmt.Errorf("discount must not be negative: %w", ErrInvalidInput)
	}
	if in.AmountPaid < 0 {
		return Session{}, fmt.Errorf("amount paid must not be negative: %w", ErrInvalidInput)
	}
	switch in.DiscountType {
	case pricing.DiscountPercentage, pricing.DiscountFlat, "":
	default:
		return Session{}, fmt.Errorf("unknown discount type %q: %w", in.DiscountType, ErrInvalidInput)
	}
	session.Customer = in.Customer
	session.Discount = in.Discount
	if in.DiscountType != "" {
		session.DiscountType = in.DiscountType
	}
	session.AmountPaid = in.AmountPaid
	if strings.TrimSpace(in.PaymentMode) != "" {
		session.PaymentMode = in.PaymentMode
	}
	return s.persist(ctx, session)
}

// Clear abandons the in-progress session. Safe at any time before commit
// begins persisting; nothing durable exists yet.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if s == nil {
		return errors.New("cart service not configured")
	}
	return s.Snapshots.Clear(ctx, sessionID)
}

func (s *Service) persist(ctx context.Context, session Session) (Session, error) {
	session.Recompute(s.CartGSTBps)
	session.UpdatedAt = s.now()
	if err := s.Snapshots.Save(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

func validateLine(line Line) error {
	if line.Category.PricedByWeight() {
		if line.WeightMg <= 0 {
			return fmt.Errorf("%s line requires a positive weight: %w", line.Category, ErrInvalidInput)
		}
		if line.CurrentRate <= 0 {
			return fmt.Errorf("no %s rate set for today: %w", line.Category, ErrInvalidInput)
		}
		if line.MakingCharge < 0 {
			return fmt.Errorf("making charge must not be negative: %w", ErrInvalidInput)
		}
		return nil
	}
	if line.SellingPrice <= 0 {
		return fmt.Errorf("%s line requires a positive selling price: %w", line.Category, ErrInvalidInput)
	}
	return nil
}
