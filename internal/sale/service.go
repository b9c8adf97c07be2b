// Package sale drives the commit protocol that turns an in-progress cart
// session into a durable invoice with decremented inventory.
package sale

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-aurum/internal/cart"
	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/events"
	"github.com/noah-isme/backend-aurum/internal/invoice"
	"github.com/noah-isme/backend-aurum/internal/obs"
	"github.com/noah-isme/backend-aurum/internal/resilience"
)

// Counter reserves monotonically increasing invoice numbers.
type Counter interface {
	NextNumber(ctx context.Context, key string, seed int64) (int64, error)
}

// InvoiceWriter persists the invoice record.
type InvoiceWriter interface {
	Insert(ctx context.Context, inv invoice.Invoice) error
}

// Inventory applies conditional stock decrements.
type Inventory interface {
	DecrementQuantity(ctx context.Context, id uuid.UUID) (int32, error)
}

// SnapshotClearer drops the committed session's crash-recovery snapshot.
type SnapshotClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// EventEmitter records domain events raised during the protocol.
type EventEmitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (events.Event, error)
}

// Service runs the sale commit protocol. One Commit call walks the steps
// in order; on failure the returned CommitError names the step reached
// and whether durable state was left behind.
type Service struct {
	Counter   Counter
	Invoices  InvoiceWriter
	Inventory Inventory
	Snapshots SnapshotClearer
	Events    EventEmitter

	CounterKey  string
	CounterSeed int64
	Retry       resilience.RetryPolicy
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Result reports a successful commit along with any products whose stock
// reached zero during it.
type Result struct {
	Invoice  invoice.Invoice `json:"invoice"`
	Depleted []uuid.UUID     `json:"depleted,omitempty"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Commit finalizes the session. The protocol is deliberately sequenced so
// that every failure mode has a defined recovery story:
//
//   - failures before the invoice row exists leave nothing durable and the
//     cashier simply retries, at the cost of a burned invoice number once
//     one was reserved;
//   - failures after the invoice row exists are surfaced as requiring
//     reconciliation and are never silently retried.
func (s *Service) Commit(ctx context.Context, session cart.Session) (Result, error) {
	if s == nil || s.Counter == nil || s.Invoices == nil || s.Inventory == nil {
		return Result{}, errors.New("sale service not configured")
	}
	start := s.now()

	if err := validate(session); err != nil {
		s.observe(StepValidating, "failure", start)
		return Result{}, &CommitError{Step: StepValidating, Err: err}
	}

	reserved, err := s.reserveNumber(ctx)
	if err != nil {
		s.observe(StepReservingNumber, "failure", start)
		return Result{}, &CommitError{Step: StepReservingNumber, Err: err}
	}

	inv := s.buildInvoice(session, reserved)
	if err := s.Invoices.Insert(ctx, inv); err != nil {
		// The reserved number is burned: it will never be issued again
		// and never appears on an invoice. Monotonicity of issued
		// numbers is preserved at the cost of a gap.
		countBurn()
		s.emit(ctx, events.TopicInvoiceBurned, inv.ID, map[string]any{
			"number":    inv.Number,
			"sessionId": session.ID,
		})
		s.observe(StepPersistingInvoice, "failure", start)
		return Result{}, &CommitError{Step: StepPersistingInvoice, InvoiceNumber: reserved, Err: err}
	}

	depleted, err := s.decrementStock(ctx, session)
	if err != nil {
		// The invoice row is durable. Rolling it back would violate the
		// append-only invoice record, so the error is escalated for a
		// human to reconcile stock against invoice items.
		s.emit(ctx, events.TopicReconcileRequired, inv.ID, map[string]any{
			"number":    inv.Number,
			"sessionId": session.ID,
			"reason":    err.Error(),
		})
		s.observe(StepUpdatingInventory, "failure", start)
		return Result{Invoice: inv}, &CommitError{
			Step:          StepUpdatingInventory,
			InvoiceNumber: reserved,
			Reconcile:     true,
			Err:           err,
		}
	}
	for _, id := range depleted {
		s.emit(ctx, events.TopicStockDepleted, id, map[string]any{
			"invoiceNumber": inv.Number,
		})
	}

	// Snapshot cleanup is best-effort. The invoice exists and stock is
	// updated; a stale snapshot expires on its own TTL.
	if s.Snapshots != nil {
		if err := s.Snapshots.Clear(ctx, session.ID); err != nil {
			s.Logger.Warn().Err(err).Str("session_id", session.ID).
				Msg("sale committed but snapshot cleanup failed")
		}
	}
	s.emit(ctx, events.TopicSaleCommitted, inv.ID, map[string]any{
		"invoiceNumber": inv.Number,
		"total":         inv.Payment.FinalTotal,
		"customerName":  inv.Customer.Name,
		"customerEmail": inv.Customer.Email,
	})
	s.observe(StepCommitted, "success", start)
	return Result{Invoice: inv, Depleted: depleted}, nil
}

// reserveNumber increments the shared counter under the retry policy.
// Counter contention resolves quickly, so transient errors are retried
// with jittered backoff before the commit is abandoned.
func (s *Service) reserveNumber(ctx context.Context) (int64, error) {
	key := s.CounterKey
	if key == "" {
		key = "invoices"
	}
	var reserved int64
	err := resilience.Retry(ctx, s.Retry, func(ctx context.Context) error {
		n, err := s.Counter.NextNumber(ctx, key, s.CounterSeed)
		if err != nil {
			countRetry("failure")
			return err
		}
		reserved = n
		countRetry("success")
		return nil
	})
	if err != nil {
		return 0, err
	}
	if obs.InvoiceNumbersIssued != nil {
		obs.InvoiceNumbersIssued.Inc()
	}
	return reserved, nil
}

func (s *Service) buildInvoice(session cart.Session, reserved int64) invoice.Invoice {
	now := s.now()
	status := invoice.StatusPending
	if session.Summary.BalanceDue <= 0 {
		status = invoice.StatusPaid
	}
	return invoice.Invoice{
		ID:       uuid.New(),
		Number:   invoice.FormatNumber(reserved),
		Customer: session.Customer,
		Items:    session.Lines,
		Payment: invoice.Payment{
			Summary: session.Summary,
			Mode:    session.PaymentMode,
			Date:    now,
		},
		Status:    status,
		Month:     invoice.MonthKey(now),
		CreatedAt: now,
	}
}

// decrementStock applies one conditional decrement per line and returns
// the products that hit zero. Stock is never driven negative: a line whose
// product is already at zero fails the decrement instead.
func (s *Service) decrementStock(ctx context.Context, session cart.Session) ([]uuid.UUID, error) {
	var depleted []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(session.Lines))
	for _, line := range session.Lines {
		remaining, err := s.Inventory.DecrementQuantity(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrInsufficientStock) && obs.StockConflictTotal != nil {
				obs.StockConflictTotal.Inc()
			}
			return nil, fmt.Errorf("decrement %s: %w", line.Barcode, err)
		}
		if remaining == 0 && !seen[line.ProductID] {
			seen[line.ProductID] = true
			depleted = append(depleted, line.ProductID)
		}
	}
	return depleted, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("domain event emit failed")
	}
}

func (s *Service) observe(step Step, result string, start time.Time) {
	if obs.SaleCommitTotal != nil {
		obs.SaleCommitTotal.WithLabelValues(step.String(), result).Inc()
	}
	if obs.SaleCommitLatency != nil {
		obs.SaleCommitLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
}

func countRetry(result string) {
	if obs.CounterRetryTotal != nil {
		obs.CounterRetryTotal.WithLabelValues(result).Inc()
	}
}

func countBurn() {
	if obs.InvoiceNumbersBurned != nil {
		obs.InvoiceNumbersBurned.Inc()
	}
}

// validate re-checks the whole session at commit time. Sessions are
// rehydrated from Redis snapshots, so add-time validation alone cannot be
// trusted here.
func validate(session cart.Session) error {
	if strings.TrimSpace(session.Customer.Name) == "" {
		return &ValidationError{Field: "customer.name", Reason: "is required"}
	}
	if len(session.Lines) == 0 {
		return ErrEmptyCart
	}
	for _, line := range session.Lines {
		if line.ProductID == uuid.Nil {
			return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %s has no product", line.ID)}
		}
		if line.TotalPrice < 0 {
			return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %s has a negative total", line.ID)}
		}
		if line.Category.PricedByWeight() {
			if line.WeightMg <= 0 {
				return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %s requires a positive weight", line.ID)}
			}
			if line.CurrentRate <= 0 {
				return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %s has no metal rate", line.ID)}
			}
		} else if line.SellingPrice <= 0 {
			return &ValidationError{Field: "lines", Reason: fmt.Sprintf("line %s requires a positive selling price", line.ID)}
		}
	}
	if session.Discount < 0 {
		return &ValidationError{Field: "discount", Reason: "must not be negative"}
	}
	if session.AmountPaid < 0 {
		return &ValidationError{Field: "amountPaid", Reason: "must not be negative"}
	}
	if strings.TrimSpace(session.PaymentMode) == "" {
		return &ValidationError{Field: "paymentMode", Reason: "is required"}
	}
	return nil
}
