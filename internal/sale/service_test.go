package sale_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-aurum/internal/cart"
	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/events"
	"github.com/noah-isme/backend-aurum/internal/invoice"
	"github.com/noah-isme/backend-aurum/internal/pricing"
	"github.com/noah-isme/backend-aurum/internal/resilience"
	"github.com/noah-isme/backend-aurum/internal/sale"
)

type fakeCounter struct {
	mu       sync.Mutex
	last     int64
	failures int
	calls    int
}

func (c *fakeCounter) NextNumber(_ context.Context, _ string, seed int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failures > 0 {
		c.failures--
		return 0, errors.New("counter unavailable")
	}
	if c.last == 0 {
		c.last = seed
	}
	c.last++
	return c.last, nil
}

type fakeInvoices struct {
	mu       sync.Mutex
	byNumber map[string]invoice.Invoice
	failNext bool
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{byNumber: make(map[string]invoice.Invoice)}
}

func (f *fakeInvoices) Insert(_ context.Context, inv invoice.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errors.New("insert failed")
	}
	if _, exists := f.byNumber[inv.Number]; exists {
		return errors.New("duplicate invoice number")
	}
	f.byNumber[inv.Number] = inv
	return nil
}

type fakeInventory struct {
	mu  sync.Mutex
	qty map[uuid.UUID]int32
}

func (f *fakeInventory) DecrementQuantity(_ context.Context, id uuid.UUID) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.qty[id]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	if q <= 0 {
		return 0, catalog.ErrInsufficientStock
	}
	f.qty[id] = q - 1
	return q - 1, nil
}

type fakeSnapshots struct {
	mu      sync.Mutex
	cleared []string
}

func (f *fakeSnapshots) Clear(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, id)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakeEvents) Emit(_ context.Context, topic string, aggregateID uuid.UUID, _ any) (events.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID}, nil
}

func (f *fakeEvents) seen(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type deps struct {
	counter   *fakeCounter
	invoices  *fakeInvoices
	inventory *fakeInventory
	snapshots *fakeSnapshots
	events    *fakeEvents
	svc       *sale.Service
}

func newDeps() deps {
	d := deps{
		counter:   &fakeCounter{},
		invoices:  newFakeInvoices(),
		inventory: &fakeInventory{qty: make(map[uuid.UUID]int32)},
		snapshots: &fakeSnapshots{},
		events:    &fakeEvents{},
	}
	d.svc = &sale.Service{
		Counter:     d.counter,
		Invoices:    d.invoices,
		Inventory:   d.inventory,
		Snapshots:   d.snapshots,
		Events:      d.events,
		CounterKey:  "invoices",
		CounterSeed: 1000,
		Retry:       resilience.RetryPolicy{MaxAttempts: 3, Base: time.Millisecond},
		Logger:      zerolog.Nop(),
		Now:         func() time.Time { return time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC) },
	}
	return d
}

func goldSession(productID uuid.UUID) cart.Session {
	session := cart.NewSession("session-1")
	session.Customer = cart.Customer{Name: "Priya Nair", Phone: "9800012345"}
	session.Lines = []cart.Line{{
		ID:               "1",
		ProductID:        productID,
		Barcode:          "GLD123",
		ProductName:      "Gold Ring",
		Category:         catalog.CategoryGold,
		WeightMg:         10_000,
		CurrentRate:      583_000,
		MakingCharge:     1200,
		MakingChargeType: catalog.MakingPercentage,
		GSTBps:           300,
	}}
	session.Recompute(300)
	session.AmountPaid = session.Summary.FinalTotal
	session.Recompute(300)
	return session
}

func TestCommitSuccess(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 2

	result, err := d.svc.Commit(context.Background(), goldSession(productID))
	require.NoError(t, err)

	require.Equal(t, "1001", result.Invoice.Number)
	require.Equal(t, invoice.StatusPaid, result.Invoice.Status)
	require.Equal(t, "2026-03", result.Invoice.Month)
	require.Len(t, result.Invoice.Items, 1)
	require.Empty(t, result.Depleted)

	require.EqualValues(t, 1, d.inventory.qty[productID])
	require.Equal(t, []string{"session-1"}, d.snapshots.cleared)
	require.True(t, d.events.seen(events.TopicSaleCommitted))
	require.Contains(t, d.invoices.byNumber, "1001")
}

func TestCommitMarksPendingWhenBalanceRemains(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 1

	session := goldSession(productID)
	session.AmountPaid = session.Summary.FinalTotal / 2
	session.Recompute(300)

	result, err := d.svc.Commit(context.Background(), session)
	require.NoError(t, err)
	require.Equal(t, invoice.StatusPending, result.Invoice.Status)
	require.Positive(t, result.Invoice.Payment.BalanceDue)
}

func TestCommitEmptyCart(t *testing.T) {
	d := newDeps()

	session := cart.NewSession("session-1")
	session.Customer = cart.Customer{Name: "Priya Nair"}
	_, err := d.svc.Commit(context.Background(), session)
	require.ErrorIs(t, err, sale.ErrEmptyCart)

	var commitErr *sale.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, sale.StepValidating, commitErr.Step)
	require.False(t, commitErr.Reconcile)
	require.Zero(t, d.counter.calls)
}

func TestCommitRejectsBlankCustomerName(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 2

	session := goldSession(productID)
	session.Customer.Name = "   "

	_, err := d.svc.Commit(context.Background(), session)
	var commitErr *sale.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, sale.StepValidating, commitErr.Step)

	var validationErr *sale.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "customer.name", validationErr.Field)

	// Nothing durable: no number reserved, no invoice, stock untouched.
	require.Zero(t, d.counter.calls)
	require.Empty(t, d.invoices.byNumber)
	require.EqualValues(t, 2, d.inventory.qty[productID])
}

func TestCommitRevalidatesRehydratedLines(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 2

	cases := []struct {
		name   string
		mutate func(*cart.Line)
	}{
		{"metal line without weight", func(l *cart.Line) { l.WeightMg = 0 }},
		{"metal line without rate", func(l *cart.Line) { l.CurrentRate = 0 }},
		{"imitation line without price", func(l *cart.Line) {
			l.Category = catalog.CategoryImitation
			l.SellingPrice = 0
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := goldSession(productID)
			tc.mutate(&session.Lines[0])

			_, err := d.svc.Commit(context.Background(), session)
			var commitErr *sale.CommitError
			require.ErrorAs(t, err, &commitErr)
			require.Equal(t, sale.StepValidating, commitErr.Step)
			require.Zero(t, d.counter.calls)
		})
	}
}

func TestCommitRetriesCounter(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 1
	d.counter.failures = 2

	result, err := d.svc.Commit(context.Background(), goldSession(productID))
	require.NoError(t, err)
	require.Equal(t, "1001", result.Invoice.Number)
	require.Equal(t, 3, d.counter.calls)
}

func TestCommitCounterExhaustion(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 1
	d.counter.failures = 10

	_, err := d.svc.Commit(context.Background(), goldSession(productID))
	var commitErr *sale.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, sale.StepReservingNumber, commitErr.Step)
	require.False(t, commitErr.Reconcile)
	require.Empty(t, d.invoices.byNumber)
	require.EqualValues(t, 1, d.inventory.qty[productID])
}

func TestCommitBurnsNumberOnInsertFailure(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 2
	d.invoices.failNext = true

	_, err := d.svc.Commit(context.Background(), goldSession(productID))
	var commitErr *sale.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, sale.StepPersistingInvoice, commitErr.Step)
	require.EqualValues(t, 1001, commitErr.InvoiceNumber)
	require.False(t, commitErr.Reconcile)
	require.True(t, d.events.seen(events.TopicInvoiceBurned))
	require.EqualValues(t, 2, d.inventory.qty[productID])

	// Retrying the same sale reserves a fresh number; 1001 stays burned.
	result, err := d.svc.Commit(context.Background(), goldSession(productID))
	require.NoError(t, err)
	require.Equal(t, "1002", result.Invoice.Number)
	require.NotContains(t, d.invoices.byNumber, "1001")
}

func TestCommitInsufficientStockRequiresReconciliation(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 0

	_, err := d.svc.Commit(context.Background(), goldSession(productID))
	var commitErr *sale.CommitError
	require.ErrorAs(t, err, &commitErr)
	require.Equal(t, sale.StepUpdatingInventory, commitErr.Step)
	require.True(t, commitErr.Reconcile)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	// The invoice row exists and is never rolled back.
	require.Contains(t, d.invoices.byNumber, "1001")
	require.True(t, d.events.seen(events.TopicReconcileRequired))
	require.Empty(t, d.snapshots.cleared)
	require.EqualValues(t, 0, d.inventory.qty[productID])
}

func TestCommitReportsDepletedProducts(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 1

	result, err := d.svc.Commit(context.Background(), goldSession(productID))
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{productID}, result.Depleted)
	require.True(t, d.events.seen(events.TopicStockDepleted))
}

func TestConcurrentCommitsIssueDistinctNumbers(t *testing.T) {
	d := newDeps()
	const workers = 16

	productIDs := make([]uuid.UUID, workers)
	for i := range productIDs {
		productIDs[i] = uuid.New()
		d.inventory.qty[productIDs[i]] = 1
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	numbers := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session := goldSession(productIDs[i])
			session.ID = session.ID + "-" + numbersafe(i)
			result, err := d.svc.Commit(context.Background(), session)
			errs[i] = err
			numbers[i] = result.Invoice.Number
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.False(t, seen[numbers[i]], "number %s issued twice", numbers[i])
		seen[numbers[i]] = true
	}
	// All issued numbers fall in the contiguous block above the seed.
	for n := int64(1001); n <= int64(1000+workers); n++ {
		require.True(t, seen[invoice.FormatNumber(n)])
	}
}

func numbersafe(i int) string {
	return string(rune('a' + i%26))
}

func TestStockNeverGoesNegativeUnderContention(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 3
	const workers = 10

	var wg sync.WaitGroup
	var committed, conflicted int32
	var mu sync.Mutex
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.svc.Commit(context.Background(), goldSession(productID))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				committed++
				return
			}
			if errors.Is(err, catalog.ErrInsufficientStock) {
				conflicted++
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 3, committed)
	require.EqualValues(t, workers-3, conflicted)
	require.EqualValues(t, 0, d.inventory.qty[productID])
}

func TestCommitTotalsPinGoldScenario(t *testing.T) {
	d := newDeps()
	productID := uuid.New()
	d.inventory.qty[productID] = 1

	session := goldSession(productID)
	result, err := d.svc.Commit(context.Background(), session)
	require.NoError(t, err)

	// 10g at 5830.00/g, 12% making, 3% line GST, 3% cart GST.
	require.EqualValues(t, 6_725_488, result.Invoice.Items[0].TotalPrice)
	require.EqualValues(t, pricing.Money(6_927_252), result.Invoice.Payment.FinalTotal)
}
