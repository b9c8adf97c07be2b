package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-aurum/internal/cart"
	"github.com/noah-isme/backend-aurum/internal/catalog"
	"github.com/noah-isme/backend-aurum/internal/pricing"
	"github.com/noah-isme/backend-aurum/internal/rates"
)

type fakeProducts struct {
	byBarcode map[string]catalog.Product
}

func (f *fakeProducts) GetByBarcode(_ context.Context, barcode string) (catalog.Product, error) {
	p, ok := f.byBarcode[barcode]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type fakeRates struct {
	quote rates.Quote
}

func (f *fakeRates) Current(context.Context) (rates.Quote, error) {
	return f.quote, nil
}

func newService(t *testing.T) (*cart.Service, *fakeProducts, *fakeRates) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	products := &fakeProducts{byBarcode: map[string]catalog.Product{
		"GLD1001": {
			ID:               uuid.New(),
			Name:             "Gold Chain 22K",
			Category:         catalog.CategoryGold,
			Barcode:          "GLD1001",
			WeightMg:         10_000,
			MakingCharge:     1200,
			MakingChargeType: catalog.MakingPercentage,
			GSTBps:           300,
			Quantity:         3,
		},
		"IMT3001": {
			ID:           uuid.New(),
			Name:         "Imitation Necklace Set",
			Category:     catalog.CategoryImitation,
			Barcode:      "IMT3001",
			SellingPrice: 85_000,
			GSTBps:       300,
			Quantity:     10,
		},
		"GLD1099": {
			ID:               uuid.New(),
			Name:             "Sold Out Ring",
			Category:         catalog.CategoryGold,
			Barcode:          "GLD1099",
			WeightMg:         4_000,
			MakingChargeType: catalog.MakingPercentage,
			GSTBps:           300,
			Quantity:         0,
		},
	}}
	quotes := &fakeRates{quote: rates.Quote{GoldPerGram: 583_000, SilverPerGram: 7_500}}

	base := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc := &cart.Service{
		Products:   products,
		Rates:      quotes,
		Snapshots:  cart.SnapshotStore{R: client, TTL: time.Hour},
		CartGSTBps: 300,
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		},
	}
	return svc, products, quotes
}

func TestGetCreatesFreshSession(t *testing.T) {
	svc, _, _ := newService(t)

	session, err := svc.Get(context.Background(), "till-1")
	require.NoError(t, err)
	require.Equal(t, "till-1", session.ID)
	require.Empty(t, session.Lines)
	require.Equal(t, pricing.DiscountFlat, session.DiscountType)
	require.Equal(t, "cash", session.PaymentMode)
}

func TestGetRequiresSessionID(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Get(context.Background(), "  ")
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestAddLineCapturesRateAtScanTime(t *testing.T) {
	svc, _, quotes := newService(t)
	ctx := context.Background()

	session, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)
	require.Len(t, session.Lines, 1)
	require.Equal(t, int64(583_000), session.Lines[0].CurrentRate)
	require.Equal(t, int64(6_725_488), session.Lines[0].TotalPrice)

	// A later rate change must not reprice the already scanned line.
	quotes.quote.GoldPerGram = 600_000
	session, err = svc.Get(ctx, "till-1")
	require.NoError(t, err)
	require.Equal(t, int64(583_000), session.Lines[0].CurrentRate)
}

func TestAddLineScanTwiceAddsTwoLines(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)
	session, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)

	require.Len(t, session.Lines, 2)
	require.NotEqual(t, session.Lines[0].ID, session.Lines[1].ID)
	require.Equal(t, int64(2*6_725_488), session.Summary.Subtotal)
}

func TestAddLineRejectsSoldOutProduct(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.AddLine(context.Background(), "till-1", "GLD1099")
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestAddLineRejectsUnknownBarcode(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.AddLine(context.Background(), "till-1", "NOPE")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAddLineRejectsMetalWithoutRate(t *testing.T) {
	svc, _, quotes := newService(t)
	quotes.quote = rates.Quote{}

	_, err := svc.AddLine(context.Background(), "till-1", "GLD1001")
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestRemoveLine(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	session, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)
	session, err = svc.AddLine(ctx, "till-1", "IMT3001")
	require.NoError(t, err)
	require.Len(t, session.Lines, 2)

	session, err = svc.RemoveLine(ctx, "till-1", session.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, session.Lines, 1)
	require.Equal(t, "IMT3001", session.Lines[0].Barcode)
	require.Equal(t, int64(87_550), session.Summary.Subtotal)
}

func TestRemoveLineUnknownID(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)

	_, err = svc.RemoveLine(ctx, "till-1", "does-not-exist")
	require.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestUpdateSummaryRecomputesTotals(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "till-1", "IMT3001")
	require.NoError(t, err)

	session, err := svc.UpdateSummary(ctx, "till-1", cart.SummaryInput{
		Customer:     cart.Customer{Name: "Priya", Phone: "9876543210"},
		Discount:     5_000,
		DiscountType: pricing.DiscountFlat,
		AmountPaid:   50_000,
		PaymentMode:  "upi",
	})
	require.NoError(t, err)

	// 87550 line total + 3% cart GST = 90176, minus 5000 flat discount.
	require.Equal(t, int64(90_176), session.Summary.Total)
	require.Equal(t, int64(85_176), session.Summary.FinalTotal)
	require.Equal(t, int64(35_176), session.Summary.BalanceDue)
	require.Equal(t, "Priya", session.Customer.Name)
	require.Equal(t, "upi", session.PaymentMode)
}

func TestUpdateSummaryRejectsBadInputs(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateSummary(ctx, "till-1", cart.SummaryInput{Discount: -1})
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	_, err = svc.UpdateSummary(ctx, "till-1", cart.SummaryInput{AmountPaid: -1})
	require.ErrorIs(t, err, cart.ErrInvalidInput)

	_, err = svc.UpdateSummary(ctx, "till-1", cart.SummaryInput{DiscountType: "bogus"})
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestSessionSurvivesRestart(t *testing.T) {
	// A second service over the same Redis stands in for a restarted process.
	svc, products, quotes := newService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)

	recovered := &cart.Service{
		Products:   products,
		Rates:      quotes,
		Snapshots:  svc.Snapshots,
		CartGSTBps: svc.CartGSTBps,
	}
	session, err := recovered.Get(ctx, "till-1")
	require.NoError(t, err)
	require.Len(t, session.Lines, 1)
	require.Equal(t, int64(6_725_488), session.Lines[0].TotalPrice)
	require.Equal(t, int64(6_927_252), session.Summary.FinalTotal)
}

func TestClearDropsSnapshot(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.AddLine(ctx, "till-1", "GLD1001")
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "till-1"))

	session, err := svc.Get(ctx, "till-1")
	require.NoError(t, err)
	require.Empty(t, session.Lines)
}
