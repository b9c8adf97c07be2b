package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-aurum/internal/catalog"
)

type fakeStore struct {
	created   []catalog.Product
	listCalls int
	products  []catalog.Product
}

func (f *fakeStore) Create(_ context.Context, p catalog.Product) (catalog.Product, error) {
	f.created = append(f.created, p)
	f.products = append(f.products, p)
	return p, nil
}

func (f *fakeStore) List(context.Context) ([]catalog.Product, error) {
	f.listCalls++
	return f.products, nil
}

func (f *fakeStore) GetByBarcode(_ context.Context, barcode string) (catalog.Product, error) {
	for _, p := range f.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeStore) LowStock(_ context.Context, threshold int32) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		if p.Quantity <= threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func newCatalogService(t *testing.T) (*catalog.Service, *fakeStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := &fakeStore{}
	svc := &catalog.Service{
		Store: store,
		Cache: catalog.NewCache(client, time.Minute),
		Now:   func() time.Time { return time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC) },
	}
	return svc, store
}

func TestRegisterGoldProduct(t *testing.T) {
	svc, store := newCatalogService(t)

	p, err := svc.Register(context.Background(), catalog.RegisterInput{
		Name:             "Gold Chain 22K",
		Category:         "gold",
		WeightMg:         10_000,
		MakingCharge:     1200,
		MakingChargeType: "percentage",
		GSTBps:           300,
		Quantity:         5,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, p.ID)
	require.Equal(t, catalog.CategoryGold, p.Category)
	require.Equal(t, catalog.StatusInStock, p.Status)
	require.Contains(t, p.Barcode, "GLD")
	require.Len(t, store.created, 1)
}

func TestRegisterImitationDefaultsChargeType(t *testing.T) {
	svc, _ := newCatalogService(t)

	p, err := svc.Register(context.Background(), catalog.RegisterInput{
		Name:         "Necklace Set",
		Category:     "imitation",
		SellingPrice: 85_000,
		GSTBps:       300,
		Quantity:     10,
	})
	require.NoError(t, err)
	require.Equal(t, catalog.MakingFixed, p.MakingChargeType)
}

func TestRegisterAppliesDefaultGSTRate(t *testing.T) {
	svc, _ := newCatalogService(t)
	svc.DefaultGSTBps = 300

	p, err := svc.Register(context.Background(), catalog.RegisterInput{
		Name:         "Necklace Set",
		Category:     "imitation",
		SellingPrice: 85_000,
		Quantity:     10,
	})
	require.NoError(t, err)
	require.Equal(t, 300, p.GSTBps)

	// An explicit rate wins over the default.
	p, err = svc.Register(context.Background(), catalog.RegisterInput{
		Name:         "Bridal Set",
		Category:     "imitation",
		SellingPrice: 240_000,
		GSTBps:       1800,
		Quantity:     2,
	})
	require.NoError(t, err)
	require.Equal(t, 1800, p.GSTBps)
}

func TestRegisterZeroQuantityIsSoldOut(t *testing.T) {
	svc, _ := newCatalogService(t)

	p, err := svc.Register(context.Background(), catalog.RegisterInput{
		Name:         "Display Piece",
		Category:     "imitation",
		SellingPrice: 10_000,
		Quantity:     0,
	})
	require.NoError(t, err)
	require.Equal(t, catalog.StatusSoldOut, p.Status)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newCatalogService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, catalog.RegisterInput{Name: "X", Category: "platinum"})
	require.Error(t, err)

	_, err = svc.Register(ctx, catalog.RegisterInput{
		Name: "Gold Ring", Category: "gold", WeightMg: 0,
		MakingChargeType: "percentage",
	})
	require.Error(t, err)

	_, err = svc.Register(ctx, catalog.RegisterInput{
		Name: "Gold Ring", Category: "gold", WeightMg: 4_000,
		MakingChargeType: "per-item",
	})
	require.Error(t, err)
}

func TestListServesFromCache(t *testing.T) {
	svc, store := newCatalogService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, catalog.RegisterInput{
		Name: "Necklace Set", Category: "imitation", SellingPrice: 85_000, Quantity: 10,
	})
	require.NoError(t, err)

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, store.listCalls, "second read should hit the cache")
}

func TestRegisterInvalidatesListCache(t *testing.T) {
	svc, store := newCatalogService(t)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)

	_, err = svc.Register(ctx, catalog.RegisterInput{
		Name: "Necklace Set", Category: "imitation", SellingPrice: 85_000, Quantity: 10,
	})
	require.NoError(t, err)

	products, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, 2, store.listCalls, "registration should invalidate the cached list")
}

func TestAlerts(t *testing.T) {
	svc, _ := newCatalogService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, catalog.RegisterInput{
		Name: "Low Stock Piece", Category: "imitation", SellingPrice: 10_000, Quantity: 2,
	})
	require.NoError(t, err)
	_, err = svc.Register(ctx, catalog.RegisterInput{
		Name: "Plenty", Category: "imitation", SellingPrice: 10_000, Quantity: 50,
	})
	require.NoError(t, err)

	low, err := svc.Alerts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "Low Stock Piece", low[0].Name)
}
