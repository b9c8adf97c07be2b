package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const listCacheKey = "catalog:products"

// Storer is the persistence surface the service needs.
type Storer interface {
	Create(ctx context.Context, p Product) (Product, error)
	List(ctx context.Context) ([]Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	LowStock(ctx context.Context, threshold int32) ([]Product, error)
}

// Service handles product registration and catalog reads. DefaultGSTBps is
// applied to registrations that omit a GST rate.
type Service struct {
	Store         Storer
	Cache         *Cache
	DefaultGSTBps int
	Now           func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RegisterInput carries the operator-supplied fields for a new product.
type RegisterInput struct {
	Name             string `json:"name" validate:"required"`
	Category         string `json:"category" validate:"required"`
	WeightMg         int64  `json:"weightMg"`
	SellingPrice     int64  `json:"sellingPrice"`
	MakingCharge     int64  `json:"makingCharge"`
	MakingChargeType string `json:"makingChargeType"`
	GSTBps           int    `json:"gstBps"`
	Quantity         int32  `json:"quantity" validate:"gte=0"`
}

// Register validates the input, generates a barcode, and persists the product.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	category, err := ParseCategory(in.Category)
	if err != nil {
		return Product{}, err
	}
	gstBps := in.GSTBps
	if gstBps == 0 {
		gstBps = s.DefaultGSTBps
	}
	p := Product{
		ID:           uuid.New(),
		Name:         in.Name,
		Category:     category,
		WeightMg:     in.WeightMg,
		SellingPrice: in.SellingPrice,
		MakingCharge: in.MakingCharge,
		GSTBps:       gstBps,
		Quantity:     in.Quantity,
		Status:       StatusInStock,
	}
	if category.PricedByWeight() {
		mct, err := ParseMakingChargeType(in.MakingChargeType)
		if err != nil {
			return Product{}, err
		}
		p.MakingChargeType = mct
	} else {
		p.MakingChargeType = MakingFixed
	}
	if p.Quantity == 0 {
		p.Status = StatusSoldOut
	}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	p.Barcode = GenerateBarcode(category, s.now())
	created, err := s.Store.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	_ = s.Cache.Invalidate(ctx, listCacheKey)
	return created, nil
}

// List returns the catalog, serving from the Redis cache when warm.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []Product
	if ok, err := s.Cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.Cache.SetJSON(ctx, listCacheKey, products)
	return products, nil
}

// FollowFeed consumes feed snapshots until ctx is cancelled or the feed
// stops, replacing the cached product list on every broadcast. Stock changes
// from committed sales land in the cache without waiting for the next List
// miss or the register-time invalidation.
func (s *Service) FollowFeed(ctx context.Context, feed *Feed) {
	if s == nil || feed == nil {
		return
	}
	snapshots, cancel := feed.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			_ = s.Cache.SetJSON(ctx, listCacheKey, snapshot)
		}
	}
}

// GetByBarcode resolves one product for the scanner flow. Never cached: the
// cart needs the live quantity.
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	if s == nil || s.Store == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	return s.Store.GetByBarcode(ctx, barcode)
}

// Alerts lists products at or below the low-stock threshold.
func (s *Service) Alerts(ctx context.Context, threshold int32) ([]Product, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("catalog service not configured")
	}
	return s.Store.LowStock(ctx, threshold)
}
