package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dayFormat = "2006-01-02"

// Querier defines the database access required for analytics reads.
type Querier interface {
	SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailySales, error)
	TopProducts(ctx context.Context, from, to time.Time, limit, offset int32) ([]TopProduct, error)
}

// Service provides cached access to sales aggregates. R and TTL are
// optional; without them every read goes straight to the database.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SalesRange returns daily sales between from (inclusive) and to (exclusive).
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := fmt.Sprintf("an:sales:%s:%s", from.Format(dayFormat), to.Format(dayFormat))
	if rows, ok := fromCache[[]DailySales](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.SalesDailyRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, rows)
	return rows, nil
}

// TopProducts returns best sellers within the window ordered by units sold.
func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit, offset int32) ([]TopProduct, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := fmt.Sprintf("an:top:%s:%s:%d:%d", from.Format(dayFormat), to.Format(dayFormat), limit, offset)
	if rows, ok := fromCache[[]TopProduct](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.TopProducts(ctx, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, rows)
	return rows, nil
}

func (s *Service) cacheEnabled() bool {
	return s.R != nil && s.TTL > 0
}

// fromCache treats every Redis or decode failure as a miss.
func fromCache[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var value T
	if !s.cacheEnabled() {
		return value, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return value, false
	}
	if json.Unmarshal(data, &value) != nil {
		var zero T
		return zero, false
	}
	return value, true
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if !s.cacheEnabled() {
		return
	}
	if data, err := json.Marshal(value); err == nil {
		_ = s.R.Set(ctx, key, data, s.TTL).Err()
	}
}
