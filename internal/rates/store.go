package rates

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists the daily metal rate quote.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) day() string {
	return s.now().Format("2006-01-02")
}

// Current returns the quote for today, falling back to the most recent day
// with a recorded quote. A catalog with no quote at all yields a zero quote;
// metal lines then price to zero and fail cart validation, which is the
// intended stop signal for an operator who forgot to set rates.
func (s *Store) Current(ctx context.Context) (Quote, error) {
	if s == nil || s.Pool == nil {
		return Quote{}, errors.New("rates store not configured")
	}
	var q Quote
	err := s.Pool.QueryRow(ctx, `
		SELECT gold_per_gram, silver_per_gram
		FROM metal_rates
		WHERE day <= $1
		ORDER BY day DESC
		LIMIT 1`, s.day()).Scan(&q.GoldPerGram, &q.SilverPerGram)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, nil
	}
	return q, err
}

// Set upserts today's quote.
func (s *Store) Set(ctx context.Context, q Quote) error {
	if s == nil || s.Pool == nil {
		return errors.New("rates store not configured")
	}
	if q.GoldPerGram < 0 || q.SilverPerGram < 0 {
		return errors.New("rates must not be negative")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO metal_rates (day, gold_per_gram, silver_per_gram)
		VALUES ($1, $2, $3)
		ON CONFLICT (day) DO UPDATE
		SET gold_per_gram = EXCLUDED.gold_per_gram,
		    silver_per_gram = EXCLUDED.silver_per_gram,
		    updated_at = now()`, s.day(), q.GoldPerGram, q.SilverPerGram)
	return err
}
