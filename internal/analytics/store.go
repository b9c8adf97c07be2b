// Package analytics answers dashboard questions from the invoice record:
// revenue per day and the best-selling products.
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DailySales is one day's aggregate over committed invoices.
type DailySales struct {
	Day      time.Time `json:"day"`
	Invoices int64     `json:"invoices"`
	Revenue  int64     `json:"revenue"`
}

// TopProduct ranks a product by units sold across invoice items.
type TopProduct struct {
	Barcode     string `json:"barcode"`
	ProductName string `json:"productName"`
	Units       int64  `json:"units"`
	Revenue     int64  `json:"revenue"`
}

// Store reads aggregates straight off the invoices table. Each item line
// is one physical unit, so unit counts come from counting array elements.
type Store struct {
	Pool *pgxpool.Pool
}

func (s *Store) SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("analytics store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*) AS invoices,
		       COALESCE(SUM((payment->>'finalTotal')::bigint), 0) AS revenue
		FROM invoices
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySales
	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.Day, &d.Invoices, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) TopProducts(ctx context.Context, from, to time.Time, limit, offset int32) ([]TopProduct, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("analytics store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT item->>'barcode' AS barcode,
		       item->>'productName' AS product_name,
		       COUNT(*) AS units,
		       COALESCE(SUM((item->>'totalPrice')::bigint), 0) AS revenue
		FROM invoices, jsonb_array_elements(items) AS item
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1, 2
		ORDER BY units DESC, revenue DESC
		LIMIT $3 OFFSET $4`, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.Barcode, &t.ProductName, &t.Units, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
