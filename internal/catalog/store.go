package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested product could not be located.
var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock indicates a decrement would drive quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// Store persists products in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Version identifies a point-in-time view of the catalog. Two equal versions
// guarantee no product row changed in between.
type Version struct {
	Count       int64
	LastUpdated time.Time
}

const productColumns = `id, name, category, barcode, weight_mg, selling_price,
	making_charge, making_charge_type, gst_bps, quantity, status, created_at, updated_at`

// Create registers a new product row.
func (s *Store) Create(ctx context.Context, p Product) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO products (id, name, category, barcode, weight_mg, selling_price,
			making_charge, making_charge_type, gst_bps, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Category, p.Barcode, p.WeightMg, p.SellingPrice,
		p.MakingCharge, p.MakingChargeType, p.GSTBps, p.Quantity, p.Status,
	)
	return scanProduct(row)
}

// List returns all products in registration order.
func (s *Store) List(ctx context.Context) ([]Product, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// GetByBarcode looks up a single product by its barcode.
func (s *Store) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// GetByID looks up a single product by its identifier.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog store not configured")
	}
	row := s.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// LowStock returns products at or below the threshold, depleted first.
func (s *Store) LowStock(ctx context.Context, threshold int32) ([]Product, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE quantity <= $1
		ORDER BY quantity, updated_at DESC`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// DecrementQuantity atomically takes one unit of stock, flipping the status
// to sold_out when the last unit goes. The conditional update is the
// concurrency guard: quantity can never pass below zero.
func (s *Store) DecrementQuantity(ctx context.Context, id uuid.UUID) (int32, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("catalog store not configured")
	}
	var remaining int32
	err := s.Pool.QueryRow(ctx, `
		UPDATE products
		SET quantity = quantity - 1,
		    status = CASE WHEN quantity - 1 <= 0 THEN 'sold_out' ELSE status END,
		    updated_at = now()
		WHERE id = $1 AND quantity > 0
		RETURNING quantity`, id).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	var current int32
	if err := s.Pool.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return 0, fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
}

// CurrentVersion reports the catalog's change marker used by the feed poller.
func (s *Store) CurrentVersion(ctx context.Context) (Version, error) {
	if s == nil || s.Pool == nil {
		return Version{}, errors.New("catalog store not configured")
	}
	var v Version
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*), coalesce(max(updated_at), 'epoch'::timestamptz)
		FROM products`).Scan(&v.Count, &v.LastUpdated)
	return v, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Barcode, &p.WeightMg, &p.SellingPrice,
		&p.MakingCharge, &p.MakingChargeType, &p.GSTBps, &p.Quantity, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}
