package invoice

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested invoice could not be located.
var ErrNotFound = errors.New("invoice not found")

// Store persists invoices and the shared counter in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// NextNumber atomically increments the named counter and returns the
// reserved value. The upsert seeds the counter on first use, so the first
// issued number is seed+1. The single-statement increment is linearizable:
// two concurrent commits can never observe and re-write the same value.
func (s *Store) NextNumber(ctx context.Context, key string, seed int64) (int64, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("invoice store not configured")
	}
	var reserved int64
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO invoice_counters (key, last_number)
		VALUES ($1, $2 + 1)
		ON CONFLICT (key) DO UPDATE
		SET last_number = invoice_counters.last_number + 1
		RETURNING last_number`, key, seed).Scan(&reserved)
	return reserved, err
}

// Insert writes the invoice record. Create-only; the unique number column
// rejects any attempt to reuse a reserved number.
func (s *Store) Insert(ctx context.Context, inv Invoice) error {
	if s == nil || s.Pool == nil {
		return errors.New("invoice store not configured")
	}
	customer, err := json.Marshal(inv.Customer)
	if err != nil {
		return err
	}
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return err
	}
	payment, err := json.Marshal(inv.Payment)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO invoices (id, number, customer, items, payment, status, month, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.Number, customer, items, payment, inv.Status, inv.Month, inv.CreatedAt)
	return err
}

// List returns invoices newest first, optionally filtered to one month.
func (s *Store) List(ctx context.Context, month string, limit, offset int) ([]Invoice, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("invoice store not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var (
		rows pgx.Rows
		err  error
	)
	if month != "" {
		rows, err = s.Pool.Query(ctx, `
			SELECT id, number, customer, items, payment, status, month, created_at
			FROM invoices
			WHERE month = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, month, limit, offset)
	} else {
		rows, err = s.Pool.Query(ctx, `
			SELECT id, number, customer, items, payment, status, month, created_at
			FROM invoices
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2`, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

// GetByNumber loads one invoice by its printed number.
func (s *Store) GetByNumber(ctx context.Context, number string) (Invoice, error) {
	if s == nil || s.Pool == nil {
		return Invoice{}, errors.New("invoice store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT id, number, customer, items, payment, status, month, created_at
		FROM invoices
		WHERE number = $1`, number)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	return inv, err
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv      Invoice
		customer []byte
		items    []byte
		payment  []byte
	)
	if err := row.Scan(&inv.ID, &inv.Number, &customer, &items, &payment,
		&inv.Status, &inv.Month, &inv.CreatedAt); err != nil {
		return Invoice{}, err
	}
	if err := json.Unmarshal(customer, &inv.Customer); err != nil {
		return Invoice{}, err
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return Invoice{}, err
	}
	if err := json.Unmarshal(payment, &inv.Payment); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}
