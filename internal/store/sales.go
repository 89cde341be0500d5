package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/models"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

const salesColumns = `email, day, sale, customers, orders, items_sold, created_at, updated_at`

// SalesStore persists one SalesRecord per (email, day).
type SalesStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSalesStore(db *sql.DB) *SalesStore {
	return &SalesStore{db: db, now: time.Now}
}

func scanSales(row rowScanner) (*models.SalesRecord, error) {
	var r models.SalesRecord
	if err := row.Scan(&r.Email, &r.Day, &r.Sale, &r.Customers, &r.Orders, &r.ItemsSold, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Upsert writes the metrics for (email, day), replacing any earlier values.
// The day is passed as a calendar date so the server's time zone never
// shifts it.
func (s *SalesStore) Upsert(ctx context.Context, email string, day time.Time, m models.SalesMetrics) (*models.SalesRecord, error) {
	now := s.now().UTC()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO sales_records (email, day, sale, customers, orders, items_sold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (email, day) DO UPDATE SET
			sale = EXCLUDED.sale,
			customers = EXCLUDED.customers,
			orders = EXCLUDED.orders,
			items_sold = EXCLUDED.items_sold,
			updated_at = EXCLUDED.updated_at
		RETURNING `+salesColumns,
		models.NormalizeEmail(email), day.Format(DateLayout), m.Sale, m.Customers, m.Orders, m.ItemsSold, now,
	)

	r, err := scanSales(row)
	if err != nil {
		return nil, apperrors.NewStoreFaultError("upsert sales", err)
	}
	return r, nil
}

// Query returns the records for email whose day lies within the inclusive
// bounds, newest day first. A nil bound leaves that side open.
func (s *SalesStore) Query(ctx context.Context, email string, from, to *time.Time) ([]*models.SalesRecord, error) {
	var (
		where = []string{"email = $1"}
		args  = []interface{}{models.NormalizeEmail(email)}
	)
	if from != nil {
		args = append(args, from.Format(DateLayout))
		where = append(where, fmt.Sprintf("day >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, to.Format(DateLayout))
		where = append(where, fmt.Sprintf("day <= $%d", len(args)))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+salesColumns+` FROM sales_records WHERE `+strings.Join(where, " AND ")+` ORDER BY day DESC`,
		args...)
	if err != nil {
		return nil, apperrors.NewStoreFaultError("query sales", err)
	}
	defer rows.Close()

	out := []*models.SalesRecord{}
	for rows.Next() {
		r, err := scanSales(rows)
		if err != nil {
			return nil, apperrors.NewStoreFaultError("query sales", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFaultError("query sales", err)
	}
	return out, nil
}
