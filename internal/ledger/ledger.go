// Package ledger records daily sales per franchisee. A day is a calendar
// date in the business's time zone, not an instant.
package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/common/metrics"
	"franchisee-hub/internal/models"
)

const dateLayout = "2006-01-02"

type Store interface {
	Upsert(ctx context.Context, email string, day time.Time, m models.SalesMetrics) (*models.SalesRecord, error)
	Query(ctx context.Context, email string, from, to *time.Time) ([]*models.SalesRecord, error)
}

// Range bounds a query by calendar day, inclusive on both ends. Either
// bound may be nil.
type Range struct {
	From *time.Time
	To   *time.Time
}

type Ledger struct {
	store  Store
	loc    *time.Location
	logger logger.Logger
}

func New(store Store, loc *time.Location, log logger.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{store: store, loc: loc, logger: log}
}

func (l *Ledger) Location() *time.Location { return l.loc }

// StartOfDay returns midnight of t's calendar day in the ledger zone.
func (l *Ledger) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(l.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}

// ParseDay accepts "YYYY-MM-DD" or an RFC 3339 timestamp and returns the
// start of that day in the ledger zone.
func (l *Ledger) ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateLayout, s, l.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid date %q: want YYYY-MM-DD or RFC 3339", s))
	}
	return l.StartOfDay(t), nil
}

// ParseRange parses optional start and end strings; empty means unbounded.
func (l *Ledger) ParseRange(start, end string) (Range, error) {
	var r Range
	if strings.TrimSpace(start) != "" {
		t, err := l.ParseDay(start)
		if err != nil {
			return Range{}, err
		}
		r.From = &t
	}
	if strings.TrimSpace(end) != "" {
		t, err := l.ParseDay(end)
		if err != nil {
			return Range{}, err
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return Range{}, apperrors.NewValidationError("start must not be after end")
	}
	return r, nil
}

// Upsert stores the metrics for (email, day). A second write for the same
// day replaces the first.
func (l *Ledger) Upsert(ctx context.Context, email string, day time.Time, m models.SalesMetrics) (*models.SalesRecord, error) {
	if err := validateMetrics(m); err != nil {
		metrics.SalesUpsertsTotal.WithLabelValues(metrics.OutcomeDeclined).Inc()
		return nil, err
	}

	rec, err := l.store.Upsert(ctx, email, l.StartOfDay(day), m)
	if err != nil {
		metrics.SalesUpsertsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	}
	metrics.SalesUpsertsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	l.localize(rec)
	l.logger.Debug("sales recorded", map[string]interface{}{
		"email": rec.Email,
		"day":   rec.Day.Format(dateLayout),
		"sale":  rec.Sale,
	})
	return rec, nil
}

// Query returns records within r, newest day first.
func (l *Ledger) Query(ctx context.Context, email string, r Range) ([]*models.SalesRecord, error) {
	var from, to *time.Time
	if r.From != nil {
		t := l.StartOfDay(*r.From)
		from = &t
	}
	if r.To != nil {
		t := l.StartOfDay(*r.To)
		to = &t
	}

	recs, err := l.store.Query(ctx, email, from, to)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		l.localize(rec)
	}
	return recs, nil
}

// localize reinterprets the stored calendar date in the ledger zone. The
// driver hands DATE values back as midnight UTC.
func (l *Ledger) localize(rec *models.SalesRecord) {
	y, m, d := rec.Day.Date()
	rec.Day = time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}

func validateMetrics(m models.SalesMetrics) error {
	switch {
	case math.IsNaN(m.Sale) || math.IsInf(m.Sale, 0) || m.Sale < 0:
		return apperrors.NewValidationError("sale must be a non-negative amount")
	case m.Customers < 0:
		return apperrors.NewValidationError("customers must not be negative")
	case m.Orders < 0:
		return apperrors.NewValidationError("orders must not be negative")
	case m.ItemsSold < 0:
		return apperrors.NewValidationError("itemsSold must not be negative")
	}
	return nil
}

// Summarize totals a set of records for the dashboard.
func Summarize(recs []*models.SalesRecord) models.SalesSummary {
	var s models.SalesSummary
	var best *models.SalesRecord
	for _, r := range recs {
		s.Days++
		s.TotalRevenue += r.Sale
		s.TotalCustomers += r.Customers
		s.TotalOrders += r.Orders
		s.TotalItemsSold += r.ItemsSold
		if best == nil || r.Sale > best.Sale {
			best = r
		}
	}
	if s.Days > 0 {
		s.AverageDailyRevenue = roundCents(s.TotalRevenue / float64(s.Days))
	}
	if s.TotalOrders > 0 {
		s.AverageTicket = roundCents(s.TotalRevenue / float64(s.TotalOrders))
	}
	if best != nil {
		day := best.Day
		s.BestDay = &day
	}
	s.TotalRevenue = roundCents(s.TotalRevenue)
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
