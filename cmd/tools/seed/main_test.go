package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"franchisee-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSales struct {
	days    []time.Time
	metrics []models.SalesMetrics
	failAt  int
}

func (r *recordingSales) Upsert(_ context.Context, email string, day time.Time, m models.SalesMetrics) (*models.SalesRecord, error) {
	if r.failAt > 0 && len(r.days) == r.failAt {
		return nil, errors.New("db down")
	}
	r.days = append(r.days, day)
	r.metrics = append(r.metrics, m)
	return &models.SalesRecord{Email: email, Day: day}, nil
}

func TestSeedSales(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	today := time.Date(2025, 3, 14, 22, 15, 0, 0, ist)
	w := &recordingSales{}

	n, err := seedSales(context.Background(), w, "demo@x.com", 7, today, 42)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	require.Len(t, w.days, 7)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, ist), w.days[0])
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, ist), w.days[6])

	for _, m := range w.metrics {
		assert.Greater(t, m.Sale, 0.0)
		assert.GreaterOrEqual(t, m.Orders, m.Customers)
		assert.GreaterOrEqual(t, m.ItemsSold, m.Orders)
	}
}

func TestSeedSales_Deterministic(t *testing.T) {
	today := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	a, b := &recordingSales{}, &recordingSales{}

	_, err := seedSales(context.Background(), a, "demo@x.com", 5, today, 7)
	require.NoError(t, err)
	_, err = seedSales(context.Background(), b, "demo@x.com", 5, today, 7)
	require.NoError(t, err)

	assert.Equal(t, a.metrics, b.metrics)
}

func TestSeedSales_StopsOnError(t *testing.T) {
	w := &recordingSales{failAt: 3}

	n, err := seedSales(context.Background(), w, "demo@x.com", 10, time.Now(), 1)
	assert.Error(t, err)
	assert.Equal(t, 3, n)
}
