package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if f.handler != nil {
		f.handler(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{}`))
}

func (f *fakeES) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func setupIndex(t *testing.T, fake *fakeES) *Index {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return New(client, "franchise_applicants", logger.NewTestLogger(t))
}

func sampleApplicant() *models.Applicant {
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	return &models.Applicant{
		Email:        "asha@example.com",
		FirstName:    "Asha",
		LastName:     "Rao",
		BusinessName: "Chai Point",
		SiteCity:     "Pune",
		Status:       models.StatusPending,
		DateApplied:  at,
		UpdatedAt:    at,
	}
}

// ==========================
// Disabled index
// ==========================

func TestDisabledIndex(t *testing.T) {
	var idx *Index

	assert.False(t, idx.Enabled())
	assert.NoError(t, idx.Index(context.Background(), sampleApplicant()))
	assert.NoError(t, idx.EnsureIndex(context.Background()))

	_, err := idx.Search(context.Background(), "chai", "", 10)
	assert.ErrorIs(t, err, apperrors.ErrSearchDisabled)
}

// ==========================
// Index
// ==========================

func TestIndex_PutsDocumentByEmail(t *testing.T) {
	fake := &fakeES{}
	idx := setupIndex(t, fake)

	require.NoError(t, idx.Index(context.Background(), sampleApplicant()))

	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/franchise_applicants/_doc/asha@example.com", req.Path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Chai Point", doc["businessName"])
	assert.Equal(t, "pending", doc["status"])
}

func TestIndex_ErrorStatus(t *testing.T) {
	fake := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
	}}
	idx := setupIndex(t, fake)

	err := idx.Index(context.Background(), sampleApplicant())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

// ==========================
// EnsureIndex
// ==========================

func TestEnsureIndex(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		fake := &fakeES{}
		idx := setupIndex(t, fake)

		require.NoError(t, idx.EnsureIndex(context.Background()))
		assert.Len(t, fake.requests, 1)
		assert.Equal(t, http.MethodHead, fake.requests[0].Method)
	})

	t.Run("creates missing", func(t *testing.T) {
		fake := &fakeES{handler: func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}}
		idx := setupIndex(t, fake)

		require.NoError(t, idx.EnsureIndex(context.Background()))
		req := fake.last()
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/franchise_applicants", req.Path)
		assert.Contains(t, req.Body, `"status":       { "type": "keyword" }`)
	})
}

// ==========================
// Search
// ==========================

func TestSearch(t *testing.T) {
	fake := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"hits": {
				"total": {"value": 1, "relation": "eq"},
				"hits": [{"_id": "asha@example.com", "_score": 2.1,
					"_source": {"email": "asha@example.com", "firstName": "Asha", "businessName": "Chai Point", "status": "accepted"}}]
			}
		}`))
	}}
	idx := setupIndex(t, fake)

	hits, err := idx.Search(context.Background(), "chai", models.StatusAccepted, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, hits.Total)
	require.Len(t, hits.Applicants, 1)
	assert.Equal(t, "asha@example.com", hits.Applicants[0].Email)
	assert.Equal(t, models.StatusAccepted, hits.Applicants[0].Status)

	req := fake.last()
	assert.Equal(t, "/franchise_applicants/_search", req.Path)
	assert.Contains(t, req.Query, "size=20")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(req.Body), &body))
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	assert.Contains(t, must[0], "multi_match")
	filter := boolQuery["filter"].([]interface{})
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"status": "accepted"}}, filter[0])
}

func TestSearch_LimitAndValidation(t *testing.T) {
	fake := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	}}
	idx := setupIndex(t, fake)

	hits, err := idx.Search(context.Background(), "", "", 500)
	require.NoError(t, err)
	assert.Empty(t, hits.Applicants)
	assert.Contains(t, fake.last().Query, "size=100")
	assert.True(t, strings.Contains(fake.last().Body, "match_all"))

	_, err = idx.Search(context.Background(), "x", models.Status("archived"), 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSearch_BackendError(t *testing.T) {
	fake := &fakeES{handler: func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception"}}`))
	}}
	idx := setupIndex(t, fake)

	_, err := idx.Search(context.Background(), "x", "", 10)
	require.Error(t, err)
	assert.False(t, apperrors.IsDecline(err))
}
