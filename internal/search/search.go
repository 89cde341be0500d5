// Package search mirrors applicants into Elasticsearch for admin lookup.
// A nil *Index is valid and behaves as a disabled index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var searchFields = []string{"firstName^2", "lastName^2", "businessName^3", "siteCity", "email"}

const indexMapping = `{
  "mappings": {
    "properties": {
      "email":        { "type": "keyword" },
      "firstName":    { "type": "text" },
      "lastName":     { "type": "text" },
      "businessName": { "type": "text" },
      "siteCity":     { "type": "text", "fields": { "raw": { "type": "keyword" } } },
      "status":       { "type": "keyword" },
      "dateApplied":  { "type": "date" },
      "updatedAt":    { "type": "date" }
    }
  }
}`

// Hits is one page of search results.
type Hits struct {
	Total      int                 `json:"total"`
	Applicants []*models.Applicant `json:"applicants"`
}

type Index struct {
	client *elasticsearch.Client
	name   string
	logger logger.Logger
}

func New(client *elasticsearch.Client, name string, log logger.Logger) *Index {
	return &Index{
		client: client,
		name:   name,
		logger: log.WithFields(map[string]interface{}{"component": "search", "index": name}),
	}
}

func (i *Index) Enabled() bool { return i != nil && i.client != nil }

// EnsureIndex creates the index with its mapping when it does not exist.
func (i *Index) EnsureIndex(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}

	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.name, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", i.name, res.Status())
	}
	i.logger.Info("search index created", nil)
	return nil
}

// Index upserts the applicant document keyed by email. Disabled indexes
// accept and drop the document.
func (i *Index) Index(ctx context.Context, a *models.Applicant) error {
	if !i.Enabled() || a == nil {
		return nil
	}

	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode applicant: %w", err)
	}

	res, err := i.client.Index(i.name, bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(a.Email),
	)
	if err != nil {
		return fmt.Errorf("index applicant %s: %w", a.Email, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index applicant %s: %s", a.Email, res.Status())
	}
	return nil
}

// Search runs a free-text query over name, business name, city and email.
// An empty query matches everything; status, when set, filters exactly.
func (i *Index) Search(ctx context.Context, query string, status models.Status, limit int) (*Hits, error) {
	if !i.Enabled() {
		return nil, apperrors.ErrSearchDisabled
	}
	if status != "" && !status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	body, err := json.Marshal(buildQuery(query, status))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithSize(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", i.name, res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Applicant `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &Hits{Total: parsed.Hits.Total.Value, Applicants: make([]*models.Applicant, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		a := h.Source
		out.Applicants = append(out.Applicants, &a)
	}
	return out, nil
}

func buildQuery(query string, status models.Status) map[string]interface{} {
	must := []interface{}{}
	if q := strings.TrimSpace(query); q != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    searchFields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if status != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"status": string(status)}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"dateApplied": map[string]interface{}{"order": "desc"}},
		},
	}
}

func readBody(res *esapi.Response) string {
	b, _ := io.ReadAll(res.Body)
	return string(b)
}
