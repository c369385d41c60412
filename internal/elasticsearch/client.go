package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mfenderov/outliner/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	Dims      int // embedding dimensions; 0 leaves the embedding field unmapped
}

// Client wraps the Elasticsearch client with section index operations.
type Client struct {
	es    *elasticsearch.Client
	index string
	dims  int
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	if config.Index == "" {
		return nil, fmt.Errorf("index is required")
	}

	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
		dims:  config.Dims,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping builds the mapping for generated sections.
func (c *Client) indexMapping() map[string]any {
	props := map[string]any{
		"id":           map[string]any{"type": "keyword"},
		"document":     map[string]any{"type": "keyword"},
		"fingerprint":  map[string]any{"type": "keyword"},
		"position":     map[string]any{"type": "integer"},
		"outline":      map[string]any{"type": "text", "analyzer": "english"},
		"content":      map[string]any{"type": "text", "analyzer": "english"},
		"cached":       map[string]any{"type": "boolean"},
		"run_id":       map[string]any{"type": "keyword"},
		"generated_at": map[string]any{"type": "date"},
	}
	if c.dims > 0 {
		props["embedding"] = map[string]any{
			"type":       "dense_vector",
			"dims":       c.dims,
			"index":      true,
			"similarity": "cosine",
		}
	}
	return map[string]any{"mappings": map[string]any{"properties": props}}
}

// CreateIndex creates the index with proper mapping.
func (c *Client) CreateIndex(ctx context.Context) error {
	// Check if index exists
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping, err := json.Marshal(c.indexMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexSection upserts a single section under its ID.
func (c *Client) IndexSection(ctx context.Context, section models.Section) error {
	data, err := json.Marshal(section)
	if err != nil {
		return fmt.Errorf("failed to marshal section: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(section.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index section: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing section (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// DeleteStale removes sections of document that were not written by runID.
// Sections dropped from an outline disappear from the index this way.
func (c *Client) DeleteStale(ctx context.Context, document, runID string) error {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter":   []any{map[string]any{"term": map[string]any{"document": document}}},
				"must_not": []any{map[string]any{"term": map[string]any{"run_id": runID}}},
			},
		},
	}

	data, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		bytes.NewReader(data),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete stale sections failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("delete stale sections error: %s", res.String())
	}
	return nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Section `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// textQuery matches outline and generated text, optionally within one document.
func textQuery(query, document string) map[string]any {
	match := map[string]any{
		"multi_match": map[string]any{
			"query":  query,
			"fields": []string{"content^2", "outline"},
		},
	}
	if document == "" {
		return match
	}
	return map[string]any{
		"bool": map[string]any{
			"must":   []any{match},
			"filter": []any{map[string]any{"term": map[string]any{"document": document}}},
		},
	}
}

// Search performs a BM25 text search on section content and outline text.
// An empty document searches all outlines.
func (c *Client) Search(ctx context.Context, query, document string, limit int) ([]models.Section, error) {
	return c.search(ctx, map[string]any{
		"query": textQuery(query, document),
		"size":  limit,
		"_source": map[string]any{
			"excludes": []string{"embedding"},
		},
	})
}

// HybridSearch performs a combined BM25 + vector search.
// If queryEmbedding is nil, falls back to BM25 only.
func (c *Client) HybridSearch(ctx context.Context, query, document string, queryEmbedding []float32, limit int) ([]models.Section, error) {
	if queryEmbedding == nil {
		return c.Search(ctx, query, document, limit)
	}

	knn := map[string]any{
		"field":          "embedding",
		"query_vector":   queryEmbedding,
		"k":              limit,
		"num_candidates": limit * 2,
	}
	if document != "" {
		knn["filter"] = map[string]any{"term": map[string]any{"document": document}}
	}

	// Use reciprocal rank fusion (RRF) to combine BM25 and vector results
	return c.search(ctx, map[string]any{
		"retriever": map[string]any{
			"rrf": map[string]any{
				"retrievers": []map[string]any{
					{"standard": map[string]any{"query": textQuery(query, document)}},
					{"knn": knn},
				},
			},
		},
		"size": limit,
		"_source": map[string]any{
			"excludes": []string{"embedding"},
		},
	})
}

func (c *Client) search(ctx context.Context, body map[string]any) ([]models.Section, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	sections := make([]models.Section, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		sections[i] = hit.Source
	}
	return sections, nil
}

// getResponse represents ES get response structure.
type getResponse struct {
	Found  bool           `json:"found"`
	Source models.Section `json:"_source"`
}

// GetSection retrieves a section by ID. A missing section returns nil, nil.
func (c *Client) GetSection(ctx context.Context, id string) (*models.Section, error) {
	res, err := c.es.Get(
		c.index,
		id,
		c.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !gr.Found {
		return nil, nil
	}

	return &gr.Source, nil
}
