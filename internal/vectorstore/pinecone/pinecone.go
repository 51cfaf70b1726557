// Package pinecone talks to a Pinecone index over its REST data plane.
// The index itself is provisioned out of band; Init only verifies its dimension.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragflow/internal/domain"
	"ragflow/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

const (
	apiVersion = "2024-07"
	textKey    = "text"
)

type Config struct {
	// Host is the index host, e.g. https://docs-abc123.svc.us-east1-gcp.pinecone.io.
	Host      string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

type Storage struct {
	host      string
	apiKey    string
	namespace string
	dimension int
	client    *http.Client
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "vector_store.pinecone.api_key", Reason: "pinecone API key is not set"}
	}
	if cfg.Host == "" {
		return nil, &domain.ConfigurationError{Key: "vector_store.pinecone.host", Reason: "index host is required"}
	}
	host := strings.TrimRight(cfg.Host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		host:      host,
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type vector struct {
	ID       string            `json:"id"`
	Values   []float32         `json:"values"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Init checks the index dimension reported by describe_index_stats.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var stats struct {
		Dimension int `json:"dimension"`
	}
	if err := s.post(ctx, "/describe_index_stats", map[string]any{}, &stats); err != nil {
		return err
	}
	if stats.Dimension != 0 && stats.Dimension != dimension {
		return &domain.DimensionMismatchError{Expected: stats.Dimension, Actual: dimension}
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	vectors := make([]vector, len(records))
	for i, r := range records {
		if s.dimension > 0 && len(r.Vector) != s.dimension {
			return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(r.Vector)}
		}
		meta := make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta[textKey] = r.Text
		vectors[i] = vector{ID: r.ID, Values: r.Vector, Metadata: meta}
	}
	body := map[string]any{"vectors": vectors}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	return s.post(ctx, "/vectors/upsert", body, nil)
}

// Query always asks for metadata since the passage text lives there.
func (s *Storage) Query(ctx context.Context, vec []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	if s.dimension > 0 && len(vec) != s.dimension {
		return nil, &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(vec)}
	}
	body := map[string]any{
		"vector":          vec,
		"topK":            topK,
		"includeMetadata": true,
		"includeValues":   false,
	}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.post(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}
	matches := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		match := domain.Match{ID: m.ID, Score: m.Score}
		if t, ok := m.Metadata[textKey].(string); ok {
			match.Text = t
		}
		if includeMetadata {
			match.Metadata = make(map[string]string, len(m.Metadata))
			for k, v := range m.Metadata {
				if k == textKey {
					continue
				}
				match.Metadata[k] = fmt.Sprint(v)
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Clear deletes every vector in the configured namespace.
func (s *Storage) Clear(ctx context.Context) error {
	body := map[string]any{"deleteAll": true}
	if s.namespace != "" {
		body["namespace"] = s.namespace
	}
	return s.post(ctx, "/vectors/delete", body, nil)
}

func (s *Storage) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pinecone: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("pinecone: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	op := strings.TrimPrefix(path, "/")
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Remote("pinecone", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Remote("pinecone", op, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Remote("pinecone", op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
