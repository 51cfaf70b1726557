package qdrant

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

	"github.com/google/uuid"

	"ragflow/internal/domain"
	"ragflow/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// pointNamespace seeds the UUIDv5 point IDs; Qdrant only accepts integers or UUIDs.
var pointNamespace = uuid.MustParse("6f0c9a3e-2d4b-5e8a-9c1f-7b3d2e4a5c6f")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID maps a record ID to its stable Qdrant point ID.
func PointID(recordID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &info)
	switch {
	case err == nil:
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dimension {
			return &domain.DimensionMismatchError{Expected: size, Actual: dimension}
		}
		s.dimension = dimension
		return nil
	case status != http.StatusNotFound:
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		if s.dimension > 0 && len(r.Vector) != s.dimension {
			return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(r.Vector)}
		}
		payload := map[string]any{
			"record_id": r.ID,
			"text":      r.Text,
		}
		for k, v := range r.Metadata {
			if _, reserved := payload[k]; !reserved {
				payload[k] = v
			}
		}
		points[i] = map[string]any{
			"id":      PointID(r.ID),
			"vector":  r.Vector,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
	return err
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(vector)}
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	matches := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := domain.Match{Score: r.Score}
		if v, ok := r.Payload["record_id"].(string); ok {
			m.ID = v
		} else {
			m.ID = fmt.Sprint(r.ID)
		}
		if v, ok := r.Payload["text"].(string); ok {
			m.Text = v
		}
		if includeMetadata {
			m.Metadata = payloadMetadata(r.Payload)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Clear drops the collection; the next Init recreates it.
func (s *Storage) Clear(ctx context.Context) error {
	status, err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	if err != nil && status != http.StatusNotFound {
		return err
	}
	s.dimension = 0
	return nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// do sends a JSON request and decodes the response into out when non-nil.
// The HTTP status is returned alongside the error so callers can treat 404 specially.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("qdrant: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("qdrant: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	op := strings.ToLower(method) + " " + strings.TrimPrefix(url, s.url)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, domain.Remote("qdrant", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, domain.Remote("qdrant", op,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, domain.Remote("qdrant", op, fmt.Errorf("decode response: %w", err))
		}
	}
	return resp.StatusCode, nil
}

func payloadMetadata(payload map[string]any) map[string]string {
	meta := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == "record_id" || k == "text" {
			continue
		}
		if s, ok := v.(string); ok {
			meta[k] = s
		} else {
			meta[k] = fmt.Sprint(v)
		}
	}
	return meta
}
