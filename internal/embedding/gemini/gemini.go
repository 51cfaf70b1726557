// Package gemini provides an embedder backed by the Gemini embedding API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"ragflow/internal/domain"
)

const (
	DefaultModel     = "text-embedding-004"
	DefaultDimension = 768
)

// Client is a Gemini embeddings client implementing the Embedder interface.
type Client struct {
	models    *genai.Models
	model     string
	dimension int
}

// Config configures the Gemini embeddings client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "embedder.api_key", Reason: "gemini embedder requires an API key"}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: create client: %w", err)
	}
	return &Client{models: client.Models, model: cfg.Model, dimension: cfg.Dimension}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "gemini" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for each text, biased by task.
func (c *Client) Embed(ctx context.Context, texts []string, task domain.TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := c.models.EmbedContent(ctx, c.model, toContents(texts), embedConfig(task, c.dimension))
	if err != nil {
		return nil, domain.Remote("gemini", "embed", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, domain.Remote("gemini", "embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, domain.Remote("gemini", "embed", errors.New("empty embedding"))
		}
		out[i] = e.Values
	}
	return out, nil
}

func toContents(texts []string) []*genai.Content {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	return contents
}

func embedConfig(task domain.TaskType, dimension int) *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: string(task)}
	if dimension > 0 {
		d := int32(dimension)
		cfg.OutputDimensionality = &d
	}
	return cfg
}
