package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"ragflow/internal/domain"
)

// DefaultModel is the default OpenAI embeddings model.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	client    oai.Client
	model     string
	dimension int
	// shortened is set when the API was asked for fewer dimensions than the model default.
	shortened bool
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "embedder.api_key", Reason: "openai embedder requires an API key"}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	// retry policy belongs to the caller
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	c := &Client{
		client:    oai.NewClient(opts...),
		model:     cfg.Model,
		dimension: modelDimensions(cfg.Model),
	}
	if cfg.Dimension > 0 && cfg.Dimension != c.dimension {
		c.shortened = c.dimension > 0
		c.dimension = cfg.Dimension
	}
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for each text. OpenAI has no task hint, so task is ignored.
func (c *Client) Embed(ctx context.Context, texts []string, _ domain.TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	params := oai.EmbeddingNewParams{
		Model: c.model,
		Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if c.shortened {
		params.Dimensions = param.NewOpt(int64(c.dimension))
	}
	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, domain.Remote("openai", "embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.Remote("openai", "embed",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}
	out := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) < 0 || int(e.Index) >= len(texts) {
			return nil, domain.Remote("openai", "embed", fmt.Errorf("unexpected index %d", e.Index))
		}
		out[e.Index] = toFloat32(e.Embedding)
	}
	for _, v := range out {
		if len(v) == 0 {
			return nil, domain.Remote("openai", "embed", errors.New("empty embedding"))
		}
	}
	return out, nil
}

func modelDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding-3-small"), strings.Contains(lower, "ada-002"):
		return 1536
	default:
		// unknown; the service adopts the first response's length
		return 0
	}
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
