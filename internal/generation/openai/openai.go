// Package openai generates answers through an OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"ragflow/internal/domain"
)

const DefaultModel = "gpt-4o-mini"

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	client oai.Client
	model  string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "generator.api_key", Reason: "openai generator requires an API key"}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return &Client{client: oai.NewClient(opts...), model: cfg.Model}, nil
}

func (c *Client) Name() string { return "openai" }

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{oai.UserMessage(prompt)},
	})
	if err != nil {
		return "", domain.Remote("openai", "generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Remote("openai", "generate", errors.New("empty choices in response"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", domain.Remote("openai", "generate", errors.New("empty response"))
	}
	return text, nil
}
