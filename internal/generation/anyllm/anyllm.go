// Package anyllm generates answers through github.com/mozilla-ai/any-llm-go,
// which puts many hosted and local LLM providers behind one API.
//
//	g, err := anyllm.New(anyllm.Config{Provider: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: key})
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"ragflow/internal/domain"
)

type Config struct {
	// Provider is one of: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile.
	Provider string
	Model    string
	// APIKey may be empty for local providers (ollama, llamacpp, llamafile).
	APIKey  string
	BaseURL string
}

type Generator struct {
	backend  anyllmlib.Provider
	provider string
	model    string
}

func New(cfg Config) (*Generator, error) {
	if cfg.Provider == "" {
		return nil, &domain.ConfigurationError{Key: "generator.anyllm.provider", Reason: "provider must not be empty"}
	}
	if cfg.Model == "" {
		return nil, &domain.ConfigurationError{Key: "generator.model", Reason: "model must not be empty"}
	}
	var opts []anyllmlib.Option
	if cfg.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(cfg.BaseURL))
	}
	backend, err := createBackend(cfg.Provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", cfg.Provider, err)
	}
	return &Generator{backend: backend, provider: strings.ToLower(cfg.Provider), model: cfg.Model}, nil
}

func (g *Generator) Name() string { return "anyllm/" + g.provider }

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    g.model,
		Messages: []anyllmlib.Message{{Role: anyllmlib.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", domain.Remote(g.provider, "generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.Remote(g.provider, "generate", errors.New("empty choices in response"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if text == "" {
		return "", domain.Remote(g.provider, "generate", errors.New("empty response"))
	}
	return text, nil
}

// SupportedProviders lists the provider names accepted by New.
var SupportedProviders = []string{"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: %s", providerName, strings.Join(SupportedProviders, ", "))
	}
}
