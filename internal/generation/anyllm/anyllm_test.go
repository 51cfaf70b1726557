package anyllm

import (
	"errors"
	"testing"

	"ragflow/internal/domain"
)

func TestNew_RequiresProviderAndModel(t *testing.T) {
	var ce *domain.ConfigurationError
	if _, err := New(Config{Model: "m"}); !errors.As(err, &ce) {
		t.Errorf("missing provider: expected ConfigurationError, got %v", err)
	}
	if _, err := New(Config{Provider: "openai"}); !errors.As(err, &ce) {
		t.Errorf("missing model: expected ConfigurationError, got %v", err)
	}
}

// TestNew_UnsupportedProvider checks that an unsupported provider returns an error.
func TestNew_UnsupportedProvider(t *testing.T) {
	if _, err := New(Config{Provider: "fakecloud", Model: "m", APIKey: "dummy"}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNew_OpenAIWithAPIKey(t *testing.T) {
	g, err := New(Config{Provider: "OpenAI", Model: "gpt-4o", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", g.model)
	}
	if g.Name() != "anyllm/openai" {
		t.Errorf("Name() = %q", g.Name())
	}
}
