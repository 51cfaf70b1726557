package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragflow/internal/domain"
)

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

// TestGenerate_SingleUserMessage verifies the request shape and answer extraction.
func TestGenerate_SingleUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "gpt-test" || len(body.Messages) != 1 || body.Messages[0].Role != "user" || body.Messages[0].Content != "hello?" {
			t.Errorf("unexpected request %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "gpt-test",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": " hi there "},
			}},
		})
	}))
	defer server.Close()

	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := c.Generate(context.Background(), "hello?")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "hi there" {
		t.Errorf("Generate() = %q, want %q", got, "hi there")
	}
}

func TestGenerate_RemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	c, _ := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL})
	_, err := c.Generate(context.Background(), "x")
	var re *domain.RemoteServiceError
	if !errors.As(err, &re) || re.Service != "openai" {
		t.Fatalf("expected RemoteServiceError from openai, got %v", err)
	}
}
