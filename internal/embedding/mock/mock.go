// Package mock provides a test double for the embedding.Embedder interface.
//
// Vectors are looked up by text in Vectors; unknown texts get Default. Every
// call is recorded so tests can assert on the task type used.
package mock

import (
	"context"
	"sync"

	"ragflow/internal/domain"
)

// EmbedCall records a single invocation of Embed.
type EmbedCall struct {
	Texts []string
	Task  domain.TaskType
}

// Embedder is a mock implementation of embedding.Embedder.
type Embedder struct {
	mu sync.Mutex

	// Vectors maps input text to the vector returned for it.
	Vectors map[string][]float32
	// Default is returned for texts absent from Vectors.
	Default []float32
	// Err, if non-nil, is returned from Embed.
	Err error
	// DimensionValue is returned by Dimension.
	DimensionValue int

	Calls []EmbedCall
}

// Name returns "mock".
func (e *Embedder) Name() string { return "mock" }

// Dimension returns DimensionValue.
func (e *Embedder) Dimension() int { return e.DimensionValue }

// Embed records the call and returns the configured vectors.
func (e *Embedder) Embed(_ context.Context, texts []string, task domain.TaskType) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls = append(e.Calls, EmbedCall{Texts: append([]string(nil), texts...), Task: task})
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := e.Vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = e.Default
		}
	}
	return out, nil
}
