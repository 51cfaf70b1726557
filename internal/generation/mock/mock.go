// Package mock provides a test double for generation.Generator.
package mock

import (
	"context"
	"sync"
)

// Generator returns Answer (or Err) and records every prompt it receives.
type Generator struct {
	mu sync.Mutex

	Answer string
	Err    error

	Prompts []string
}

func (g *Generator) Name() string { return "mock" }

func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Answer, nil
}
