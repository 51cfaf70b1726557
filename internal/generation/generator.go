package generation

import "context"

// Generator turns a prompt into a single free-text answer. No streaming, no conversation state.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
