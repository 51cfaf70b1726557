package embedding

import (
	"context"

	"ragflow/internal/domain"
)

// Embedder converts free text into numeric vector representations.
type Embedder interface {
	Name() string
	// Dimension is the length of every produced vector, or 0 until it is known.
	Dimension() int
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string, task domain.TaskType) ([][]float32, error)
}

// Preparer is implemented by embedders that must see the corpus before embedding.
type Preparer interface {
	Prepare(corpus []string) error
}
