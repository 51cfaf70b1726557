package vectorstore

import (
	"context"

	"ragflow/internal/domain"
)

// Storage persists vectors and supports similarity search.
type Storage interface {
	// Init prepares the store for vectors of the given dimension.
	Init(ctx context.Context, dimension int) error
	// Upsert inserts records or replaces those with the same ID.
	Upsert(ctx context.Context, records []domain.Record) error
	// Query returns up to topK matches ordered by descending score.
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error)
	// Clear removes every stored record.
	Clear(ctx context.Context) error
}

// DefaultTopK is used when a caller passes topK <= 0.
const DefaultTopK = 5
