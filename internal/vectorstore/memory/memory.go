package memory

import (
	"context"
	"errors"
	"sync"

	"ragflow/internal/domain"
	"ragflow/internal/similarity"
	"ragflow/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	index     map[string]int
	records   []domain.Record
}

func NewStorage() *Storage { return &Storage{index: make(map[string]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension && len(s.records) > 0 {
		return &domain.DimensionMismatchError{Expected: s.dimension, Actual: dimension}
	}
	s.dimension = dimension
	return nil
}

// Upsert replaces records with a known ID in place and appends the rest.
func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(r.Vector)}
		}
	}
	for _, r := range records {
		if i, ok := s.index[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	candidates := make([]similarity.Candidate, len(s.records))
	for i, r := range s.records {
		candidates[i] = similarity.Candidate{ID: r.ID, Text: r.Text, Vector: r.Vector, Metadata: r.Metadata}
	}
	ranked, err := similarity.Rank(vector, candidates)
	if err != nil {
		return nil, err
	}
	return vectorstore.ToMatches(similarity.TopK(ranked, topK), includeMetadata), nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index = make(map[string]int)
	return nil
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
