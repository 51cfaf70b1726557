package memory

import (
	"context"
	"errors"
	"testing"

	"ragflow/internal/domain"
)

func seeded(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage()
	ctx := context.Background()
	if err := s.Init(ctx, 2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	err := s.Upsert(ctx, []domain.Record{
		{ID: "A", Text: "alpha", Vector: []float32{1, 0}, Metadata: map[string]string{"source": "a.txt"}},
		{ID: "B", Text: "beta", Vector: []float32{0, 1}},
		{ID: "C", Text: "gamma", Vector: []float32{-1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return s
}

func TestQuery_RanksByCosine(t *testing.T) {
	s := seeded(t)
	matches, err := s.Query(context.Background(), []float32{1, 0}, 3, true)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"A", "B", "C"}
	for i, id := range want {
		if matches[i].ID != id {
			t.Errorf("match[%d].ID = %q, want %q", i, matches[i].ID, id)
		}
	}
	if matches[0].Score != 1 || matches[2].Score != -1 {
		t.Errorf("scores = %v, %v; want 1, -1", matches[0].Score, matches[2].Score)
	}
	if matches[0].Metadata["source"] != "a.txt" {
		t.Errorf("metadata not returned: %v", matches[0].Metadata)
	}
}

func TestQuery_TopKAndMetadataFlag(t *testing.T) {
	s := seeded(t)
	matches, err := s.Query(context.Background(), []float32{1, 0}, 1, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "A" {
		t.Fatalf("Query topK=1 = %+v, want [A]", matches)
	}
	if matches[0].Metadata != nil {
		t.Errorf("metadata should be omitted, got %v", matches[0].Metadata)
	}
}

func TestUpsert_ReplacesByID(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, []domain.Record{{ID: "C", Text: "gamma v2", Vector: []float32{1, 0.1}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	matches, _ := s.Query(ctx, []float32{0, 1}, 3, false)
	for _, m := range matches {
		if m.ID == "C" && m.Text != "gamma v2" {
			t.Errorf("record C not replaced: %+v", m)
		}
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	s := seeded(t)
	err := s.Upsert(context.Background(), []domain.Record{{ID: "D", Vector: []float32{1, 2, 3}}})
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("failed upsert must not store anything, Len() = %d", s.Len())
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	s := seeded(t)
	_, err := s.Query(context.Background(), []float32{1, 0, 0}, 3, false)
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
}

func TestClear(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	matches, err := s.Query(ctx, []float32{1, 0}, 3, false)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches after Clear, got %d", len(matches))
	}
}

func TestInit_RejectsInvalidDimension(t *testing.T) {
	if err := NewStorage().Init(context.Background(), 0); err == nil {
		t.Fatal("expected error for dimension 0")
	}
}
