package pgvector

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragflow/internal/domain"
)

// testDSN skips the integration tests unless RAGFLOW_TEST_POSTGRES_DSN is set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("RAGFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RAGFLOW_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

func TestScoreFromDistance(t *testing.T) {
	assert.Equal(t, 1.0, scoreFromDistance(0))
	assert.Equal(t, 0.0, scoreFromDistance(1))
	assert.Equal(t, -1.0, scoreFromDistance(2))
	assert.Equal(t, 1.0, scoreFromDistance(-1e-9))
	assert.Equal(t, -1.0, scoreFromDistance(2.0000001))
}

func TestCheckVector(t *testing.T) {
	s := &Storage{dimension: 2}

	var dm *domain.DimensionMismatchError
	require.True(t, errors.As(s.checkVector("a", []float32{1, 2, 3}), &dm))

	var iv *domain.InvalidVectorError
	require.True(t, errors.As(s.checkVector("a", []float32{0, 0}), &iv))
	assert.Equal(t, "a", iv.ID)

	assert.NoError(t, s.checkVector("a", []float32{0, 1}))
}

func TestIdentIsQuoted(t *testing.T) {
	s := &Storage{table: `odd"name`}
	assert.Equal(t, `"odd""name"`, s.ident())
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce))
}

func TestRoundTrip(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	s, err := Open(ctx, Config{DSN: dsn, Table: "ragflow_test_records"})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Init(ctx, 2))

	require.NoError(t, s.Upsert(ctx, []domain.Record{
		{ID: "A", Text: "alpha", Vector: []float32{1, 0}, Metadata: map[string]string{"source": "a.txt"}},
		{ID: "B", Text: "beta", Vector: []float32{0, 1}},
		{ID: "C", Text: "gamma", Vector: []float32{-1, 0}},
	}))
	require.NoError(t, s.Upsert(ctx, []domain.Record{{ID: "B", Text: "beta v2", Vector: []float32{0, 1}}}))

	matches, err := s.Query(ctx, []float32{1, 0}, 3, true)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{matches[0].ID, matches[1].ID, matches[2].ID})
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, -1.0, matches[2].Score, 1e-6)
	assert.Equal(t, "a.txt", matches[0].Metadata["source"])
	assert.Equal(t, "beta v2", matches[1].Text)

	var dm *domain.DimensionMismatchError
	require.True(t, errors.As(s.Init(ctx, 3), &dm))
}
