package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragflow/internal/chunker"
	"ragflow/internal/domain"
	embedmock "ragflow/internal/embedding/mock"
	"ragflow/internal/embedding/tfidf"
	genmock "ragflow/internal/generation/mock"
	"ragflow/internal/vectorstore/memory"
)

func newFixture(t *testing.T, gen *genmock.Generator) (*RAGService, *embedmock.Embedder, *memory.Storage) {
	t.Helper()
	emb := &embedmock.Embedder{
		DimensionValue: 2,
		Vectors: map[string][]float32{
			"cats purr":     {1, 0},
			"dogs bark":     {0, 1},
			"stocks fell":   {-1, 0},
			"kittens?":      {0.9, 0.1},
			"what do cats?": {1, 0},
		},
		Default: []float32{0.5, 0.5},
	}
	store := memory.NewStorage()
	deps := Deps{Embedder: emb, Store: store, Generator: nil}
	if gen != nil {
		deps.Generator = gen
	}
	return New(deps, Options{TopK: 2}), emb, store
}

var corpus = []domain.Document{
	{ID: "c", Path: "cats.txt", Content: "cats purr"},
	{ID: "d", Path: "dogs.txt", Content: "dogs bark"},
	{ID: "s", Path: "stocks.txt", Content: "stocks fell"},
}

func TestIndex_UsesDocumentTaskAndStoresRecords(t *testing.T) {
	svc, emb, store := newFixture(t, nil)

	n, err := svc.Index(context.Background(), corpus)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, store.Len())

	require.Len(t, emb.Calls, 1)
	assert.Equal(t, domain.TaskRetrievalDocument, emb.Calls[0].Task)
	assert.Equal(t, []string{"cats purr", "dogs bark", "stocks fell"}, emb.Calls[0].Texts)
}

func TestIndex_Empty(t *testing.T) {
	svc, emb, _ := newFixture(t, nil)
	n, err := svc.Index(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, emb.Calls)
}

func TestSearch_RanksWithQueryTask(t *testing.T) {
	svc, emb, _ := newFixture(t, nil)
	ctx := context.Background()
	_, err := svc.Index(ctx, corpus)
	require.NoError(t, err)

	matches, err := svc.Search(ctx, "kittens?", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2, "default topK comes from Options")
	assert.Equal(t, "c", matches[0].ID)
	assert.Equal(t, "cats.txt", matches[0].Metadata["source"])
	assert.Equal(t, "0", matches[0].Metadata["chunk"])
	assert.Equal(t, domain.TaskRetrievalQuery, emb.Calls[len(emb.Calls)-1].Task)
}

func TestSearch_BoundaryDimensionCheck(t *testing.T) {
	svc, emb, _ := newFixture(t, nil)
	ctx := context.Background()
	_, err := svc.Index(ctx, corpus)
	require.NoError(t, err)

	emb.Vectors["bad"] = []float32{1, 0, 0}
	_, err = svc.Search(ctx, "bad", 1)
	var dm *domain.DimensionMismatchError
	require.True(t, errors.As(err, &dm), "got %v", err)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

func TestIndex_BoundaryDimensionCheckBeforeStore(t *testing.T) {
	svc, emb, store := newFixture(t, nil)
	emb.Vectors["dogs bark"] = []float32{0, 1, 0}

	_, err := svc.Index(context.Background(), corpus)
	var dm *domain.DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Zero(t, store.Len(), "nothing may be written when a vector is malformed")
}

func TestSearch_EmbedderFailurePropagates(t *testing.T) {
	svc, emb, _ := newFixture(t, nil)
	emb.Err = domain.Remote("mock", "embed", errors.New("quota exceeded"))

	_, err := svc.Search(context.Background(), "q", 1)
	var re *domain.RemoteServiceError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestAsk_WithoutGenerator(t *testing.T) {
	svc, emb, _ := newFixture(t, nil)

	_, err := svc.Ask(context.Background(), "what do cats?", 1)
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Empty(t, emb.Calls, "no remote call before the configuration check")
}

func TestAsk_BuildsPromptFromMatches(t *testing.T) {
	gen := &genmock.Generator{Answer: "They purr."}
	svc, _, _ := newFixture(t, gen)
	ctx := context.Background()
	_, err := svc.Index(ctx, corpus)
	require.NoError(t, err)

	ans, err := svc.Ask(ctx, "what do cats?", 1)
	require.NoError(t, err)
	assert.Equal(t, "They purr.", ans.Text)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "c", ans.Sources[0].ID)

	require.Len(t, gen.Prompts, 1)
	assert.Contains(t, gen.Prompts[0], "[1] cats purr")
	assert.Contains(t, gen.Prompts[0], "Question: what do cats?")
	assert.Equal(t, ans.Prompt, gen.Prompts[0])
}

func TestAsk_GeneratorFailurePropagates(t *testing.T) {
	gen := &genmock.Generator{Err: domain.Remote("mock", "generate", errors.New("overloaded"))}
	svc, _, _ := newFixture(t, gen)
	ctx := context.Background()
	_, err := svc.Index(ctx, corpus)
	require.NoError(t, err)

	_, err = svc.Ask(ctx, "what do cats?", 1)
	var re *domain.RemoteServiceError
	assert.True(t, errors.As(err, &re))
}

func TestBuildPrompt_CustomTemplate(t *testing.T) {
	svc := New(Deps{Embedder: &embedmock.Embedder{}, Store: memory.NewStorage()},
		Options{PromptTemplate: "Q={{question}} C={{context}}"})

	got := svc.BuildPrompt(" why? ", []domain.Match{{Text: "one "}, {Text: "two"}})
	assert.Equal(t, "Q=why? C=[1] one\n[2] two", got)

	got = svc.BuildPrompt("why?", nil)
	assert.Equal(t, "Q=why? C=(no context found)", got)
}

func TestRank_InMemoryScenario(t *testing.T) {
	emb := &embedmock.Embedder{
		DimensionValue: 2,
		Vectors: map[string][]float32{
			"q": {1, 0},
			"a": {1, 0},
			"b": {0, 1},
			"c": {-1, 0},
		},
	}
	svc := New(Deps{Embedder: emb, Store: memory.NewStorage()}, Options{})

	ranked, err := svc.Rank(context.Background(), "q", []domain.Document{
		{ID: "C", Content: "c"}, {ID: "B", Content: "b"}, {ID: "A", Content: "a"},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{ranked[0].ID, ranked[1].ID, ranked[2].ID})
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.InDelta(t, 0.0, ranked[1].Score, 1e-9)
	assert.InDelta(t, -1.0, ranked[2].Score, 1e-9)

	require.Len(t, emb.Calls, 2)
	assert.Equal(t, domain.TaskRetrievalDocument, emb.Calls[0].Task)
	assert.Equal(t, domain.TaskRetrievalQuery, emb.Calls[1].Task)
}

func TestRank_NoCandidates(t *testing.T) {
	emb := &embedmock.Embedder{}
	svc := New(Deps{Embedder: emb, Store: memory.NewStorage()}, Options{})
	ranked, err := svc.Rank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
	assert.Empty(t, emb.Calls)
}

func TestIndexAndSearch_TFIDFWithChunker(t *testing.T) {
	svc := New(Deps{
		Embedder: tfidf.NewEmbedder(),
		Store:    memory.NewStorage(),
		Chunker:  chunker.NewSentenceChunker(1, 0),
	}, Options{})
	ctx := context.Background()

	n, err := svc.Index(ctx, []domain.Document{{
		ID:      "doc",
		Path:    "notes.md",
		Content: "Go has goroutines and channels. Paris is the capital of France. Bread needs flour and water.",
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := svc.Search(ctx, "capital of France", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc:1", matches[0].ID)
	assert.True(t, strings.Contains(matches[0].Text, "Paris"))
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	a := write("a.txt", "alpha")
	write("b.md", "beta")
	write("c.json", "{}")
	write("sub/d.txt", "delta")

	docs, err := LoadDocuments([]string{filepath.Join(dir, "*.txt"), filepath.Join(dir, "*.md"), a})
	require.NoError(t, err)
	require.Len(t, docs, 2, "duplicates and unsupported files are skipped")
	assert.Equal(t, a, docs[0].Path)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Len(t, docs[0].ID, 16)
	assert.Equal(t, hashString(a), docs[0].ID)

	docs, err = LoadDocuments([]string{dir})
	require.NoError(t, err)
	assert.Len(t, docs, 3, "directories are walked")

	_, err = LoadDocuments([]string{filepath.Join(dir, "c.json")})
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = LoadDocuments([]string{filepath.Join(dir, "missing.txt")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
