package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragflow/internal/domain"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gemini", cfg.Embedder.Type)
	assert.Equal(t, "text-embedding-004", cfg.Embedder.Model)
	assert.Equal(t, 768, cfg.Embedder.Dimension)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, "gemini-1.5-flash", cfg.Generator.Model)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, "ragflow.db", cfg.VectorStore.SQLite.Path)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
embedder:
  type: openai
  dimension: 256
generator:
  type: anyllm
  provider: anthropic
  model: claude-3-5-haiku-latest
vector_store:
  type: pinecone
  pinecone:
    host: docs-abc.svc.pinecone.io
retrieval:
  top_k: 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, 256, cfg.Embedder.Dimension)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, "anthropic", cfg.Generator.Provider)
	assert.Empty(t, cfg.Generator.APIKeyEnv)
	assert.Equal(t, "PINECONE_API_KEY", cfg.VectorStore.APIKeyEnv)
	assert.Equal(t, "docs-abc.svc.pinecone.io", cfg.VectorStore.Pinecone.Host)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.Chunker.SentencesPerChunk)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("embedder: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ragflow", "config.yaml"), path)
	assert.Equal(t, "gemini", cfg.Embedder.Type)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, reloaded)
}

func TestLoadDefault_PrefersWorkingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("ragflow.yaml", []byte("embedder:\n  type: tfidf\nvector_store:\n  type: memory\n"), 0o644))

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "ragflow.yaml", path)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
}

func TestResolveSecrets(t *testing.T) {
	cfg := Default()
	cfg.VectorStore.Type = "pinecone"
	applyConfigDefaults(cfg)

	env := map[string]string{"GEMINI_API_KEY": "g-key"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	s := ResolveSecrets(cfg, lookup)
	assert.Equal(t, "g-key", s.EmbedderAPIKey)
	assert.Equal(t, "g-key", s.GeneratorAPIKey)
	assert.Empty(t, s.VectorStoreAPIKey)

	_, err := Require(s.VectorStoreAPIKey, "vector_store.api_key_env", cfg.VectorStore.APIKeyEnv)
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Reason, "PINECONE_API_KEY")

	key, err := Require(s.EmbedderAPIKey, "embedder.api_key_env", cfg.Embedder.APIKeyEnv)
	require.NoError(t, err)
	assert.Equal(t, "g-key", key)
}

func TestResolveSecrets_QdrantInlineKey(t *testing.T) {
	cfg := &AppConfig{VectorStore: VectorStoreConfig{Type: "qdrant", Qdrant: &QdrantConfig{APIKey: "inline"}}}
	applyConfigDefaults(cfg)

	s := ResolveSecrets(cfg, func(string) (string, bool) { return "", false })
	assert.Equal(t, "inline", s.VectorStoreAPIKey)
}
