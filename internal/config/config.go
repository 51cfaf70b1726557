package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	// Type is one of gemini, openai, tfidf.
	Type        string `yaml:"type"`
	Model       string `yaml:"model,omitempty"`
	Dimension   int    `yaml:"dimension,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	// Type is one of gemini, openai, anyllm, none.
	Type string `yaml:"type"`
	// Provider picks the any-llm-go backend when Type is anyllm.
	Provider    string `yaml:"provider,omitempty"`
	Model       string `yaml:"model,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	// Type is one of memory, sqlite, pinecone, qdrant, pgvector.
	Type      string          `yaml:"type"`
	APIKeyEnv string          `yaml:"api_key_env,omitempty"`
	SQLite    *SQLiteConfig   `yaml:"sqlite,omitempty"`
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty"`
	Qdrant    *QdrantConfig   `yaml:"qdrant,omitempty"`
	PGVector  *PGVectorConfig `yaml:"pgvector,omitempty"`
}

// SQLiteConfig points at the local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PineconeConfig contains the data-plane host of a Pinecone index.
type PineconeConfig struct {
	Host        string `yaml:"host"`
	Namespace   string `yaml:"namespace,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key,omitempty"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// PGVectorConfig contains the Postgres connection string and table name.
type PGVectorConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table,omitempty"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// RetrievalConfig tunes search and prompt building.
type RetrievalConfig struct {
	TopK           int    `yaml:"top_k"`
	PromptTemplate string `yaml:"prompt_template,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogLevel    string            `yaml:"log_level"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
}

// Load reads a config from path and fills in defaults for omitted settings.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &AppConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./ragflow.yaml first, then ~/.config/ragflow/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragflow/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "ragflow.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath returns ~/.config/ragflow/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragflow", "config.yaml"), nil
}

// Default returns the configuration written on first run.
func Default() *AppConfig {
	cfg := &AppConfig{
		LogLevel:    "info",
		Embedder:    EmbedderConfig{Type: "gemini"},
		Generator:   GeneratorConfig{Type: "gemini"},
		Chunker:     ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1},
		VectorStore: VectorStoreConfig{Type: "sqlite"},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 5},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "sentence"
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}

	e := &cfg.Embedder
	if e.Type == "" {
		e.Type = "gemini"
	}
	switch e.Type {
	case "gemini":
		if e.Model == "" {
			e.Model = "text-embedding-004"
		}
		if e.Dimension == 0 {
			e.Dimension = 768
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "GEMINI_API_KEY"
		}
	case "openai":
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
		if e.APIKeyEnv == "" {
			e.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 30
	}

	g := &cfg.Generator
	if g.Type == "" {
		g.Type = "gemini"
	}
	switch g.Type {
	case "gemini":
		if g.Model == "" {
			g.Model = "gemini-1.5-flash"
		}
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "GEMINI_API_KEY"
		}
	case "openai":
		if g.Model == "" {
			g.Model = "gpt-4o-mini"
		}
		if g.APIKeyEnv == "" {
			g.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 60
	}

	v := &cfg.VectorStore
	if v.Type == "" {
		v.Type = "sqlite"
	}
	switch v.Type {
	case "sqlite":
		if v.SQLite == nil {
			v.SQLite = &SQLiteConfig{}
		}
		if v.SQLite.Path == "" {
			v.SQLite.Path = "ragflow.db"
		}
	case "pinecone":
		if v.Pinecone == nil {
			v.Pinecone = &PineconeConfig{}
		}
		if v.APIKeyEnv == "" {
			v.APIKeyEnv = "PINECONE_API_KEY"
		}
		if v.Pinecone.TimeoutSecs == 0 {
			v.Pinecone.TimeoutSecs = 15
		}
	case "qdrant":
		if v.Qdrant == nil {
			v.Qdrant = &QdrantConfig{}
		}
		if v.Qdrant.URL == "" {
			v.Qdrant.URL = "http://localhost:6333"
		}
		if v.Qdrant.Collection == "" {
			v.Qdrant.Collection = "ragflow"
		}
		if v.APIKeyEnv == "" {
			v.APIKeyEnv = "QDRANT_API_KEY"
		}
		if v.Qdrant.TimeoutSecs == 0 {
			v.Qdrant.TimeoutSecs = 15
		}
	case "pgvector":
		if v.PGVector == nil {
			v.PGVector = &PGVectorConfig{}
		}
		if v.PGVector.Table == "" {
			v.PGVector.Table = "ragflow_records"
		}
	}
}

// Seconds converts a timeout_secs setting to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }
