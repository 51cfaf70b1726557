package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ragflow/internal/chunker"
	"ragflow/internal/config"
	"ragflow/internal/domain"
	"ragflow/internal/embedding"
	"ragflow/internal/embedding/gemini"
	"ragflow/internal/embedding/openai"
	"ragflow/internal/embedding/tfidf"
	"ragflow/internal/generation"
	"ragflow/internal/generation/anyllm"
	gengemini "ragflow/internal/generation/gemini"
	genopenai "ragflow/internal/generation/openai"
	"ragflow/internal/service"
	"ragflow/internal/summarizer"
	"ragflow/internal/vectorstore"
	"ragflow/internal/vectorstore/memory"
	"ragflow/internal/vectorstore/pgvector"
	"ragflow/internal/vectorstore/pinecone"
	"ragflow/internal/vectorstore/qdrant"
	"ragflow/internal/vectorstore/sqlite"
)

type (
	embedderFactory  func(ctx context.Context, cfg *config.AppConfig, s config.Secrets) (embedding.Embedder, error)
	storeFactory     func(ctx context.Context, cfg *config.AppConfig, s config.Secrets) (vectorstore.Storage, func(), error)
	generatorFactory func(ctx context.Context, cfg *config.AppConfig, s config.Secrets) (generation.Generator, error)
)

// app holds the backend constructors; tests swap them for mocks.
type app struct {
	lookupEnv    config.LookupFunc
	newEmbedder  embedderFactory
	newStore     storeFactory
	newGenerator generatorFactory
}

func newApp() *app {
	return &app{
		lookupEnv:    os.LookupEnv,
		newEmbedder:  buildEmbedder,
		newStore:     buildStore,
		newGenerator: buildGenerator,
	}
}

type openOptions struct {
	// localStore replaces the configured store with an in-memory one.
	localStore bool
	generator  bool
}

// session is everything one command invocation needs.
type session struct {
	cfg       *config.AppConfig
	cfgPath   string
	logger    *slog.Logger
	store     vectorstore.Storage
	svc       *service.RAGService
	summary   domain.Summarizer
	generator generation.Generator
	closers   []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func (a *app) open(cmd *cobra.Command, opts openOptions) (*session, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		level = flag
	}
	logger := newLogger(level, cmd.ErrOrStderr())
	logger.Debug("config loaded", "path", cfgPath)

	secrets := config.ResolveSecrets(cfg, a.lookupEnv)
	s := &session{cfg: cfg, cfgPath: cfgPath, logger: logger}

	emb, err := a.newEmbedder(ctx, cfg, secrets)
	if err != nil {
		return nil, err
	}

	if opts.localStore {
		s.store = memory.NewStorage()
	} else {
		store, closeFn, err := a.newStore(ctx, cfg, secrets)
		if err != nil {
			return nil, err
		}
		s.store = store
		if closeFn != nil {
			s.closers = append(s.closers, closeFn)
		}
	}

	if opts.generator && cfg.Generator.Type != "none" {
		s.generator, err = a.newGenerator(ctx, cfg, secrets)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	case "none":
	default:
		s.Close()
		return nil, &domain.ConfigurationError{Key: "chunker.type", Reason: fmt.Sprintf("unknown chunker %q", cfg.Chunker.Type)}
	}

	switch cfg.Summarizer.Type {
	case "frequency":
		s.summary = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		s.Close()
		return nil, &domain.ConfigurationError{Key: "summarizer.type", Reason: fmt.Sprintf("unknown summarizer %q", cfg.Summarizer.Type)}
	}

	deps := service.Deps{Embedder: emb, Store: s.store, Chunker: ch, Logger: logger}
	if s.generator != nil {
		deps.Generator = s.generator
	}
	s.svc = service.New(deps, service.Options{
		Dimension:      cfg.Embedder.Dimension,
		TopK:           cfg.Retrieval.TopK,
		PromptTemplate: cfg.Retrieval.PromptTemplate,
	})
	logger.Debug("backends ready",
		"embedder", emb.Name(),
		"store", cfg.VectorStore.Type,
		"generator", cfg.Generator.Type)
	return s, nil
}

func loadConfig(cmd *cobra.Command) (*config.AppConfig, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func buildEmbedder(ctx context.Context, cfg *config.AppConfig, s config.Secrets) (embedding.Embedder, error) {
	e := cfg.Embedder
	switch e.Type {
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "gemini":
		key, err := config.Require(s.EmbedderAPIKey, "embedder.api_key_env", e.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:    key,
			BaseURL:   e.BaseURL,
			Model:     e.Model,
			Dimension: e.Dimension,
			Timeout:   config.Seconds(e.TimeoutSecs),
		})
	case "openai":
		key, err := config.Require(s.EmbedderAPIKey, "embedder.api_key_env", e.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return openai.NewClient(openai.Config{
			APIKey:    key,
			BaseURL:   e.BaseURL,
			Model:     e.Model,
			Dimension: e.Dimension,
			Timeout:   config.Seconds(e.TimeoutSecs),
		})
	default:
		return nil, &domain.ConfigurationError{Key: "embedder.type", Reason: fmt.Sprintf("unknown embedder %q", e.Type)}
	}
}

func buildStore(ctx context.Context, cfg *config.AppConfig, s config.Secrets) (vectorstore.Storage, func(), error) {
	v := cfg.VectorStore
	switch v.Type {
	case "memory":
		return memory.NewStorage(), nil, nil
	case "sqlite":
		st, err := sqlite.Open(v.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "pinecone":
		key, err := config.Require(s.VectorStoreAPIKey, "vector_store.api_key_env", v.APIKeyEnv)
		if err != nil {
			return nil, nil, err
		}
		st, err := pinecone.NewStorage(pinecone.Config{
			Host:      v.Pinecone.Host,
			APIKey:    key,
			Namespace: v.Pinecone.Namespace,
			Timeout:   config.Seconds(v.Pinecone.TimeoutSecs),
		})
		return st, nil, err
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        v.Qdrant.URL,
			APIKey:     s.VectorStoreAPIKey,
			Collection: v.Qdrant.Collection,
			Timeout:    config.Seconds(v.Qdrant.TimeoutSecs),
		}), nil, nil
	case "pgvector":
		st, err := pgvector.Open(ctx, pgvector.Config{DSN: v.PGVector.DSN, Table: v.PGVector.Table})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, &domain.ConfigurationError{Key: "vector_store.type", Reason: fmt.Sprintf("unknown vector store %q", v.Type)}
	}
}

func buildGenerator(ctx context.Context, cfg *config.AppConfig, s config.Secrets) (generation.Generator, error) {
	g := cfg.Generator
	switch g.Type {
	case "gemini":
		key, err := config.Require(s.GeneratorAPIKey, "generator.api_key_env", g.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return gengemini.NewClient(ctx, gengemini.Config{
			APIKey:  key,
			BaseURL: g.BaseURL,
			Model:   g.Model,
			Timeout: config.Seconds(g.TimeoutSecs),
		})
	case "openai":
		key, err := config.Require(s.GeneratorAPIKey, "generator.api_key_env", g.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return genopenai.NewClient(genopenai.Config{
			APIKey:  key,
			BaseURL: g.BaseURL,
			Model:   g.Model,
			Timeout: config.Seconds(g.TimeoutSecs),
		})
	case "anyllm":
		return anyllm.New(anyllm.Config{
			Provider: g.Provider,
			Model:    g.Model,
			APIKey:   s.GeneratorAPIKey,
			BaseURL:  g.BaseURL,
		})
	default:
		return nil, &domain.ConfigurationError{Key: "generator.type", Reason: fmt.Sprintf("unknown generator %q", g.Type)}
	}
}
