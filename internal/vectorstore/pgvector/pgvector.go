// Package pgvector stores records in PostgreSQL using the pgvector extension.
// Ranking happens in the database with the cosine distance operator (<=>).
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"ragflow/internal/domain"
	"ragflow/internal/similarity"
	"ragflow/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

const DefaultTable = "ragflow_records"

type Config struct {
	DSN   string
	Table string
}

type Storage struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

// Open connects to the database, makes sure the vector extension exists and
// registers pgvector types on every pooled connection.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.DSN == "" {
		return nil, &domain.ConfigurationError{Key: "vector_store.pgvector.dsn", Reason: "connection string is required"}
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}

	// the extension has to exist before RegisterTypes can resolve the vector OID
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, domain.Remote("postgres", "connect", err)
	}
	_, err = conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	_ = conn.Close(ctx)
	if err != nil {
		return nil, domain.Remote("postgres", "create extension", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector store: parse dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pgvector store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, domain.Remote("postgres", "ping", err)
	}
	return &Storage{pool: pool, table: table}, nil
}

func (s *Storage) Close() { s.pool.Close() }

// Init creates the table with a vector(dimension) column, or verifies the
// dimension of an existing one.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
		    id        TEXT PRIMARY KEY,
		    text      TEXT NOT NULL,
		    metadata  JSONB,
		    embedding vector(%d) NOT NULL
		)`, s.ident(), dimension)
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return domain.Remote("postgres", "create table", err)
	}

	// atttypmod of a vector column is its declared dimension
	var existing int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'`, s.ident()).Scan(&existing)
	if err != nil {
		return domain.Remote("postgres", "read dimension", err)
	}
	if existing > 0 && existing != dimension {
		return &domain.DimensionMismatchError{Expected: existing, Actual: dimension}
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := s.checkVector(r.ID, r.Vector); err != nil {
			return err
		}
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, text, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    text      = EXCLUDED.text,
		    metadata  = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding`, s.ident())

	batch := &pgx.Batch{}
	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("pgvector store: encode metadata for %s: %w", r.ID, err)
		}
		batch.Queue(q, r.ID, r.Text, meta, pgvec.NewVector(r.Vector))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Remote("postgres", "begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Remote("postgres", "upsert", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Remote("postgres", "commit", err)
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	if err := s.checkVector("query", vector); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
		SELECT id, text, metadata, embedding <=> $1 AS distance
		FROM   %s
		ORDER  BY distance, id
		LIMIT  $2`, s.ident())
	rows, err := s.pool.Query(ctx, q, pgvec.NewVector(vector), topK)
	if err != nil {
		return nil, domain.Remote("postgres", "query", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Match, error) {
		var (
			m        domain.Match
			meta     []byte
			distance float64
		)
		if err := row.Scan(&m.ID, &m.Text, &meta, &distance); err != nil {
			return domain.Match{}, err
		}
		m.Score = scoreFromDistance(distance)
		if includeMetadata && len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return domain.Match{}, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
			}
		}
		return m, nil
	})
	if err != nil {
		return nil, domain.Remote("postgres", "scan", err)
	}
	if matches == nil {
		matches = []domain.Match{}
	}
	return matches, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.ident())); err != nil {
		return domain.Remote("postgres", "drop table", err)
	}
	s.dimension = 0
	return nil
}

func (s *Storage) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// checkVector rejects vectors the <=> operator cannot score meaningfully.
func (s *Storage) checkVector(id string, v []float32) error {
	if s.dimension > 0 && len(v) != s.dimension {
		return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(v)}
	}
	if similarity.Magnitude(v) == 0 {
		return &domain.InvalidVectorError{ID: id}
	}
	return nil
}

// scoreFromDistance converts cosine distance in [0, 2] to similarity in [-1, 1].
func scoreFromDistance(d float64) float64 {
	score := 1 - d
	switch {
	case score > 1:
		return 1
	case score < -1:
		return -1
	}
	return score
}
