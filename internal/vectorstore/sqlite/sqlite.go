// Package sqlite is a durable local vector store. Records live in a SQLite
// table and queries are ranked in memory by cosine similarity, which is
// adequate for the small corpora this tool indexes locally.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"ragflow/internal/domain"
	"ragflow/internal/similarity"
	"ragflow/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id        TEXT PRIMARY KEY,
    text      TEXT NOT NULL,
    metadata  TEXT,
    embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS store_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Storage is a vector store persisted in a SQLite database file.
type Storage struct {
	db        *sql.DB
	dimension int
}

// Open opens (or creates) the database at path. Use ":memory:" for a throwaway store.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: ensure schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the database handle.
func (s *Storage) Close() error { return s.db.Close() }

// Init records the dimension on first use and rejects a different one afterwards.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	var stored int
	err := s.db.QueryRowContext(ctx, `SELECT CAST(value AS INTEGER) FROM store_meta WHERE key = 'dimension'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, `INSERT INTO store_meta(key, value) VALUES('dimension', ?)`, dimension); err != nil {
			return fmt.Errorf("sqlite store: save dimension: %w", err)
		}
	case err != nil:
		return fmt.Errorf("sqlite store: read dimension: %w", err)
	case stored != dimension:
		return &domain.DimensionMismatchError{Expected: stored, Actual: dimension}
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if s.dimension > 0 && len(r.Vector) != s.dimension {
			return &domain.DimensionMismatchError{Expected: s.dimension, Actual: len(r.Vector)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records(id, text, metadata, embedding) VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		    text = excluded.text,
		    metadata = excluded.metadata,
		    embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("sqlite store: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite store: encode metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, string(meta), encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("sqlite store: upsert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}

// Query loads every record and ranks it against vector.
func (s *Storage) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]domain.Match, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, metadata, embedding FROM records ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query: %w", err)
	}
	defer rows.Close()

	var candidates []similarity.Candidate
	for rows.Next() {
		var (
			c    similarity.Candidate
			meta sql.NullString
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		if c.Vector, err = decodeVector(blob); err != nil {
			return nil, err
		}
		if includeMetadata && meta.Valid {
			if err := json.Unmarshal([]byte(meta.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("sqlite store: decode metadata for %s: %w", c.ID, err)
			}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: rows: %w", err)
	}

	ranked, err := similarity.Rank(vector, candidates)
	if err != nil {
		return nil, err
	}
	return vectorstore.ToMatches(similarity.TopK(ranked, topK), includeMetadata), nil
}

// Clear deletes every record and forgets the stored dimension.
func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records; DELETE FROM store_meta;`); err != nil {
		return fmt.Errorf("sqlite store: clear: %w", err)
	}
	s.dimension = 0
	return nil
}
