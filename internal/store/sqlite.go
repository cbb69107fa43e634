package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/expertd/internal/domain"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS knowledge_bases (
    name        TEXT PRIMARY KEY,
    description TEXT NOT NULL DEFAULT '',
    document    TEXT NOT NULL,
    hypotheses  INTEGER NOT NULL DEFAULT 0,
    evidences   INTEGER NOT NULL DEFAULT 0,
    updated_at  TEXT NOT NULL
);`

// SQLiteKnowledgeBaseStore keeps knowledge bases in a single SQLite file.
type SQLiteKnowledgeBaseStore struct {
	db *sql.DB
}

// OpenSQLiteKnowledgeBaseStore opens (or creates) the database at path and
// ensures the schema exists. Use ":memory:" for a throwaway store.
func OpenSQLiteKnowledgeBaseStore(ctx context.Context, path string) (*SQLiteKnowledgeBaseStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteKnowledgeBaseStore{db: db}, nil
}

func (s *SQLiteKnowledgeBaseStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteKnowledgeBaseStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	doc, err := encodeDocument(kb)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO knowledge_bases (name, description, document, hypotheses, evidences, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE
		 SET description = excluded.description, document = excluded.document,
		     hypotheses = excluded.hypotheses, evidences = excluded.evidences,
		     updated_at = excluded.updated_at`,
		kb.Name, kb.Description, string(doc), len(kb.Hypotheses), len(kb.Evidences), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	kb.UpdatedAt = now
	return nil
}

func (s *SQLiteKnowledgeBaseStore) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	kb := &domain.KnowledgeBase{}
	var raw, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, description, document, updated_at FROM knowledge_bases WHERE name = ?`,
		name,
	).Scan(&kb.Name, &kb.Description, &raw, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := decodeDocument(kb, []byte(raw)); err != nil {
		return nil, err
	}
	kb.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return kb, nil
}

func (s *SQLiteKnowledgeBaseStore) List(ctx context.Context) ([]domain.KnowledgeBaseSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, hypotheses, evidences, updated_at
		 FROM knowledge_bases ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.KnowledgeBaseSummary
	for rows.Next() {
		var sum domain.KnowledgeBaseSummary
		var updated string
		if err := rows.Scan(&sum.Name, &sum.Description, &sum.HypothesisCount, &sum.EvidenceCount, &updated); err != nil {
			return nil, err
		}
		sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *SQLiteKnowledgeBaseStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteKnowledgeBaseStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
