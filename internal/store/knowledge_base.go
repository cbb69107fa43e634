package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// document is the persisted body of a knowledge base, in the same shape
// the kdb*.json files use.
type document struct {
	Hypotheses map[string]domain.HypothesisSpec `json:"hypotheses"`
	Evidences  map[string]domain.EvidenceSpec   `json:"evidences"`
}

func encodeDocument(kb *domain.KnowledgeBase) ([]byte, error) {
	b, err := json.Marshal(document{Hypotheses: kb.Hypotheses, Evidences: kb.Evidences})
	if err != nil {
		return nil, fmt.Errorf("encode knowledge base %q: %w", kb.Name, err)
	}
	return b, nil
}

func decodeDocument(kb *domain.KnowledgeBase, raw []byte) error {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode knowledge base %q: %w", kb.Name, err)
	}
	kb.Hypotheses = doc.Hypotheses
	kb.Evidences = doc.Evidences
	return nil
}

// KnowledgeBaseStore keeps knowledge bases in PostgreSQL as JSONB documents.
type KnowledgeBaseStore struct {
	db *pgxpool.Pool
}

func NewKnowledgeBaseStore(db *pgxpool.Pool) *KnowledgeBaseStore {
	return &KnowledgeBaseStore{db: db}
}

func (s *KnowledgeBaseStore) Save(ctx context.Context, kb *domain.KnowledgeBase) error {
	doc, err := encodeDocument(kb)
	if err != nil {
		return err
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO knowledge_bases (name, description, document)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE
		 SET description = EXCLUDED.description, document = EXCLUDED.document, updated_at = NOW()
		 RETURNING updated_at`,
		kb.Name, kb.Description, doc,
	).Scan(&kb.UpdatedAt)
}

func (s *KnowledgeBaseStore) GetByName(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	kb := &domain.KnowledgeBase{}
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT name, description, document, updated_at
		 FROM knowledge_bases WHERE name = $1`,
		name,
	).Scan(&kb.Name, &kb.Description, &raw, &kb.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := decodeDocument(kb, raw); err != nil {
		return nil, err
	}
	return kb, nil
}

func (s *KnowledgeBaseStore) List(ctx context.Context) ([]domain.KnowledgeBaseSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, description,
		        (SELECT COUNT(*) FROM jsonb_object_keys(document->'hypotheses')),
		        (SELECT COUNT(*) FROM jsonb_object_keys(document->'evidences')),
		        updated_at
		 FROM knowledge_bases ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.KnowledgeBaseSummary
	for rows.Next() {
		var sum domain.KnowledgeBaseSummary
		if err := rows.Scan(&sum.Name, &sum.Description, &sum.HypothesisCount, &sum.EvidenceCount, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *KnowledgeBaseStore) Delete(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM knowledge_bases WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *KnowledgeBaseStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
