package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type KnowledgeBaseStore interface {
	Save(ctx context.Context, kb *KnowledgeBase) error
	GetByName(ctx context.Context, name string) (*KnowledgeBase, error)
	List(ctx context.Context) ([]KnowledgeBaseSummary, error)
	Delete(ctx context.Context, name string) error
	Ping(ctx context.Context) error
}

// SessionStore holds consultations for the lifetime of the process.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// Update replaces the session if its Version still matches the stored
	// one, then increments Version.
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}
