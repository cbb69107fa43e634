package store

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/google/uuid"
)

// MemorySessionStore keeps sessions in process memory. Sessions are gone
// when the process exits.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (s *MemorySessionStore) Create(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if _, exists := s.sessions[sess.ID]; exists {
		return ErrConflict
	}
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	sess.Version = 1
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *MemorySessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(sess), nil
}

func (s *MemorySessionStore) Update(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != sess.Version {
		return ErrConflict
	}
	sess.Version++
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	if s.Pending != nil {
		q := *s.Pending
		c.Pending = &q
	}
	c.Beliefs = append([]domain.Belief(nil), s.Beliefs...)
	c.Winners = append([]string(nil), s.Winners...)
	c.Answers = append([]domain.Answer(nil), s.Answers...)
	return &c
}
