package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a consultation.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"    // waiting for an answer
	SessionDecided   SessionStatus = "decided"   // a hypothesis provably dominates
	SessionExhausted SessionStatus = "exhausted" // no questions left, best-effort winners
)

// Answer is one graded response recorded in a session.
type Answer struct {
	EvidenceID string    `json:"evidence_id"`
	Question   string    `json:"question"`
	Response   int       `json:"response"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Session is a consultation against one knowledge base. The answer log is
// the source of truth; Pending, Beliefs and Winners are derived from it.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	KnowledgeBase string        `json:"knowledge_base"`
	Status        SessionStatus `json:"status"`
	Pending       *Question     `json:"pending,omitempty"`
	Beliefs       []Belief      `json:"beliefs"`
	Winners       []string      `json:"winners,omitempty"`
	Answers       []Answer      `json:"answers"`
	Remaining     int           `json:"remaining"`
	Version       int           `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Finished reports whether the session accepts no more answers.
func (s *Session) Finished() bool {
	return s.Status == SessionDecided || s.Status == SessionExhausted
}
