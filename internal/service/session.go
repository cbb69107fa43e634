package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/inference"
	"github.com/Harshitk-cp/expertd/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session is finished")
	ErrSessionConflict = errors.New("session was modified concurrently")
	ErrNothingToUndo   = errors.New("session has no answers to undo")
	ErrNotPending      = errors.New("evidence is not the pending question")
)

// SessionService runs consultations as a request/response cycle: every
// call loads the session, replays its answer log into a fresh engine,
// applies the change and stores the derived state.
type SessionService struct {
	sessions       domain.SessionStore
	knowledgeBases domain.KnowledgeBaseStore
	logger         *zap.Logger
	now            func() time.Time
}

func NewSessionService(sessions domain.SessionStore, kbs domain.KnowledgeBaseStore, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions:       sessions,
		knowledgeBases: kbs,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Start opens a consultation on the named knowledge base and selects the
// first question.
func (s *SessionService) Start(ctx context.Context, knowledgeBase string) (*domain.Session, error) {
	kb, err := s.knowledgeBase(ctx, knowledgeBase)
	if err != nil {
		return nil, err
	}
	eng, err := inference.New(kb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKnowledgeBase, err)
	}

	sess := &domain.Session{
		KnowledgeBase: kb.Name,
		Answers:       []domain.Answer{},
	}
	if err := derive(sess, eng); err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("session started",
		zap.String("session_id", sess.ID.String()),
		zap.String("knowledge_base", kb.Name),
		zap.String("status", string(sess.Status)))
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

// Answer applies the graded response r to the pending question. An empty
// evidenceID stands for the pending question.
func (s *SessionService) Answer(ctx context.Context, id uuid.UUID, evidenceID string, r int) (*domain.Session, error) {
	if r < domain.MinResponse || r > domain.MaxResponse {
		return nil, fmt.Errorf("%w: got %d", inference.ErrInvalidAnswer, r)
	}

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Finished() {
		return nil, ErrSessionFinished
	}
	if evidenceID == "" && sess.Pending != nil {
		evidenceID = sess.Pending.EvidenceID
	}

	eng, err := s.replay(ctx, sess)
	if err != nil {
		return nil, err
	}
	ev, ok := eng.Evidence(evidenceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", inference.ErrUnknownEvidence, evidenceID)
	}
	if sess.Pending != nil && evidenceID != sess.Pending.EvidenceID {
		return nil, fmt.Errorf("%w: got %q, pending %q", ErrNotPending, evidenceID, sess.Pending.EvidenceID)
	}
	if err := eng.ApplyAnswer(evidenceID, r); err != nil {
		return nil, err
	}

	sess.Answers = append(sess.Answers, domain.Answer{
		EvidenceID: evidenceID,
		Question:   ev.Question,
		Response:   r,
		AnsweredAt: s.now(),
	})
	if err := derive(sess, eng); err != nil {
		return nil, err
	}
	if err := s.update(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("answer applied",
		zap.String("session_id", sess.ID.String()),
		zap.String("evidence_id", evidenceID),
		zap.Int("response", r),
		zap.Int("remaining", sess.Remaining))
	if sess.Finished() {
		s.logger.Info("session finished",
			zap.String("session_id", sess.ID.String()),
			zap.String("status", string(sess.Status)),
			zap.Strings("winners", sess.Winners),
			zap.Int("answers", len(sess.Answers)))
	}
	return sess, nil
}

// Undo retracts the most recent answer, reopening a finished session.
func (s *SessionService) Undo(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(sess.Answers) == 0 {
		return nil, ErrNothingToUndo
	}

	retracted := sess.Answers[len(sess.Answers)-1]
	sess.Answers = sess.Answers[:len(sess.Answers)-1]

	eng, err := s.replay(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := derive(sess, eng); err != nil {
		return nil, err
	}
	if err := s.update(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("answer retracted",
		zap.String("session_id", sess.ID.String()),
		zap.String("evidence_id", retracted.EvidenceID))
	return sess, nil
}

func (s *SessionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (s *SessionService) knowledgeBase(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	kb, err := s.knowledgeBases.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return kb, nil
}

// replay rebuilds the engine state of sess from its answer log.
func (s *SessionService) replay(ctx context.Context, sess *domain.Session) (*inference.Engine, error) {
	kb, err := s.knowledgeBase(ctx, sess.KnowledgeBase)
	if err != nil {
		return nil, err
	}
	eng, err := inference.New(kb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKnowledgeBase, err)
	}
	for i, a := range sess.Answers {
		if err := eng.ApplyAnswer(a.EvidenceID, a.Response); err != nil {
			return nil, fmt.Errorf("replay answer %d of session %s: %w", i+1, sess.ID, err)
		}
	}
	return eng, nil
}

func (s *SessionService) update(ctx context.Context, sess *domain.Session) error {
	if err := s.sessions.Update(ctx, sess); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return ErrSessionConflict
		case errors.Is(err, store.ErrNotFound):
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// derive refreshes everything in sess that follows from the engine state:
// bounds, termination, beliefs and the next question. While questions are
// left, no verdict is given before the first answer.
func derive(sess *domain.Session, eng *inference.Engine) error {
	if err := eng.RecomputeBounds(); err != nil {
		return err
	}
	out := eng.Outcome()
	if len(sess.Answers) == 0 && !out.Exhausted {
		out = inference.Outcome{}
	}

	sess.Beliefs = eng.RankedBeliefs()
	sess.Winners = out.Winners
	sess.Remaining = eng.Remaining()
	sess.Pending = nil

	switch {
	case out.Decided:
		sess.Status = domain.SessionDecided
	case out.Exhausted:
		sess.Status = domain.SessionExhausted
	default:
		sess.Status = domain.SessionActive
		if err := eng.RecomputeCosts(); err != nil {
			return err
		}
		top, ok := eng.TopCostEvidence()
		if !ok {
			return errors.New("no evidence left in an active session")
		}
		sess.Pending = &domain.Question{EvidenceID: top.ID, Text: top.Question, Cost: top.Cost}
	}
	return nil
}
