package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/inference"
	"github.com/Harshitk-cp/expertd/internal/store"
	"go.uber.org/zap"
)

var (
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")
	ErrInvalidKnowledgeBase  = errors.New("invalid knowledge base")
)

var knowledgeBaseName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

type KnowledgeBaseService struct {
	store  domain.KnowledgeBaseStore
	logger *zap.Logger
}

func NewKnowledgeBaseService(s domain.KnowledgeBaseStore, logger *zap.Logger) *KnowledgeBaseService {
	return &KnowledgeBaseService{store: s, logger: logger}
}

// Import validates kb and stores it, replacing any knowledge base with the
// same name. Running sessions keep replaying against the stored version, so
// replacing a knowledge base mid-session can invalidate them.
func (s *KnowledgeBaseService) Import(ctx context.Context, kb *domain.KnowledgeBase) error {
	if err := ValidateKnowledgeBase(kb); err != nil {
		return err
	}
	if err := s.store.Save(ctx, kb); err != nil {
		return fmt.Errorf("save knowledge base %q: %w", kb.Name, err)
	}

	s.logger.Info("knowledge base imported",
		zap.String("knowledge_base", kb.Name),
		zap.Int("hypotheses", len(kb.Hypotheses)),
		zap.Int("evidences", len(kb.Evidences)))
	return nil
}

func (s *KnowledgeBaseService) Get(ctx context.Context, name string) (*domain.KnowledgeBase, error) {
	kb, err := s.store.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return kb, nil
}

func (s *KnowledgeBaseService) List(ctx context.Context) ([]domain.KnowledgeBaseSummary, error) {
	return s.store.List(ctx)
}

func (s *KnowledgeBaseService) Delete(ctx context.Context, name string) error {
	if err := s.store.Delete(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrKnowledgeBaseNotFound
		}
		return err
	}
	s.logger.Info("knowledge base deleted", zap.String("knowledge_base", name))
	return nil
}

// ValidateKnowledgeBase reports every structural problem of kb at once.
// The returned error wraps ErrInvalidKnowledgeBase.
func ValidateKnowledgeBase(kb *domain.KnowledgeBase) error {
	var problems []string

	if !knowledgeBaseName.MatchString(kb.Name) {
		problems = append(problems, fmt.Sprintf("name %q must match %s", kb.Name, knowledgeBaseName))
	}
	if len(kb.Hypotheses) == 0 {
		problems = append(problems, "at least one hypothesis is required")
	}

	names := make([]string, 0, len(kb.Hypotheses))
	for name := range kb.Hypotheses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h := kb.Hypotheses[name]
		if name == "" {
			problems = append(problems, "hypothesis name must not be empty")
		}
		if !isProbability(h.PH) {
			problems = append(problems, fmt.Sprintf("%s: PH %v outside [0, 1]", name, h.PH))
		}

		ids := make([]string, 0, len(h.Triplets))
		for id := range h.Triplets {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			t := h.Triplets[id]
			if _, ok := kb.Evidences[id]; !ok {
				problems = append(problems, fmt.Sprintf("%s: triplet for unknown evidence %q", name, id))
			}
			if !isProbability(t.PPlus) || !isProbability(t.PMinus) {
				problems = append(problems, fmt.Sprintf("%s/%s: probabilities [%v, %v] outside [0, 1]", name, id, t.PPlus, t.PMinus))
				continue
			}
			if t.PPlus == t.PMinus && (t.PPlus == 0 || t.PPlus == 1) {
				problems = append(problems, fmt.Sprintf("%s/%s: degenerate triplet [%v, %v]", name, id, t.PPlus, t.PMinus))
			}
		}
	}

	for id, ev := range kb.Evidences {
		if strings.TrimSpace(ev.Question) == "" {
			problems = append(problems, fmt.Sprintf("evidence %q has no question", id))
		}
	}

	if len(problems) == 0 {
		// The remaining failure mode is a posterior that is undefined for
		// the given priors, which only the engine itself can detect.
		if _, err := inference.New(kb); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrInvalidKnowledgeBase, strings.Join(problems, "; "))
	}
	return nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}
