package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Triplet quantifies how one evidence discriminates for one hypothesis.
// PPlus is P(evidence | hypothesis), PMinus is P(evidence | not hypothesis).
// On the wire it is the two-element array [p_plus, p_minus].
type Triplet struct {
	PPlus  float64
	PMinus float64
}

func (t Triplet) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{t.PPlus, t.PMinus})
}

func (t *Triplet) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("triplet must be [p_plus, p_minus]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("triplet must have 2 elements, got %d", len(pair))
	}
	t.PPlus, t.PMinus = pair[0], pair[1]
	return nil
}

// HypothesisSpec is a hypothesis as loaded from a knowledge base.
// Triplets is sparse: a missing entry means the evidence says nothing
// about this hypothesis.
type HypothesisSpec struct {
	PH       float64            `json:"PH"`
	Triplets map[string]Triplet `json:"e_triplets"`
}

// EvidenceSpec is a question as loaded from a knowledge base.
type EvidenceSpec struct {
	Question string `json:"question"`
}

// KnowledgeBase is the fixed input of a consultation: hypotheses with
// priors and the pool of questions that discriminate between them.
type KnowledgeBase struct {
	Name        string                    `json:"name,omitempty"`
	Description string                    `json:"description,omitempty"`
	Hypotheses  map[string]HypothesisSpec `json:"hypotheses"`
	Evidences   map[string]EvidenceSpec   `json:"evidences"`
	UpdatedAt   time.Time                 `json:"updated_at,omitzero"`
}

// KnowledgeBaseSummary is the listing view of a stored knowledge base.
type KnowledgeBaseSummary struct {
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	HypothesisCount int       `json:"hypothesis_count"`
	EvidenceCount   int       `json:"evidence_count"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

func (kb *KnowledgeBase) Summary() KnowledgeBaseSummary {
	return KnowledgeBaseSummary{
		Name:            kb.Name,
		Description:     kb.Description,
		HypothesisCount: len(kb.Hypotheses),
		EvidenceCount:   len(kb.Evidences),
		UpdatedAt:       kb.UpdatedAt,
	}
}
