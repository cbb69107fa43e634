// Package inference narrows belief over a fixed set of hypotheses by asking
// the most discriminating remaining question and revising every hypothesis
// with a graded answer.
//
// An Engine is a plain state machine. It performs no I/O, never blocks and
// is not safe for concurrent use; callers own one Engine per consultation.
package inference

import (
	"fmt"
	"math"
	"sort"

	"github.com/Harshitk-cp/expertd/internal/domain"
)

// Hypothesis is the mutable belief state of one candidate explanation.
type Hypothesis struct {
	Name string
	PH   float64
	// PMax and PMin bound the PH reachable from the remaining questions.
	// They are only as fresh as the last RecomputeBounds.
	PMax float64
	PMin float64

	triplets map[string]domain.Triplet
}

// Triplet looks up the hypothesis' entry for an evidence. Hypotheses and
// evidences form a sparse relation, so ok == false is the common case and
// means the evidence is uninformative for this hypothesis.
func (h *Hypothesis) Triplet(evidenceID string) (t domain.Triplet, ok bool) {
	t, ok = h.triplets[evidenceID]
	return t, ok
}

// Evidence is a live question in the pool.
type Evidence struct {
	ID       string
	Question string
	Cost     float64
}

// Outcome is the result of the termination check.
type Outcome struct {
	Winners []string
	// Decided is true when one hypothesis dominates under every possible
	// sequence of remaining answers.
	Decided bool
	// Exhausted is true when no questions are left. Without Decided the
	// winners are only the most probable hypotheses, not proven ones.
	Exhausted bool
}

type Engine struct {
	hypotheses []*Hypothesis // ascending by name
	evidences  map[string]*Evidence
	live       []string // natural order, see naturalLess
}

// New builds an engine over a private copy of kb, then computes the initial
// costs and bounds.
func New(kb *domain.KnowledgeBase) (*Engine, error) {
	e := &Engine{
		hypotheses: make([]*Hypothesis, 0, len(kb.Hypotheses)),
		evidences:  make(map[string]*Evidence, len(kb.Evidences)),
		live:       make([]string, 0, len(kb.Evidences)),
	}

	for name, spec := range kb.Hypotheses {
		triplets := make(map[string]domain.Triplet, len(spec.Triplets))
		for id, t := range spec.Triplets {
			triplets[id] = t
		}
		e.hypotheses = append(e.hypotheses, &Hypothesis{
			Name:     name,
			PH:       spec.PH,
			PMax:     spec.PH,
			PMin:     spec.PH,
			triplets: triplets,
		})
	}
	sort.Slice(e.hypotheses, func(i, j int) bool {
		return e.hypotheses[i].Name < e.hypotheses[j].Name
	})

	for id, spec := range kb.Evidences {
		e.evidences[id] = &Evidence{ID: id, Question: spec.Question}
		e.live = append(e.live, id)
	}
	sortNatural(e.live)

	if err := e.RecomputeCosts(); err != nil {
		return nil, err
	}
	if err := e.RecomputeBounds(); err != nil {
		return nil, err
	}
	return e, nil
}

// RecomputeCosts scores every live evidence by the total swing
// |PHE - PHnE| it would cause across the hypotheses it informs.
func (e *Engine) RecomputeCosts() error {
	costs := make([]float64, len(e.live))
	for i, id := range e.live {
		for _, h := range e.hypotheses {
			t, ok := h.Triplet(id)
			if !ok {
				continue
			}
			s, err := swing(h.PH, t)
			if err != nil {
				return fmt.Errorf("cost of evidence %q for %q: %w", id, h.Name, err)
			}
			costs[i] += s
		}
	}
	for i, id := range e.live {
		e.evidences[id].Cost = costs[i]
	}
	return nil
}

// TopCostEvidence returns the live evidence with the highest cost. Ties go
// to the later identifier in natural order.
func (e *Engine) TopCostEvidence() (Evidence, bool) {
	var best *Evidence
	for _, id := range e.live {
		ev := e.evidences[id]
		if best == nil || ev.Cost >= best.Cost {
			best = ev
		}
	}
	if best == nil {
		return Evidence{}, false
	}
	return *best, true
}

// ApplyAnswer revises every hypothesis informed by the evidence with the
// graded answer r and consumes the evidence. The update is all or nothing:
// on error no belief changes and the evidence stays live.
func (e *Engine) ApplyAnswer(evidenceID string, r int) error {
	if r < domain.MinResponse || r > domain.MaxResponse {
		return fmt.Errorf("%w: got %d", ErrInvalidAnswer, r)
	}
	idx := e.liveIndex(evidenceID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownEvidence, evidenceID)
	}

	revised := make([]float64, len(e.hypotheses))
	for i, h := range e.hypotheses {
		revised[i] = h.PH
		t, ok := h.Triplet(evidenceID)
		if !ok {
			continue
		}
		ph, err := Revise(h.PH, t, r)
		if err != nil {
			return fmt.Errorf("revise %q on evidence %q: %w", h.Name, evidenceID, err)
		}
		revised[i] = ph
	}

	for i, h := range e.hypotheses {
		h.PH = revised[i]
	}
	delete(e.evidences, evidenceID)
	e.live = append(e.live[:idx], e.live[idx+1:]...)
	return nil
}

// RecomputeBounds rebuilds PMax and PMin of every hypothesis assuming each
// remaining question is answered with full agreement or full disagreement,
// whichever is most (least) favorable.
func (e *Engine) RecomputeBounds() error {
	type bound struct{ max, min float64 }
	bounds := make([]bound, len(e.hypotheses))

	for i, h := range e.hypotheses {
		b := bound{max: h.PH, min: h.PH}
		for _, id := range e.live {
			t, ok := h.Triplet(id)
			if !ok {
				continue
			}
			yes, err := PHE(b.max, t)
			if err != nil {
				return fmt.Errorf("upper bound of %q on evidence %q: %w", h.Name, id, err)
			}
			no, err := PHnE(b.max, t)
			if err != nil {
				return fmt.Errorf("upper bound of %q on evidence %q: %w", h.Name, id, err)
			}
			b.max = math.Max(b.max, math.Max(yes, no))

			yes, err = PHE(b.min, t)
			if err != nil {
				return fmt.Errorf("lower bound of %q on evidence %q: %w", h.Name, id, err)
			}
			no, err = PHnE(b.min, t)
			if err != nil {
				return fmt.Errorf("lower bound of %q on evidence %q: %w", h.Name, id, err)
			}
			b.min = math.Min(b.min, math.Min(yes, no))
		}
		bounds[i] = b
	}

	for i, h := range e.hypotheses {
		h.PMax, h.PMin = bounds[i].max, bounds[i].min
	}
	return nil
}

// Winners returns the hypotheses with the highest PH once the hypothesis
// with the best PMin can no longer be overtaken by any other's PMax.
// It returns nil while the outcome is still open.
func (e *Engine) Winners() []string {
	if len(e.hypotheses) == 0 {
		return nil
	}

	leader := e.hypotheses[0]
	for _, h := range e.hypotheses[1:] {
		if h.PMin > leader.PMin {
			leader = h
		}
	}
	for _, h := range e.hypotheses {
		if h != leader && h.PMax > leader.PMin {
			return nil
		}
	}
	return e.mostProbable()
}

// Outcome runs the termination check. Once the pool is exhausted the bounds
// collapse onto PH, so a tie for the highest PH is reported as a best-effort
// result rather than a decision, as is an exhausted pool with stale bounds.
func (e *Engine) Outcome() Outcome {
	exhausted := len(e.live) == 0
	winners := e.Winners()
	switch {
	case exhausted && len(winners) != 1:
		return Outcome{Winners: e.mostProbable(), Exhausted: true}
	case len(winners) > 0:
		return Outcome{Winners: winners, Decided: true, Exhausted: exhausted}
	}
	return Outcome{}
}

func (e *Engine) mostProbable() []string {
	maxPH := math.Inf(-1)
	for _, h := range e.hypotheses {
		maxPH = math.Max(maxPH, h.PH)
	}
	var names []string
	for _, h := range e.hypotheses {
		if h.PH == maxPH {
			names = append(names, h.Name)
		}
	}
	return names
}

// RankedBeliefs lists hypotheses by descending PH, ties by name.
func (e *Engine) RankedBeliefs() []domain.Belief {
	beliefs := make([]domain.Belief, len(e.hypotheses))
	for i, h := range e.hypotheses {
		beliefs[i] = domain.Belief{
			Hypothesis:  h.Name,
			Probability: h.PH,
			Min:         h.PMin,
			Max:         h.PMax,
		}
	}
	sort.SliceStable(beliefs, func(i, j int) bool {
		return beliefs[i].Probability > beliefs[j].Probability
	})
	return beliefs
}

// Hypothesis returns a copy of the named hypothesis' state.
func (e *Engine) Hypothesis(name string) (Hypothesis, bool) {
	for _, h := range e.hypotheses {
		if h.Name == name {
			return *h, true
		}
	}
	return Hypothesis{}, false
}

// Evidence returns a copy of a live evidence.
func (e *Engine) Evidence(id string) (Evidence, bool) {
	ev, ok := e.evidences[id]
	if !ok {
		return Evidence{}, false
	}
	return *ev, true
}

// Remaining is the number of live evidences.
func (e *Engine) Remaining() int {
	return len(e.live)
}

func (e *Engine) liveIndex(id string) int {
	for i, live := range e.live {
		if live == id {
			return i
		}
	}
	return -1
}
