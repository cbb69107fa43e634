package inference

import (
	"errors"

	"github.com/Harshitk-cp/expertd/internal/domain"
)

var (
	// ErrUndefinedPosterior means P(E) hit exactly 0 or 1, which only
	// happens with a degenerate triplet against a non-degenerate prior.
	ErrUndefinedPosterior = errors.New("posterior undefined: P(E) is 0 or 1")
	ErrUnknownEvidence    = errors.New("evidence is not in the live pool")
	ErrInvalidAnswer      = errors.New("answer must be an integer in [-5, 5]")
)

// PE is the marginal probability that the evidence holds.
func PE(ph float64, t domain.Triplet) float64 {
	return ph*t.PPlus + (1-ph)*t.PMinus
}

// PHE is the posterior of the hypothesis given the evidence is confirmed.
func PHE(ph float64, t domain.Triplet) (float64, error) {
	pe := PE(ph, t)
	if pe == 0 {
		return 0, ErrUndefinedPosterior
	}
	return t.PPlus * ph / pe, nil
}

// PHnE is the posterior of the hypothesis given the evidence is refuted.
func PHnE(ph float64, t domain.Triplet) (float64, error) {
	pe := PE(ph, t)
	if pe == 1 {
		return 0, ErrUndefinedPosterior
	}
	return (1 - t.PPlus) * ph / (1 - pe), nil
}

// Interpolate blends linearly between the neutral point (0, neutral) and
// the anchor (anchorX, anchor) and evaluates the line at x.
// At x == anchorX the result is exactly anchor.
func Interpolate(anchorX int, anchor, neutral float64, x int) float64 {
	w := float64(x) / float64(anchorX)
	return (1-w)*neutral + w*anchor
}

// Revise returns the belief after a graded answer r.
func Revise(ph float64, t domain.Triplet, r int) (float64, error) {
	switch {
	case r > 0:
		edge, err := PHE(ph, t)
		if err != nil {
			return 0, err
		}
		return Interpolate(domain.MaxResponse, edge, ph, r), nil
	case r < 0:
		edge, err := PHnE(ph, t)
		if err != nil {
			return 0, err
		}
		return Interpolate(domain.MinResponse, edge, ph, r), nil
	default:
		return ph, nil
	}
}

// swing is |PHE - PHnE|, the discriminative power of one triplet.
func swing(ph float64, t domain.Triplet) (float64, error) {
	yes, err := PHE(ph, t)
	if err != nil {
		return 0, err
	}
	no, err := PHnE(ph, t)
	if err != nil {
		return 0, err
	}
	if yes > no {
		return yes - no, nil
	}
	return no - yes, nil
}
