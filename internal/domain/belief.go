package domain

// Belief is the current probability of one hypothesis together with the
// interval it can still reach under the remaining questions.
type Belief struct {
	Hypothesis  string  `json:"hypothesis"`
	Probability float64 `json:"probability"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

// Question is the next evidence to ask about.
type Question struct {
	EvidenceID string  `json:"evidence_id"`
	Text       string  `json:"text"`
	Cost       float64 `json:"cost"`
}

// Graded answer range. MaxResponse is total agreement, MinResponse total
// disagreement, zero carries no information.
const (
	MinResponse = -5
	MaxResponse = 5
)
