package domain

// PredictorVote is one predictor's raw output for one sentence. Votes are
// ephemeral; only the derived Verdict is persisted.
type PredictorVote struct {
	PredictorID string               `json:"predictor_id"`
	Scores      map[Category]float64 `json:"scores"`
	Labels      []Category           `json:"labels"`
}

// Verdict is the ensemble's consensus for one sentence.
type Verdict struct {
	Sentence           string                `json:"sentence"`
	ConsensusLabels    []Category            `json:"consensus_labels"`
	Confidence         float64               `json:"confidence"`
	Entropy            float64               `json:"entropy"`
	Agreement          map[Category]float64  `json:"agreement"`
	PerPredictorLabels map[string][]Category `json:"per_predictor_labels"`
	RespondingCount    int                   `json:"responding_count"`
	NeedsReview        bool                  `json:"needs_review"`
}

// Degraded reports whether no predictor responded for this sentence.
func (v *Verdict) Degraded() bool {
	return v.RespondingCount == 0
}

func (v *Verdict) HasLabel(c Category) bool {
	for _, l := range v.ConsensusLabels {
		if l == c {
			return true
		}
	}
	return false
}
