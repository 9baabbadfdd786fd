package domain

import "time"

// LabelSource records how a sample's final labels were assigned. Auto-accepted
// samples are excluded from metric recomputation so automated labels never
// feed the accuracy gate that justifies them.
type LabelSource string

const (
	LabeledByNone  LabelSource = ""
	LabeledByHuman LabelSource = "human"
	LabeledByAuto  LabelSource = "auto"
)

const (
	SourceReal      = "real"
	SourceSynthetic = "synthetic"
)

// Sample is the persistent unit of work: one sentence, its ensemble verdict
// at insertion time, and its evolving human labels.
//
// Lifecycle: created (NeedsReview=true, no HumanLabels) -> human-confirmed or
// auto-accepted (NeedsReview=false, HumanLabels set). Undo reverts to created.
type Sample struct {
	ID                 string                `json:"id"`
	Sentence           string                `json:"sentence"`
	Source             string                `json:"source"`
	HumanLabels        []Category            `json:"human_labels,omitempty"`
	EnsembleLabels     []Category            `json:"ensemble_labels"`
	Confidence         float64               `json:"confidence"`
	Entropy            float64               `json:"entropy"`
	Agreement          map[Category]float64  `json:"agreement,omitempty"`
	PerPredictorLabels map[string][]Category `json:"per_predictor_labels,omitempty"`
	NeedsReview        bool                  `json:"needs_review"`
	LabeledBy          LabelSource           `json:"labeled_by,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
}

// NewSample snapshots a verdict into a fresh sample. The verdict fields are
// never recomputed afterwards, even if the predictor set changes.
func NewSample(v *Verdict, source string) *Sample {
	return &Sample{
		Sentence:           v.Sentence,
		Source:             source,
		EnsembleLabels:     v.ConsensusLabels,
		Confidence:         v.Confidence,
		Entropy:            v.Entropy,
		Agreement:          v.Agreement,
		PerPredictorLabels: v.PerPredictorLabels,
		NeedsReview:        true,
		CreatedAt:          time.Now(),
	}
}

// Confirmed reports whether the sample has left the review lifecycle.
func (s *Sample) Confirmed() bool {
	return !s.NeedsReview && len(s.HumanLabels) > 0
}

func (s *Sample) HasHumanLabel(c Category) bool {
	return containsCategory(s.HumanLabels, c)
}

func (s *Sample) HasEnsembleLabel(c Category) bool {
	return containsCategory(s.EnsembleLabels, c)
}

func containsCategory(labels []Category, c Category) bool {
	for _, l := range labels {
		if l == c {
			return true
		}
	}
	return false
}
