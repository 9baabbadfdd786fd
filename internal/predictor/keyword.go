package predictor

import (
	"context"
	"strings"

	"github.com/meditext/labelengine/internal/domain"
)

// KeywordPredictor is a cheap local ensemble member that scores categories by
// surface cues. It keeps the ensemble functional when no LLM backend is
// reachable and anchors votes on sentences with obvious markers.
type KeywordPredictor struct {
	cues map[domain.Category][]string
}

func NewKeywordPredictor() *KeywordPredictor {
	return &KeywordPredictor{
		cues: map[domain.Category][]string{
			"efficacy_extent":        {"improvement", "improved", "reduction in", "response to treatment"},
			"efficacy_rate":          {"success rate", "efficacy", "% of patients", "response rate"},
			"side_effect_severity":   {"mild", "moderate", "severe", "adverse reaction"},
			"side_effect_risk":       {"side effects occurred", "risk of complication", "adverse event rate"},
			"cost":                   {"$", "cost", "price", "per session", "per patient"},
			"effect_size_evidence":   {"cohen's d", "effect size", "odds ratio", "confidence interval"},
			"trial_design":           {"randomized", "double-blind", "placebo", "controlled trial", "crossover"},
			"trial_length":           {"week", "month", "year", "follow-up", "duration"},
			"num_participants":       {"participants", "patients enrolled", "subjects", "sample size"},
			"sex_participants":       {"male", "female", "men", "women"},
			"age_range_participants": {"aged", "age range", "years old", "mean age"},
		},
	}
}

func (p *KeywordPredictor) ID() string {
	return "heuristic/keyword"
}

func (p *KeywordPredictor) Score(ctx context.Context, sentence string, categories []domain.Category) (map[domain.Category]float64, error) {
	lower := strings.ToLower(sentence)

	scores := make(map[domain.Category]float64, len(categories))
	for _, c := range categories {
		scores[c] = p.scoreCategory(lower, c)
	}
	return scores, nil
}

func (p *KeywordPredictor) scoreCategory(lower string, c domain.Category) float64 {
	cues, ok := p.cues[c]
	if !ok {
		return 0.05
	}

	hits := 0
	for _, cue := range cues {
		if strings.Contains(lower, cue) {
			hits++
		}
	}

	switch {
	case hits >= 2:
		return 0.9
	case hits == 1:
		return 0.7
	default:
		return 0.05
	}
}
