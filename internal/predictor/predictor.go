package predictor

import (
	"context"

	"github.com/meditext/labelengine/internal/domain"
)

// Predictor is the black-box label predictor contract: given a sentence and
// the fixed category list, return a confidence score in [0,1] per category.
// A failed call excludes the predictor from that sentence's vote only.
type Predictor interface {
	ID() string
	Score(ctx context.Context, sentence string, categories []domain.Category) (map[domain.Category]float64, error)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
