package predictor

import (
	"fmt"

	"github.com/meditext/labelengine/internal/config"
)

// FromConfig assembles the predictor pool: one predictor per configured
// OpenAI-compatible model, one per Ollama model, plus the keyword heuristic.
// The ensemble needs at least two members for voting to mean anything.
func FromConfig(cfg *config.PredictorConfig) ([]Predictor, error) {
	var predictors []Predictor

	if cfg.OpenAIAPIKey != "" {
		for _, model := range cfg.OpenAIModels {
			predictors = append(predictors, NewOpenAIPredictor(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model))
		}
	}
	for _, model := range cfg.OllamaModels {
		predictors = append(predictors, NewOllamaPredictor(cfg.OllamaBaseURL, model))
	}
	predictors = append(predictors, NewKeywordPredictor())

	if len(predictors) < 2 {
		return nil, fmt.Errorf("ensemble needs at least 2 predictors, got %d: configure OpenAI or Ollama models", len(predictors))
	}
	return predictors, nil
}
