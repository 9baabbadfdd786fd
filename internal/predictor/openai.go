package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meditext/labelengine/internal/domain"
)

// OpenAIPredictor scores sentences through any OpenAI-compatible chat
// endpoint (OpenAI, Nebius, vLLM). Each configured model is an independent
// ensemble member.
type OpenAIPredictor struct {
	client *openai.Client
	model  string
}

func NewOpenAIPredictor(apiKey, baseURL, model string) *OpenAIPredictor {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIPredictor{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIPredictor) ID() string {
	return "openai/" + p.model
}

func (p *OpenAIPredictor) Score(ctx context.Context, sentence string, categories []domain.Category) (map[domain.Category]float64, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildScoringPrompt(sentence, categories)},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return parseScores(resp.Choices[0].Message.Content, categories)
}

const scoringSystemPrompt = `You classify sentences from medical and therapy research text.
For the given sentence, score how strongly it belongs to each listed category.
Respond with a single JSON object mapping every category name to a score between 0.0 and 1.0.
Do not include any key that is not in the category list.`

func buildScoringPrompt(sentence string, categories []domain.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	b.WriteString("\nSentence: ")
	b.WriteString(sentence)
	return b.String()
}

// parseScores extracts per-category scores from the model's JSON reply,
// dropping any key outside the fixed category set and clamping to [0,1].
func parseScores(content string, categories []domain.Category) (map[domain.Category]float64, error) {
	var raw map[string]float64
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}

	known := make(map[domain.Category]bool, len(categories))
	for _, c := range categories {
		known[c] = true
	}

	scores := make(map[domain.Category]float64, len(categories))
	for k, v := range raw {
		c := domain.Category(k)
		if !known[c] {
			continue
		}
		scores[c] = clampScore(v)
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("no valid category scores in response")
	}

	return scores, nil
}
