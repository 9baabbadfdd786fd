package synthetic

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meditext/labelengine/internal/domain"
)

// categoryDescriptions guide the model toward sentences that clearly belong
// to each category.
var categoryDescriptions = map[domain.Category]string{
	"efficacy_extent":        "How much improvement or benefit a therapy provides (e.g., '50% reduction in symptoms', 'complete remission', 'partial response')",
	"efficacy_rate":          "What percentage of patients respond to therapy (e.g., '75% of patients improved', '60% response rate')",
	"side_effect_severity":   "How severe side effects are (e.g., 'mild', 'moderate', 'severe', 'life-threatening')",
	"side_effect_risk":       "Likelihood or percentage of side effects occurring (e.g., '15% experienced nausea', 'rare adverse events')",
	"cost":                   "Monetary cost, price, or financial burden (e.g., '$2,500 per session', 'expensive', 'cost-effective')",
	"effect_size_evidence":   "Statistical measures of treatment effect (e.g., 'Cohen's d = 0.8', 'large effect size', 'odds ratio of 2.5')",
	"trial_design":           "Study methodology (e.g., 'double-blind', 'randomized controlled trial', 'placebo-controlled', 'crossover design')",
	"trial_length":           "Duration of the study or treatment period (e.g., '6-month trial', '12-week study', '2-year follow-up')",
	"num_participants":       "Number of subjects in the study (e.g., '150 participants', '500 patients enrolled')",
	"sex_participants":       "Gender distribution of participants (e.g., '60% female', 'predominantly male cohort')",
	"age_range_participants": "Age information about participants (e.g., '35-70 years old', 'elderly patients', 'mean age 45')",
	"other_participant_info": "Other demographic or clinical characteristics (e.g., 'treatment-resistant patients', 'comorbidities')",
	"other_study_info":       "Other study details (e.g., 'multicenter trial', 'FDA-approved', 'peer-reviewed publication')",
}

// LabeledSentence is one generated sentence with its ground-truth labels.
type LabeledSentence struct {
	Text   string            `json:"text"`
	Labels []domain.Category `json:"-"`
}

// Generator produces labeled single-sentence training data for bootstrapping
// per-category metrics before real confirmed samples exist.
type Generator struct {
	client     *openai.Client
	model      string
	categories *domain.CategorySet
}

func NewGenerator(apiKey, baseURL, model string, categories []domain.Category) *Generator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Generator{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		categories: domain.NewCategorySet(categories),
	}
}

// GenerateBatch asks the model for count single-label sentences focused on
// one category, or count two-label sentences spanning the given pair.
func (g *Generator) GenerateBatch(ctx context.Context, targets []domain.Category, count int) ([]LabeledSentence, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("at least one target category is required")
	}
	for _, c := range targets {
		if !g.categories.Contains(c) {
			return nil, fmt.Errorf("unknown category: %s", c)
		}
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(targets, count)},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	return g.parseSentences(resp.Choices[0].Message.Content)
}

func (g *Generator) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a medical research text generator. Generate realistic SINGLE SENTENCES about medical therapies, clinical trials, and treatment outcomes.\n\nCATEGORIES:\n")
	for _, c := range g.categories.Ordered() {
		fmt.Fprintf(&b, "- %s: %s\n", c, categoryDescriptions[c])
	}
	b.WriteString(`
IMPORTANT CONSTRAINTS:
- Each sample must be ONE complete sentence only
- Each sample should focus on 1-2 categories maximum
- The text should sound like it comes from medical research papers or clinical trial reports

Return a JSON array of objects, each with:
- "text": the generated SINGLE sentence
- "labels": an object with category names as keys and boolean values`)
	return b.String()
}

func userPrompt(targets []domain.Category, count int) string {
	if len(targets) >= 2 {
		names := make([]string, len(targets))
		for i, c := range targets {
			names[i] = string(c)
		}
		return fmt.Sprintf(
			"Generate %d realistic medical/therapy SINGLE SENTENCES. Each sentence must combine EXACTLY 2 of these categories: %s. Use natural combinations. Return exactly %d samples in JSON format.",
			count, strings.Join(names, ", "), count)
	}
	return fmt.Sprintf(
		"Generate %d realistic medical/therapy SINGLE SENTENCES. Each sentence should focus on: %s (%s). Return exactly %d samples in JSON format.",
		count, targets[0], categoryDescriptions[targets[0]], count)
}

// parseSentences decodes the model's JSON array, tolerating markdown code
// fences around it. Sentences with no recognized positive label are dropped.
func (g *Generator) parseSentences(content string) ([]LabeledSentence, error) {
	content = stripCodeFence(content)

	var raw []struct {
		Text   string          `json:"text"`
		Labels map[string]bool `json:"labels"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse generated samples: %w", err)
	}

	var out []LabeledSentence
	for _, r := range raw {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}

		var labels []domain.Category
		for name, positive := range r.Labels {
			c := domain.Category(name)
			if positive && g.categories.Contains(c) {
				labels = append(labels, c)
			}
		}
		if len(labels) == 0 {
			continue
		}
		sort.Slice(labels, func(i, j int) bool {
			return g.categories.Rank(labels[i]) < g.categories.Rank(labels[j])
		})

		out = append(out, LabeledSentence{Text: text, Labels: labels})
	}

	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "```json"); start != -1 {
		s = s[start+len("```json"):]
	} else if start := strings.Index(s, "```"); start != -1 {
		s = s[start+3:]
	}
	if end := strings.Index(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
