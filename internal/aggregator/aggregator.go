package aggregator

import (
	"math"

	"github.com/meditext/labelengine/internal/domain"
)

// Aggregator rolls a batch of sentence-level verdicts up into per-category
// summaries for presentation. Pure read path; holds only the fixed category
// order.
type Aggregator struct {
	categories *domain.CategorySet
}

func New(categories []domain.Category) *Aggregator {
	return &Aggregator{categories: domain.NewCategorySet(categories)}
}

// Aggregate summarizes verdicts per category. Every category from the fixed
// set appears in the output, in fixed order, even with zero matches, so
// callers never special-case absent categories.
func (a *Aggregator) Aggregate(verdicts []*domain.Verdict) []domain.CategorySummary {
	type bucket struct {
		count     int
		total     float64
		sentences []domain.SentenceExemplar
	}
	buckets := make(map[domain.Category]*bucket)

	for _, v := range verdicts {
		for _, c := range v.ConsensusLabels {
			b, ok := buckets[c]
			if !ok {
				b = &bucket{}
				buckets[c] = b
			}
			b.count++
			b.total += v.Confidence
			b.sentences = append(b.sentences, domain.SentenceExemplar{
				Text:       v.Sentence,
				Confidence: v.Confidence,
			})
		}
	}

	summaries := make([]domain.CategorySummary, 0, a.categories.Len())
	for _, c := range a.categories.Ordered() {
		summary := domain.CategorySummary{
			Category:  c,
			Sentences: []domain.SentenceExemplar{},
		}
		if b, ok := buckets[c]; ok {
			summary.Count = b.count
			summary.AvgConfidence = round4(b.total / float64(b.count))
			summary.Sentences = b.sentences
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// AggregateSamples summarizes finalized samples, preferring human labels and
// falling back to the ensemble labels for unreviewed rows.
func (a *Aggregator) AggregateSamples(samples []*domain.Sample) []domain.CategorySummary {
	verdicts := make([]*domain.Verdict, len(samples))
	for i, s := range samples {
		labels := s.HumanLabels
		if len(labels) == 0 {
			labels = s.EnsembleLabels
		}
		verdicts[i] = &domain.Verdict{
			Sentence:        s.Sentence,
			ConsensusLabels: labels,
			Confidence:      s.Confidence,
		}
	}
	return a.Aggregate(verdicts)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
