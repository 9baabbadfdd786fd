package ensemble

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/predictor"
)

// Voter combines independent per-category predictor scores into one consensus
// verdict per sentence. Predictors run concurrently and fail independently; a
// non-responding predictor is dropped from the denominator, never surfaced as
// an error. The aggregation is order-independent over the set of responses.
type Voter struct {
	predictors       []predictor.Predictor
	categories       *domain.CategorySet
	labelThreshold   float64
	supermajority    float64
	entropyThreshold float64
	timeout          time.Duration
}

func NewVoter(predictors []predictor.Predictor, policy config.PolicyConfig, timeout time.Duration) *Voter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Voter{
		predictors:       predictors,
		categories:       domain.NewCategorySet(policy.Categories),
		labelThreshold:   policy.LabelThreshold,
		supermajority:    policy.SupermajorityThreshold,
		entropyThreshold: policy.EntropyThreshold,
		timeout:          timeout,
	}
}

func (v *Voter) Categories() *domain.CategorySet {
	return v.categories
}

// Classify queries every predictor for one sentence and folds the responses
// into a Verdict. With zero successful responses it returns a degraded
// verdict flagged for review.
func (v *Voter) Classify(ctx context.Context, sentence string) *domain.Verdict {
	votes := v.collectVotes(ctx, sentence)
	return v.Tally(sentence, votes)
}

// ClassifyBatch classifies sentences one at a time, fanning out across
// predictors within each sentence.
func (v *Voter) ClassifyBatch(ctx context.Context, sentences []string) []*domain.Verdict {
	verdicts := make([]*domain.Verdict, len(sentences))
	for i, s := range sentences {
		verdicts[i] = v.Classify(ctx, s)
	}
	return verdicts
}

func (v *Voter) collectVotes(ctx context.Context, sentence string) []domain.PredictorVote {
	results := make(chan domain.PredictorVote, len(v.predictors))
	var wg sync.WaitGroup

	for _, p := range v.predictors {
		wg.Add(1)
		go func(p predictor.Predictor) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, v.timeout)
			defer cancel()

			scores, err := p.Score(callCtx, sentence, v.categories.Ordered())
			if err != nil {
				return
			}

			results <- domain.PredictorVote{
				PredictorID: p.ID(),
				Scores:      scores,
				Labels:      v.voteSet(scores),
			}
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var votes []domain.PredictorVote
	for r := range results {
		votes = append(votes, r)
	}
	return votes
}

// voteSet accepts every category scoring at or above the label threshold.
// A predictor whose set would be empty falls back to its single best
// category, so every responding predictor casts at least one vote.
func (v *Voter) voteSet(scores map[domain.Category]float64) []domain.Category {
	var labels []domain.Category
	for _, c := range v.categories.Ordered() {
		if s, ok := scores[c]; ok && s >= v.labelThreshold {
			labels = append(labels, c)
		}
	}
	if len(labels) > 0 {
		return labels
	}

	best := domain.Category("")
	bestScore := math.Inf(-1)
	for _, c := range v.categories.Ordered() {
		if s, ok := scores[c]; ok && s > bestScore {
			best = c
			bestScore = s
		}
	}
	if best == "" {
		return nil
	}
	return []domain.Category{best}
}

// Tally folds a set of predictor votes into a Verdict. It is deterministic
// for a fixed vote set regardless of slice order.
func (v *Voter) Tally(sentence string, votes []domain.PredictorVote) *domain.Verdict {
	responding := 0
	voteCounts := make(map[domain.Category]int)
	perPredictor := make(map[string][]domain.Category, len(votes))

	for _, vote := range votes {
		if len(vote.Labels) == 0 {
			continue
		}
		responding++
		perPredictor[vote.PredictorID] = vote.Labels
		for _, c := range vote.Labels {
			voteCounts[c]++
		}
	}

	if responding == 0 {
		return &domain.Verdict{
			Sentence:           sentence,
			ConsensusLabels:    nil,
			Agreement:          map[domain.Category]float64{},
			PerPredictorLabels: map[string][]domain.Category{},
			NeedsReview:        true,
		}
	}

	agreement := make(map[domain.Category]float64, len(voteCounts))
	for c, n := range voteCounts {
		agreement[c] = float64(n) / float64(responding)
	}

	consensus := v.selectConsensus(voteCounts, agreement)

	return &domain.Verdict{
		Sentence:           sentence,
		ConsensusLabels:    consensus,
		Confidence:         meanConfidence(votes, consensus),
		Entropy:            voteEntropy(voteCounts),
		Agreement:          agreement,
		PerPredictorLabels: perPredictor,
		RespondingCount:    responding,
		NeedsReview:        v.needsReview(consensus, agreement, voteEntropy(voteCounts)),
	}
}

// selectConsensus applies the supermajority rule, iterating in fixed category
// order so the result never depends on map iteration. When nothing clears the
// threshold, the single most-voted category wins, ties broken by that same
// fixed order.
func (v *Voter) selectConsensus(voteCounts map[domain.Category]int, agreement map[domain.Category]float64) []domain.Category {
	var consensus []domain.Category
	for _, c := range v.categories.Ordered() {
		if a, ok := agreement[c]; ok && a >= v.supermajority {
			consensus = append(consensus, c)
		}
	}
	if len(consensus) > 0 {
		return consensus
	}

	voted := make([]domain.Category, 0, len(voteCounts))
	for c := range voteCounts {
		voted = append(voted, c)
	}
	sort.Slice(voted, func(i, j int) bool {
		if voteCounts[voted[i]] != voteCounts[voted[j]] {
			return voteCounts[voted[i]] > voteCounts[voted[j]]
		}
		return v.categories.Rank(voted[i]) < v.categories.Rank(voted[j])
	})

	return []domain.Category{voted[0]}
}

// meanConfidence averages the raw scores that responding predictors assigned
// to the selected labels. Predictors that never scored a label contribute
// nothing for it.
func meanConfidence(votes []domain.PredictorVote, consensus []domain.Category) float64 {
	var sum float64
	var n int
	for _, c := range consensus {
		for _, vote := range votes {
			if len(vote.Labels) == 0 {
				continue
			}
			if s, ok := vote.Scores[c]; ok {
				sum += s
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// voteEntropy is the Shannon entropy (base 2) of the normalized vote-count
// distribution across every voted category. Zero when all predictors agree on
// exactly one category, log2(k) when votes spread uniformly over k.
func voteEntropy(voteCounts map[domain.Category]int) float64 {
	total := 0
	for _, n := range voteCounts {
		total += n
	}
	if total == 0 {
		return 0
	}

	var h float64
	for _, n := range voteCounts {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

func (v *Voter) needsReview(consensus []domain.Category, agreement map[domain.Category]float64, entropy float64) bool {
	if len(consensus) == 0 {
		return true
	}
	for _, c := range consensus {
		if agreement[c] < v.supermajority {
			return true
		}
	}
	return entropy > v.entropyThreshold
}
