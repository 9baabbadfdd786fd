package ensemble

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/domain"
	"github.com/meditext/labelengine/internal/predictor"
)

type fakePredictor struct {
	id     string
	scores map[domain.Category]float64
	err    error
	delay  time.Duration
}

func (f *fakePredictor) ID() string { return f.id }

func (f *fakePredictor) Score(ctx context.Context, sentence string, categories []domain.Category) (map[domain.Category]float64, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		Categories:             domain.DefaultCategories,
		LabelThreshold:         0.5,
		SupermajorityThreshold: 0.8,
		EntropyThreshold:       1.5,
	}
}

func newTestVoter(t *testing.T, predictors ...predictor.Predictor) *Voter {
	t.Helper()
	return NewVoter(predictors, testPolicy(), time.Second)
}

func singleVote(id string, c domain.Category, score float64) domain.PredictorVote {
	return domain.PredictorVote{
		PredictorID: id,
		Scores:      map[domain.Category]float64{c: score},
		Labels:      []domain.Category{c},
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTallySupermajorityScenario(t *testing.T) {
	v := newTestVoter(t)

	votes := []domain.PredictorVote{
		singleVote("m1", "cost", 0.9),
		singleVote("m2", "cost", 0.8),
		singleVote("m3", "cost", 0.85),
		singleVote("m4", "cost", 0.95),
		singleVote("m5", "efficacy_rate", 0.7),
	}

	verdict := v.Tally("Each session costs $3,000.", votes)

	if len(verdict.ConsensusLabels) != 1 || verdict.ConsensusLabels[0] != "cost" {
		t.Fatalf("expected consensus [cost], got %v", verdict.ConsensusLabels)
	}
	if !approxEqual(verdict.Agreement["cost"], 0.8) {
		t.Errorf("expected cost agreement 0.8, got %v", verdict.Agreement["cost"])
	}
	if !approxEqual(verdict.Agreement["efficacy_rate"], 0.2) {
		t.Errorf("expected efficacy_rate agreement 0.2, got %v", verdict.Agreement["efficacy_rate"])
	}
	wantEntropy := -(0.8*math.Log2(0.8) + 0.2*math.Log2(0.2))
	if math.Abs(verdict.Entropy-wantEntropy) > 1e-9 {
		t.Errorf("expected entropy %.4f, got %.4f", wantEntropy, verdict.Entropy)
	}
	if verdict.NeedsReview {
		t.Error("4/5 agreement below entropy threshold should not need review")
	}
	wantConfidence := (0.9 + 0.8 + 0.85 + 0.95) / 4
	if !approxEqual(verdict.Confidence, wantConfidence) {
		t.Errorf("expected confidence %.4f, got %.4f", wantConfidence, verdict.Confidence)
	}
}

func TestTallyThreeOfFiveDoesNotQualify(t *testing.T) {
	v := newTestVoter(t)

	votes := []domain.PredictorVote{
		singleVote("m1", "cost", 0.9),
		singleVote("m2", "cost", 0.8),
		singleVote("m3", "cost", 0.85),
		singleVote("m4", "trial_design", 0.7),
		singleVote("m5", "efficacy_rate", 0.7),
	}

	verdict := v.Tally("s", votes)

	// 3/5 = 0.6 misses the 0.8 supermajority; fallback picks the most-voted
	// category and flags it for review.
	if len(verdict.ConsensusLabels) != 1 || verdict.ConsensusLabels[0] != "cost" {
		t.Fatalf("expected fallback [cost], got %v", verdict.ConsensusLabels)
	}
	if !verdict.NeedsReview {
		t.Error("fallback-selected consensus must need review")
	}
}

func TestTallyDeterministicAcrossArrivalOrder(t *testing.T) {
	v := newTestVoter(t)

	votes := []domain.PredictorVote{
		singleVote("m1", "cost", 0.9),
		singleVote("m2", "efficacy_rate", 0.6),
		singleVote("m3", "cost", 0.8),
		singleVote("m4", "cost", 0.7),
		singleVote("m5", "cost", 0.95),
	}

	base := v.Tally("s", votes)

	orderings := [][]int{
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 4, 0, 3, 2},
	}
	for _, order := range orderings {
		shuffled := make([]domain.PredictorVote, len(votes))
		for i, j := range order {
			shuffled[i] = votes[j]
		}
		got := v.Tally("s", shuffled)

		if fmt.Sprint(got.ConsensusLabels) != fmt.Sprint(base.ConsensusLabels) {
			t.Errorf("consensus changed with arrival order: %v vs %v", got.ConsensusLabels, base.ConsensusLabels)
		}
		if !approxEqual(got.Confidence, base.Confidence) {
			t.Errorf("confidence changed with arrival order: %v vs %v", got.Confidence, base.Confidence)
		}
		if !approxEqual(got.Entropy, base.Entropy) {
			t.Errorf("entropy changed with arrival order: %v vs %v", got.Entropy, base.Entropy)
		}
	}
}

func TestTallyUnanimousEntropyZero(t *testing.T) {
	v := newTestVoter(t)

	votes := []domain.PredictorVote{
		singleVote("m1", "trial_design", 0.9),
		singleVote("m2", "trial_design", 0.8),
		singleVote("m3", "trial_design", 0.85),
	}

	verdict := v.Tally("s", votes)
	if verdict.Entropy != 0 {
		t.Errorf("unanimous single-category vote should have entropy 0, got %v", verdict.Entropy)
	}
	if verdict.NeedsReview {
		t.Error("unanimous vote should not need review")
	}
}

func TestTallyUniformSpreadEntropyMaximal(t *testing.T) {
	v := newTestVoter(t)

	categories := []domain.Category{"cost", "trial_design", "efficacy_rate", "trial_length"}
	votes := make([]domain.PredictorVote, len(categories))
	for i, c := range categories {
		votes[i] = singleVote(fmt.Sprintf("m%d", i), c, 0.6)
	}

	verdict := v.Tally("s", votes)
	want := math.Log2(float64(len(categories)))
	if math.Abs(verdict.Entropy-want) > 1e-9 {
		t.Errorf("uniform spread over %d categories should have entropy %v, got %v", len(categories), want, verdict.Entropy)
	}
}

func TestTallyAllDistinctFallsBackToFixedOrder(t *testing.T) {
	v := newTestVoter(t)

	// Five predictors, five distinct categories. None reaches supermajority;
	// the tie-break must follow the fixed category order, not vote order.
	votes := []domain.PredictorVote{
		singleVote("m1", "trial_length", 0.7),
		singleVote("m2", "cost", 0.7),
		singleVote("m3", "num_participants", 0.7),
		singleVote("m4", "efficacy_rate", 0.7),
		singleVote("m5", "trial_design", 0.7),
	}

	verdict := v.Tally("s", votes)

	if len(verdict.ConsensusLabels) != 1 || verdict.ConsensusLabels[0] != "efficacy_rate" {
		t.Fatalf("expected tie-break to efficacy_rate (first in fixed order), got %v", verdict.ConsensusLabels)
	}
	for c, a := range verdict.Agreement {
		if !approxEqual(a, 0.2) {
			t.Errorf("expected agreement 0.2 for %s, got %v", c, a)
		}
	}
	if !verdict.NeedsReview {
		t.Error("no-consensus fallback must need review")
	}
}

func TestTallyMultiLabelConsensus(t *testing.T) {
	v := newTestVoter(t)

	multiVote := func(id string) domain.PredictorVote {
		return domain.PredictorVote{
			PredictorID: id,
			Scores:      map[domain.Category]float64{"cost": 0.9, "trial_length": 0.6},
			Labels:      []domain.Category{"cost", "trial_length"},
		}
	}

	votes := []domain.PredictorVote{
		multiVote("m1"), multiVote("m2"), multiVote("m3"), multiVote("m4"),
		singleVote("m5", "cost", 0.8),
	}

	verdict := v.Tally("s", votes)

	if len(verdict.ConsensusLabels) != 2 {
		t.Fatalf("expected two consensus labels, got %v", verdict.ConsensusLabels)
	}
	// Fixed category order puts cost before trial_length.
	if verdict.ConsensusLabels[0] != "cost" || verdict.ConsensusLabels[1] != "trial_length" {
		t.Errorf("consensus labels out of fixed order: %v", verdict.ConsensusLabels)
	}
}

func TestClassifyToleratesPredictorFailures(t *testing.T) {
	v := newTestVoter(t,
		&fakePredictor{id: "ok1", scores: map[domain.Category]float64{"cost": 0.9}},
		&fakePredictor{id: "ok2", scores: map[domain.Category]float64{"cost": 0.85}},
		&fakePredictor{id: "bad", err: fmt.Errorf("model unavailable")},
	)

	verdict := v.Classify(context.Background(), "Each session costs $3,000.")

	if verdict.RespondingCount != 2 {
		t.Fatalf("expected 2 responding predictors, got %d", verdict.RespondingCount)
	}
	if len(verdict.ConsensusLabels) != 1 || verdict.ConsensusLabels[0] != "cost" {
		t.Fatalf("expected consensus [cost], got %v", verdict.ConsensusLabels)
	}
	if _, ok := verdict.PerPredictorLabels["bad"]; ok {
		t.Error("failed predictor must not appear in per-predictor labels")
	}
	if !approxEqual(verdict.Agreement["cost"], 1.0) {
		t.Errorf("failed predictor must be excluded from the denominator, agreement=%v", verdict.Agreement["cost"])
	}
}

func TestClassifyAllPredictorsFailedReturnsDegradedVerdict(t *testing.T) {
	v := newTestVoter(t,
		&fakePredictor{id: "bad1", err: fmt.Errorf("boom")},
		&fakePredictor{id: "bad2", err: fmt.Errorf("boom")},
	)

	verdict := v.Classify(context.Background(), "s")

	if !verdict.Degraded() {
		t.Fatal("expected degraded verdict")
	}
	if len(verdict.ConsensusLabels) != 0 {
		t.Errorf("degraded verdict must have empty consensus, got %v", verdict.ConsensusLabels)
	}
	if verdict.Confidence != 0 || verdict.Entropy != 0 {
		t.Errorf("degraded verdict must have zero confidence and entropy, got %v/%v", verdict.Confidence, verdict.Entropy)
	}
	if !verdict.NeedsReview {
		t.Error("degraded verdict must need review")
	}
}

func TestClassifyTimesOutSlowPredictor(t *testing.T) {
	v := NewVoter([]predictor.Predictor{
		&fakePredictor{id: "fast", scores: map[domain.Category]float64{"cost": 0.9}},
		&fakePredictor{id: "slow", scores: map[domain.Category]float64{"trial_design": 0.9}, delay: 500 * time.Millisecond},
	}, testPolicy(), 50*time.Millisecond)

	verdict := v.Classify(context.Background(), "s")

	if verdict.RespondingCount != 1 {
		t.Fatalf("expected only the fast predictor to respond, got %d", verdict.RespondingCount)
	}
	if len(verdict.ConsensusLabels) != 1 || verdict.ConsensusLabels[0] != "cost" {
		t.Errorf("expected consensus [cost], got %v", verdict.ConsensusLabels)
	}
}

func TestVoteSetFallsBackToBestCategory(t *testing.T) {
	v := newTestVoter(t)

	// All scores below the label threshold: the predictor still votes its
	// single highest category.
	labels := v.voteSet(map[domain.Category]float64{
		"cost":         0.4,
		"trial_design": 0.3,
	})

	if len(labels) != 1 || labels[0] != "cost" {
		t.Fatalf("expected fallback vote [cost], got %v", labels)
	}
}

func TestNonEmptyConsensusWheneverAnyPredictorResponds(t *testing.T) {
	v := newTestVoter(t)

	votes := []domain.PredictorVote{singleVote("m1", "other_study_info", 0.51)}
	verdict := v.Tally("s", votes)

	if len(verdict.ConsensusLabels) == 0 {
		t.Fatal("consensus must be non-empty when at least one predictor responded")
	}
}
