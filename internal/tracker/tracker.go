package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/meditext/labelengine/internal/config"
	"github.com/meditext/labelengine/internal/domain"
)

// SampleSource is the read-only slice of the sample store the tracker needs.
type SampleSource interface {
	HumanConfirmedMentioning(ctx context.Context, category domain.Category) ([]*domain.Sample, error)
}

// MetricsStore is the tracker's view of the category metrics store. The
// tracker is its only writer.
type MetricsStore interface {
	Upsert(ctx context.Context, m *domain.CategoryMetrics) error
	Get(ctx context.Context, category domain.Category) (*domain.CategoryMetrics, error)
	GetPolicy(ctx context.Context, category domain.Category) (domain.ReviewPolicy, error)
	SetPolicy(ctx context.Context, category domain.Category, policy domain.ReviewPolicy) error
}

// minConfirmedForRecompute guards recomputation: with fewer than two
// confirmed samples for a category there is no signal worth storing.
const minConfirmedForRecompute = 2

// Tracker maintains per-category agreement between consensus verdicts and
// human-confirmed labels, and gates which categories may skip human review.
type Tracker struct {
	samples    SampleSource
	metrics    MetricsStore
	categories *domain.CategorySet

	minSamples        int
	accuracyThreshold float64
}

func New(samples SampleSource, metrics MetricsStore, policy config.PolicyConfig) *Tracker {
	return &Tracker{
		samples:           samples,
		metrics:           metrics,
		categories:        domain.NewCategorySet(policy.Categories),
		minSamples:        policy.MinSamplesForHandoff,
		accuracyThreshold: policy.CategoryAccuracyThreshold,
	}
}

// RecordConfirmation recomputes metrics for every category the confirmed
// sample touches, in either the human or the ensemble label set.
func (t *Tracker) RecordConfirmation(ctx context.Context, sample *domain.Sample) error {
	if sample == nil || !sample.Confirmed() {
		return nil
	}

	touched := unionCategories(sample.HumanLabels, sample.EnsembleLabels)
	for _, c := range touched {
		if !t.categories.Contains(c) {
			continue
		}
		if err := t.Recompute(ctx, c); err != nil {
			return fmt.Errorf("recompute %s: %w", c, err)
		}
	}
	return nil
}

// RecomputeAll refreshes metrics for every category in the fixed set.
func (t *Tracker) RecomputeAll(ctx context.Context) error {
	for _, c := range t.categories.Ordered() {
		if err := t.Recompute(ctx, c); err != nil {
			return fmt.Errorf("recompute %s: %w", c, err)
		}
	}
	return nil
}

// Recompute rebuilds one category's metrics from scratch over the
// human-confirmed corpus. Deterministic and idempotent: the same sample set
// always yields the same row.
func (t *Tracker) Recompute(ctx context.Context, category domain.Category) error {
	samples, err := t.samples.HumanConfirmedMentioning(ctx, category)
	if err != nil {
		return fmt.Errorf("load confirmed samples: %w", err)
	}

	if len(samples) < minConfirmedForRecompute {
		return nil
	}

	var tp, fp, fn int
	for _, s := range samples {
		predicted := s.HasEnsembleLabel(category)
		actual := s.HasHumanLabel(category)
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		}
	}

	total := len(samples)
	precision := domain.CalculatePrecision(tp, fp)
	recall := domain.CalculateRecall(tp, fn)
	accuracy := float64(tp) / float64(total)

	policy, err := t.metrics.GetPolicy(ctx, category)
	if err != nil {
		return err
	}
	gatesPass := total >= t.minSamples && accuracy >= t.accuracyThreshold
	policy, err = t.applyTransition(ctx, category, policy, gatesPass)
	if err != nil {
		return err
	}

	return t.metrics.Upsert(ctx, &domain.CategoryMetrics{
		Category:           category,
		TotalSamples:       total,
		CorrectPredictions: tp,
		Precision:          precision,
		Recall:             recall,
		F1Score:            domain.CalculateF1(precision, recall),
		Accuracy:           accuracy,
		CanAutoAccept:      gatesPass && policy == domain.PolicyAutoAcceptEnabled,
		LastUpdated:        time.Now(),
	})
}

// applyTransition moves the category along the policy state machine.
// Promotion to eligible is automatic once the gates pass; enabling
// auto-accept never is. A category whose gates fail is demoted all the way
// back to mandatory review, whatever state it was in.
func (t *Tracker) applyTransition(ctx context.Context, category domain.Category, policy domain.ReviewPolicy, gatesPass bool) (domain.ReviewPolicy, error) {
	var next domain.ReviewPolicy
	switch {
	case gatesPass && policy == domain.PolicyMandatoryReview:
		next = domain.PolicyEligible
	case !gatesPass && policy != domain.PolicyMandatoryReview:
		next = domain.PolicyMandatoryReview
	default:
		return policy, nil
	}

	if err := t.metrics.SetPolicy(ctx, category, next); err != nil {
		return policy, err
	}
	return next, nil
}

// CanAutoAccept reports whether verdicts for the category may be accepted
// without a human. Pure read of stored state, never triggers recomputation.
func (t *Tracker) CanAutoAccept(ctx context.Context, category domain.Category) (bool, error) {
	m, err := t.metrics.Get(ctx, category)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}

	policy, err := t.metrics.GetPolicy(ctx, category)
	if err != nil {
		return false, err
	}

	return m.TotalSamples >= t.minSamples &&
		m.Accuracy >= t.accuracyThreshold &&
		policy == domain.PolicyAutoAcceptEnabled, nil
}

// ShouldReview is the single choke point deciding whether a verdict goes to
// a human. A verdict skips review only when the per-sample agreement and
// entropy checks passed AND every consensus category has cleared the
// historical accuracy gate.
func (t *Tracker) ShouldReview(ctx context.Context, verdict *domain.Verdict) (bool, error) {
	if verdict.NeedsReview {
		return true, nil
	}
	if len(verdict.ConsensusLabels) == 0 {
		return true, nil
	}

	for _, c := range verdict.ConsensusLabels {
		ok, err := t.CanAutoAccept(ctx, c)
		if err != nil {
			return true, err
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

// EnableAutoAccept is the explicit operator action that lets an eligible
// category skip review. Enabling a category that has not earned eligibility
// is rejected.
func (t *Tracker) EnableAutoAccept(ctx context.Context, category domain.Category) error {
	if !t.categories.Contains(category) {
		return fmt.Errorf("unknown category: %s", category)
	}

	policy, err := t.metrics.GetPolicy(ctx, category)
	if err != nil {
		return err
	}
	if policy == domain.PolicyAutoAcceptEnabled {
		return nil
	}
	if policy != domain.PolicyEligible {
		return fmt.Errorf("category %s is not eligible for auto-accept", category)
	}

	if err := t.metrics.SetPolicy(ctx, category, domain.PolicyAutoAcceptEnabled); err != nil {
		return err
	}
	return t.Recompute(ctx, category)
}

// DisableAutoAccept pins a category back to mandatory review.
func (t *Tracker) DisableAutoAccept(ctx context.Context, category domain.Category) error {
	if !t.categories.Contains(category) {
		return fmt.Errorf("unknown category: %s", category)
	}

	if err := t.metrics.SetPolicy(ctx, category, domain.PolicyMandatoryReview); err != nil {
		return err
	}
	return t.Recompute(ctx, category)
}

// Report explains a category's automation readiness to operators.
func (t *Tracker) Report(ctx context.Context, category domain.Category) (*domain.CategoryReport, error) {
	if !t.categories.Contains(category) {
		return nil, fmt.Errorf("unknown category: %s", category)
	}

	policy, err := t.metrics.GetPolicy(ctx, category)
	if err != nil {
		return nil, err
	}

	m, err := t.metrics.Get(ctx, category)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &domain.CategoryReport{
			Category:       category,
			Status:         domain.ReportStatusNoData,
			Policy:         policy,
			SamplesNeeded:  t.minSamples,
			AccuracyGap:    t.accuracyThreshold,
			Recommendation: "No confirmed samples for this category yet",
		}, nil
	}

	samplesNeeded := t.minSamples - m.TotalSamples
	if samplesNeeded < 0 {
		samplesNeeded = 0
	}
	accuracyGap := t.accuracyThreshold - m.Accuracy
	if accuracyGap < 0 {
		accuracyGap = 0
	}

	status := domain.ReportStatusNeedsMoreData
	if m.CanAutoAccept {
		status = domain.ReportStatusReady
	}

	return &domain.CategoryReport{
		Category:       category,
		Status:         status,
		Policy:         policy,
		Metrics:        m,
		SamplesNeeded:  samplesNeeded,
		AccuracyGap:    accuracyGap,
		Recommendation: t.recommendation(m, policy, samplesNeeded, accuracyGap),
	}, nil
}

func (t *Tracker) recommendation(m *domain.CategoryMetrics, policy domain.ReviewPolicy, samplesNeeded int, accuracyGap float64) string {
	if m.CanAutoAccept {
		return "Category is ready for auto-accept"
	}
	if samplesNeeded > 0 {
		return fmt.Sprintf("Need %d more confirmed samples", samplesNeeded)
	}
	if accuracyGap > 0 {
		return fmt.Sprintf("Need %.1f%% accuracy improvement", accuracyGap*100)
	}
	if policy == domain.PolicyEligible {
		return "Eligible: enable auto-accept to activate"
	}
	return "Enable auto-accept to activate"
}

func unionCategories(a, b []domain.Category) []domain.Category {
	seen := make(map[domain.Category]bool, len(a)+len(b))
	var out []domain.Category
	for _, list := range [][]domain.Category{a, b} {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
