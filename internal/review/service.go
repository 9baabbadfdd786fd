package review

import (
	"context"
	"fmt"

	"github.com/meditext/labelengine/internal/domain"
)

// SampleStore is the slice of the sample store the review lifecycle drives.
type SampleStore interface {
	Insert(ctx context.Context, sample *domain.Sample) (string, error)
	UpdateLabels(ctx context.Context, id string, labels []domain.Category, needsReview bool, labeledBy domain.LabelSource) error
	Undo(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Sample, error)
	NeedingReview(ctx context.Context, limit int) ([]*domain.Sample, error)
}

// AccuracyTracker is the gating side of the engine as seen from the review
// lifecycle.
type AccuracyTracker interface {
	RecordConfirmation(ctx context.Context, sample *domain.Sample) error
	ShouldReview(ctx context.Context, verdict *domain.Verdict) (bool, error)
	Recompute(ctx context.Context, category domain.Category) error
}

// Service owns the sample lifecycle: admitting classified sentences, feeding
// reviewers the most uncertain samples first, and applying their decisions.
type Service struct {
	store      SampleStore
	tracker    AccuracyTracker
	categories *domain.CategorySet
}

func NewService(store SampleStore, tracker AccuracyTracker, categories *domain.CategorySet) *Service {
	return &Service{
		store:      store,
		tracker:    tracker,
		categories: categories,
	}
}

// Admit persists a verdict as a sample. Verdicts that clear both the
// per-sample uncertainty check and the historical accuracy gate are
// auto-accepted; everything else enters the review queue. Nothing is
// persisted if the caller's context is already cancelled.
func (s *Service) Admit(ctx context.Context, verdict *domain.Verdict, source string) (*domain.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	needsReview, err := s.tracker.ShouldReview(ctx, verdict)
	if err != nil {
		return nil, fmt.Errorf("review decision: %w", err)
	}

	sample := domain.NewSample(verdict, source)
	if !needsReview {
		sample.HumanLabels = verdict.ConsensusLabels
		sample.NeedsReview = false
		sample.LabeledBy = domain.LabeledByAuto
	}

	if _, err := s.store.Insert(ctx, sample); err != nil {
		return nil, fmt.Errorf("insert sample: %w", err)
	}
	return sample, nil
}

// NextBatch returns up to limit samples awaiting review, highest entropy
// first.
func (s *Service) NextBatch(ctx context.Context, limit int) ([]*domain.Sample, error) {
	return s.store.NeedingReview(ctx, limit)
}

// Confirm accepts the ensemble's labels as the human verdict.
func (s *Service) Confirm(ctx context.Context, id string) (*domain.Sample, error) {
	sample, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(sample.EnsembleLabels) == 0 {
		return nil, fmt.Errorf("sample %s has no ensemble labels to confirm", id)
	}

	return s.finalize(ctx, sample, sample.EnsembleLabels)
}

// Override replaces the labels with an explicit human-chosen set. Labels
// outside the fixed category set are rejected at the boundary and never
// persisted.
func (s *Service) Override(ctx context.Context, id string, labels []domain.Category) (*domain.Sample, error) {
	valid, unknown := s.categories.Validate(labels)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("invalid categories: %v", unknown)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("at least one label is required")
	}

	sample, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.finalize(ctx, sample, valid)
}

func (s *Service) finalize(ctx context.Context, sample *domain.Sample, labels []domain.Category) (*domain.Sample, error) {
	if err := s.store.UpdateLabels(ctx, sample.ID, labels, false, domain.LabeledByHuman); err != nil {
		return nil, err
	}

	sample.HumanLabels = labels
	sample.NeedsReview = false
	sample.LabeledBy = domain.LabeledByHuman

	if err := s.tracker.RecordConfirmation(ctx, sample); err != nil {
		return nil, fmt.Errorf("record confirmation: %w", err)
	}
	return sample, nil
}

// Undo reverts a sample to the created state and refreshes the metrics of
// every category its labels touched.
func (s *Service) Undo(ctx context.Context, id string) error {
	sample, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Undo(ctx, id); err != nil {
		return err
	}

	seen := make(map[domain.Category]bool)
	for _, list := range [][]domain.Category{sample.HumanLabels, sample.EnsembleLabels} {
		for _, c := range list {
			if seen[c] || !s.categories.Contains(c) {
				continue
			}
			seen[c] = true
			if err := s.tracker.Recompute(ctx, c); err != nil {
				return fmt.Errorf("recompute %s: %w", c, err)
			}
		}
	}
	return nil
}
