package review

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/meditext/labelengine/internal/domain"
)

type memStore struct {
	samples map[string]*domain.Sample
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{samples: make(map[string]*domain.Sample)}
}

func (m *memStore) Insert(_ context.Context, sample *domain.Sample) (string, error) {
	m.nextID++
	sample.ID = fmt.Sprintf("sample-%d", m.nextID)
	m.samples[sample.ID] = sample
	return sample.ID, nil
}

func (m *memStore) UpdateLabels(_ context.Context, id string, labels []domain.Category, needsReview bool, labeledBy domain.LabelSource) error {
	s, ok := m.samples[id]
	if !ok {
		return fmt.Errorf("sample not found: %s", id)
	}
	s.HumanLabels = labels
	s.NeedsReview = needsReview
	s.LabeledBy = labeledBy
	return nil
}

func (m *memStore) Undo(_ context.Context, id string) error {
	s, ok := m.samples[id]
	if !ok {
		return fmt.Errorf("sample not found: %s", id)
	}
	s.HumanLabels = nil
	s.NeedsReview = true
	s.LabeledBy = ""
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Sample, error) {
	s, ok := m.samples[id]
	if !ok {
		return nil, fmt.Errorf("sample not found: %s", id)
	}
	return s, nil
}

func (m *memStore) NeedingReview(_ context.Context, limit int) ([]*domain.Sample, error) {
	var out []*domain.Sample
	for _, s := range m.samples {
		if s.NeedsReview {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memTracker struct {
	shouldReview bool
	confirmed    []*domain.Sample
	recomputed   []domain.Category
}

func (m *memTracker) RecordConfirmation(_ context.Context, sample *domain.Sample) error {
	m.confirmed = append(m.confirmed, sample)
	return nil
}

func (m *memTracker) ShouldReview(_ context.Context, _ *domain.Verdict) (bool, error) {
	return m.shouldReview, nil
}

func (m *memTracker) Recompute(_ context.Context, category domain.Category) error {
	m.recomputed = append(m.recomputed, category)
	return nil
}

func newTestService(shouldReview bool) (*Service, *memStore, *memTracker) {
	store := newMemStore()
	tracker := &memTracker{shouldReview: shouldReview}
	return NewService(store, tracker, domain.NewCategorySet(domain.DefaultCategories)), store, tracker
}

func costVerdict() *domain.Verdict {
	return &domain.Verdict{
		Sentence:        "The treatment cost $5,000 per cycle.",
		ConsensusLabels: []domain.Category{"cost"},
		Confidence:      0.9,
		Agreement:       map[domain.Category]float64{"cost": 1.0},
		RespondingCount: 5,
	}
}

func TestAdmitQueuesUncertainVerdict(t *testing.T) {
	svc, store, _ := newTestService(true)

	sample, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if !sample.NeedsReview {
		t.Error("expected sample queued for review")
	}
	if len(sample.HumanLabels) != 0 {
		t.Errorf("expected no human labels, got %v", sample.HumanLabels)
	}
	if sample.LabeledBy != "" {
		t.Errorf("expected unlabeled sample, got %q", sample.LabeledBy)
	}
	if _, err := store.GetByID(context.Background(), sample.ID); err != nil {
		t.Errorf("sample not persisted: %v", err)
	}
}

func TestAdmitAutoAcceptsTrustedVerdict(t *testing.T) {
	svc, _, _ := newTestService(false)

	sample, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if sample.NeedsReview {
		t.Error("expected auto-accepted sample to skip review")
	}
	if sample.LabeledBy != domain.LabeledByAuto {
		t.Errorf("expected labeled_by %q, got %q", domain.LabeledByAuto, sample.LabeledBy)
	}
	if len(sample.HumanLabels) != 1 || sample.HumanLabels[0] != "cost" {
		t.Errorf("expected ensemble labels promoted, got %v", sample.HumanLabels)
	}
}

func TestAdmitCancelledContextPersistsNothing(t *testing.T) {
	svc, store, _ := newTestService(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Admit(ctx, costVerdict(), domain.SourceReal); err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if len(store.samples) != 0 {
		t.Errorf("expected no samples persisted, got %d", len(store.samples))
	}
}

func TestConfirmAcceptsEnsembleLabels(t *testing.T) {
	svc, store, tracker := newTestService(true)

	admitted, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	confirmed, err := svc.Confirm(context.Background(), admitted.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if confirmed.NeedsReview {
		t.Error("expected confirmed sample out of the review queue")
	}
	if confirmed.LabeledBy != domain.LabeledByHuman {
		t.Errorf("expected labeled_by %q, got %q", domain.LabeledByHuman, confirmed.LabeledBy)
	}
	if len(confirmed.HumanLabels) != 1 || confirmed.HumanLabels[0] != "cost" {
		t.Errorf("expected ensemble labels copied, got %v", confirmed.HumanLabels)
	}

	stored := store.samples[admitted.ID]
	if stored.NeedsReview || stored.LabeledBy != domain.LabeledByHuman {
		t.Errorf("store not updated: %+v", stored)
	}
	if len(tracker.confirmed) != 1 {
		t.Fatalf("expected one confirmation recorded, got %d", len(tracker.confirmed))
	}
}

func TestConfirmRejectsEmptyEnsembleLabels(t *testing.T) {
	svc, _, _ := newTestService(true)

	degraded := &domain.Verdict{Sentence: "unreadable", NeedsReview: true}
	admitted, err := svc.Admit(context.Background(), degraded, domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), admitted.ID); err == nil {
		t.Fatal("expected error confirming sample without ensemble labels")
	}
}

func TestOverrideReplacesLabels(t *testing.T) {
	svc, _, tracker := newTestService(true)

	admitted, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	overridden, err := svc.Override(context.Background(), admitted.ID, []domain.Category{"trial_design", "trial_length"})
	if err != nil {
		t.Fatalf("Override: %v", err)
	}

	if len(overridden.HumanLabels) != 2 {
		t.Fatalf("expected 2 human labels, got %v", overridden.HumanLabels)
	}
	// The ensemble verdict is kept intact so the disagreement still counts
	// against the category's accuracy.
	if len(overridden.EnsembleLabels) != 1 || overridden.EnsembleLabels[0] != "cost" {
		t.Errorf("ensemble labels must survive an override, got %v", overridden.EnsembleLabels)
	}
	if len(tracker.confirmed) != 1 {
		t.Fatalf("expected one confirmation recorded, got %d", len(tracker.confirmed))
	}
}

func TestOverrideRejectsUnknownCategory(t *testing.T) {
	svc, store, tracker := newTestService(true)

	admitted, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	_, err = svc.Override(context.Background(), admitted.ID, []domain.Category{"cost", "made_up_category"})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
	if !strings.Contains(err.Error(), "made_up_category") {
		t.Errorf("error should name the offending category, got %q", err)
	}

	stored := store.samples[admitted.ID]
	if !stored.NeedsReview || len(stored.HumanLabels) != 0 {
		t.Errorf("rejected override must not touch the sample: %+v", stored)
	}
	if len(tracker.confirmed) != 0 {
		t.Error("rejected override must not record a confirmation")
	}
}

func TestOverrideRejectsEmptyLabelSet(t *testing.T) {
	svc, _, _ := newTestService(true)

	admitted, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}

	if _, err := svc.Override(context.Background(), admitted.ID, nil); err == nil {
		t.Fatal("expected error for empty label set")
	}
}

func TestUndoRevertsAndRecomputesTouchedCategories(t *testing.T) {
	svc, store, tracker := newTestService(true)

	admitted, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := svc.Override(context.Background(), admitted.ID, []domain.Category{"trial_design"}); err != nil {
		t.Fatalf("Override: %v", err)
	}

	if err := svc.Undo(context.Background(), admitted.ID); err != nil {
		t.Fatalf("Undo: %v", err)
	}

	stored := store.samples[admitted.ID]
	if !stored.NeedsReview {
		t.Error("expected undone sample back in the review queue")
	}
	if len(stored.HumanLabels) != 0 || stored.LabeledBy != "" {
		t.Errorf("expected human labels cleared, got %+v", stored)
	}

	touched := make(map[domain.Category]bool)
	for _, c := range tracker.recomputed {
		touched[c] = true
	}
	if !touched["trial_design"] || !touched["cost"] {
		t.Errorf("expected both human and ensemble categories recomputed, got %v", tracker.recomputed)
	}
}

func TestNextBatchReturnsOnlyPendingSamples(t *testing.T) {
	svc, _, _ := newTestService(true)

	first, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	second, err := svc.Admit(context.Background(), costVerdict(), domain.SourceReal)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), first.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	batch, err := svc.NextBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("NextBatch: %v", err)
	}
	if len(batch) != 1 || batch[0].ID != second.ID {
		t.Errorf("expected only the unconfirmed sample, got %d samples", len(batch))
	}
}
