package domain

import "testing"

func TestCategorySetPreservesOrderAndDropsDuplicates(t *testing.T) {
	s := NewCategorySet([]Category{"cost", "trial_design", "cost", "efficacy_rate"})

	ordered := s.Ordered()
	want := []Category{"cost", "trial_design", "efficacy_rate"}
	if len(ordered) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(ordered))
	}
	for i := range want {
		if ordered[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], ordered[i])
		}
	}
	if s.Len() != 3 {
		t.Errorf("expected Len 3, got %d", s.Len())
	}
}

func TestCategorySetRank(t *testing.T) {
	s := NewCategorySet(DefaultCategories)

	if got := s.Rank("efficacy_extent"); got != 0 {
		t.Errorf("expected first category at rank 0, got %d", got)
	}
	if got := s.Rank("other_study_info"); got != len(DefaultCategories)-1 {
		t.Errorf("expected last category at rank %d, got %d", len(DefaultCategories)-1, got)
	}
	// Unknown categories rank past the end so they lose every tie-break.
	if got := s.Rank("unknown"); got != len(DefaultCategories) {
		t.Errorf("expected unknown rank %d, got %d", len(DefaultCategories), got)
	}
}

func TestCategorySetValidate(t *testing.T) {
	s := NewCategorySet(DefaultCategories)

	valid, unknown := s.Validate([]Category{"cost", "bogus", "cost", "trial_length"})
	if len(valid) != 2 || valid[0] != "cost" || valid[1] != "trial_length" {
		t.Errorf("unexpected valid set: %v", valid)
	}
	if len(unknown) != 1 || unknown[0] != "bogus" {
		t.Errorf("unexpected unknown set: %v", unknown)
	}
}

func TestSampleConfirmed(t *testing.T) {
	cases := []struct {
		name   string
		sample Sample
		want   bool
	}{
		{"pending", Sample{NeedsReview: true}, false},
		{"reviewed without labels", Sample{NeedsReview: false}, false},
		{"confirmed", Sample{NeedsReview: false, HumanLabels: []Category{"cost"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sample.Confirmed(); got != tc.want {
				t.Errorf("Confirmed() = %v, want %v", got, tc.want)
			}
		})
	}
}
