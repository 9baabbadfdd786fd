package domain

// Category identifies one topical label from the fixed set. The set is
// established at startup and never changes while the process runs.
type Category string

// DefaultCategories is the therapy-research label set used when no override
// is configured. Order matters for display and for deterministic tie-breaks.
var DefaultCategories = []Category{
	"efficacy_extent",
	"efficacy_rate",
	"side_effect_severity",
	"side_effect_risk",
	"cost",
	"effect_size_evidence",
	"trial_design",
	"trial_length",
	"num_participants",
	"sex_participants",
	"age_range_participants",
	"other_participant_info",
	"other_study_info",
}

// CategorySet holds the fixed ordered category list plus a membership index.
type CategorySet struct {
	ordered []Category
	index   map[Category]int
}

func NewCategorySet(categories []Category) *CategorySet {
	s := &CategorySet{
		ordered: make([]Category, 0, len(categories)),
		index:   make(map[Category]int, len(categories)),
	}
	for _, c := range categories {
		if _, ok := s.index[c]; ok {
			continue
		}
		s.index[c] = len(s.ordered)
		s.ordered = append(s.ordered, c)
	}
	return s
}

// Ordered returns the categories in their fixed display order.
func (s *CategorySet) Ordered() []Category {
	out := make([]Category, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s *CategorySet) Contains(c Category) bool {
	_, ok := s.index[c]
	return ok
}

// Rank returns the position of c in the fixed order, or the set size when c
// is unknown so unknown categories always lose tie-breaks.
func (s *CategorySet) Rank(c Category) int {
	if i, ok := s.index[c]; ok {
		return i
	}
	return len(s.ordered)
}

func (s *CategorySet) Len() int {
	return len(s.ordered)
}

// Validate filters labels down to known categories, dropping duplicates.
// Returns the unknown labels so callers can reject them at the boundary.
func (s *CategorySet) Validate(labels []Category) (valid []Category, unknown []Category) {
	seen := make(map[Category]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			continue
		}
		seen[l] = true
		if s.Contains(l) {
			valid = append(valid, l)
		} else {
			unknown = append(unknown, l)
		}
	}
	return valid, unknown
}
