package domain

import "time"

// ReviewPolicy is the per-category automation state. The tracker promotes
// mandatory-review categories to eligible when their metrics clear the gates;
// only an explicit operator action enables auto-accept.
type ReviewPolicy string

const (
	PolicyMandatoryReview   ReviewPolicy = "mandatory_review"
	PolicyEligible          ReviewPolicy = "eligible"
	PolicyAutoAcceptEnabled ReviewPolicy = "auto_accept_enabled"
)

// CategoryReportStatus labels why automation is or is not active for a
// category, so no-data states are explicit rather than silent defaults.
type CategoryReportStatus string

const (
	ReportStatusNoData        CategoryReportStatus = "no_data"
	ReportStatusNeedsMoreData CategoryReportStatus = "needs_more_data"
	ReportStatusReady         CategoryReportStatus = "ready"
)

// CategoryMetrics is derived bookkeeping for one category, recomputable from
// the human-confirmed sample corpus. Never hand-edited.
type CategoryMetrics struct {
	Category           Category  `json:"category"`
	TotalSamples       int       `json:"total_samples"`
	CorrectPredictions int       `json:"correct_predictions"`
	Precision          float64   `json:"precision"`
	Recall             float64   `json:"recall"`
	F1Score            float64   `json:"f1_score"`
	Accuracy           float64   `json:"accuracy"`
	CanAutoAccept      bool      `json:"can_auto_accept"`
	LastUpdated        time.Time `json:"last_updated"`
}

// CategoryReport is the operator-facing readiness view of one category.
type CategoryReport struct {
	Category       Category             `json:"category"`
	Status         CategoryReportStatus `json:"status"`
	Policy         ReviewPolicy         `json:"policy"`
	Metrics        *CategoryMetrics     `json:"metrics,omitempty"`
	SamplesNeeded  int                  `json:"samples_needed"`
	AccuracyGap    float64              `json:"accuracy_gap"`
	Recommendation string               `json:"recommendation"`
}

func CalculatePrecision(tp, fp int) float64 {
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

func CalculateRecall(tp, fn int) float64 {
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

func CalculateF1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * (precision * recall) / (precision + recall)
}
