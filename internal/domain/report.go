package domain

// CategorySummary is one row of the aggregated batch report.
type CategorySummary struct {
	Category      Category           `json:"category"`
	Count         int                `json:"count"`
	AvgConfidence float64            `json:"avg_confidence"`
	Sentences     []SentenceExemplar `json:"sentences"`
}

// SentenceExemplar pairs a matched sentence with the verdict confidence it
// carried into the summary.
type SentenceExemplar struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// StoreStats is the coarse lifecycle breakdown of the sample store.
type StoreStats struct {
	TotalSamples     int `json:"total_samples"`
	LabeledSamples   int `json:"labeled_samples"`
	NeedsReview      int `json:"needs_review"`
	UnlabeledSamples int `json:"unlabeled_samples"`
}
