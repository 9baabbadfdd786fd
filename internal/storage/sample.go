package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meditext/labelengine/internal/domain"
)

type SampleRepo struct {
	db *PostgresDB
}

func NewSampleRepo(db *PostgresDB) *SampleRepo {
	return &SampleRepo{db: db}
}

// Insert persists a new sample and returns its assigned id. The verdict
// snapshot fields are written once and never recomputed.
func (r *SampleRepo) Insert(ctx context.Context, sample *domain.Sample) (string, error) {
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}

	humanJSON, err := marshalLabels(sample.HumanLabels)
	if err != nil {
		return "", fmt.Errorf("marshal human labels: %w", err)
	}
	ensembleJSON, err := marshalLabels(sample.EnsembleLabels)
	if err != nil {
		return "", fmt.Errorf("marshal ensemble labels: %w", err)
	}
	agreementJSON, err := json.Marshal(sample.Agreement)
	if err != nil {
		return "", fmt.Errorf("marshal agreement: %w", err)
	}
	perPredictorJSON, err := json.Marshal(sample.PerPredictorLabels)
	if err != nil {
		return "", fmt.Errorf("marshal per-predictor labels: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO samples (
			id, sentence, source, human_labels, ensemble_labels,
			confidence, entropy, agreement, per_predictor_labels,
			needs_review, labeled_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, sample.ID, sample.Sentence, sample.Source, humanJSON, ensembleJSON,
		sample.Confidence, sample.Entropy, agreementJSON, perPredictorJSON,
		sample.NeedsReview, string(sample.LabeledBy), sample.CreatedAt)

	if err != nil {
		return "", fmt.Errorf("insert sample: %w", err)
	}

	return sample.ID, nil
}

func (r *SampleRepo) InsertBatch(ctx context.Context, samples []*domain.Sample) error {
	batch := &pgx.Batch{}
	now := time.Now()

	for _, sample := range samples {
		if sample.ID == "" {
			sample.ID = uuid.New().String()
		}
		if sample.CreatedAt.IsZero() {
			sample.CreatedAt = now
		}

		humanJSON, _ := marshalLabels(sample.HumanLabels)
		ensembleJSON, _ := marshalLabels(sample.EnsembleLabels)
		agreementJSON, _ := json.Marshal(sample.Agreement)
		perPredictorJSON, _ := json.Marshal(sample.PerPredictorLabels)

		batch.Queue(`
			INSERT INTO samples (
				id, sentence, source, human_labels, ensemble_labels,
				confidence, entropy, agreement, per_predictor_labels,
				needs_review, labeled_by, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, sample.ID, sample.Sentence, sample.Source, humanJSON, ensembleJSON,
			sample.Confidence, sample.Entropy, agreementJSON, perPredictorJSON,
			sample.NeedsReview, string(sample.LabeledBy), sample.CreatedAt)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range samples {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}

	return nil
}

// UpdateLabels sets the final labels for one sample in a single atomic write.
func (r *SampleRepo) UpdateLabels(ctx context.Context, id string, labels []domain.Category, needsReview bool, labeledBy domain.LabelSource) error {
	labelsJSON, err := marshalLabels(labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE samples
		SET human_labels = $1, needs_review = $2, labeled_by = $3
		WHERE id = $4
	`, labelsJSON, needsReview, string(labeledBy), id)
	if err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sample %s not found", id)
	}

	return nil
}

// Undo reverts a sample to the created state: no human labels, back in the
// review queue.
func (r *SampleRepo) Undo(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE samples
		SET human_labels = NULL, needs_review = TRUE, labeled_by = ''
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("undo sample: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sample %s not found", id)
	}

	return nil
}

func (r *SampleRepo) GetByID(ctx context.Context, id string) (*domain.Sample, error) {
	row := r.db.Pool.QueryRow(ctx, selectSampleColumns+` FROM samples WHERE id = $1`, id)

	sample, err := scanSample(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("sample %s not found", id)
		}
		return nil, fmt.Errorf("scan sample: %w", err)
	}
	return sample, nil
}

// NeedingReview returns up to limit unreviewed samples, highest entropy
// first, so the most uncertain verdicts surface to reviewers first.
func (r *SampleRepo) NeedingReview(ctx context.Context, limit int) ([]*domain.Sample, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := r.db.Pool.Query(ctx, selectSampleColumns+`
		FROM samples
		WHERE needs_review = TRUE
		ORDER BY entropy DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query samples needing review: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Confirmed returns finalized samples (needs_review false, human labels set),
// optionally filtered to those a human or the engine labeled with category.
func (r *SampleRepo) Confirmed(ctx context.Context, category domain.Category) ([]*domain.Sample, error) {
	query := selectSampleColumns + `
		FROM samples
		WHERE needs_review = FALSE AND jsonb_array_length(COALESCE(human_labels, '[]')) > 0`
	args := []interface{}{}

	if category != "" {
		query += ` AND human_labels @> $1::jsonb`
		labelJSON, err := marshalLabels([]domain.Category{category})
		if err != nil {
			return nil, fmt.Errorf("marshal category filter: %w", err)
		}
		args = append(args, labelJSON)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query confirmed samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// HumanConfirmedMentioning returns human-confirmed samples that carry the
// category in either the human or the ensemble label set. Auto-accepted
// samples are excluded so automation never feeds its own accuracy gate.
func (r *SampleRepo) HumanConfirmedMentioning(ctx context.Context, category domain.Category) ([]*domain.Sample, error) {
	labelJSON, err := marshalLabels([]domain.Category{category})
	if err != nil {
		return nil, fmt.Errorf("marshal category filter: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, selectSampleColumns+`
		FROM samples
		WHERE needs_review = FALSE
		  AND labeled_by = 'human'
		  AND (human_labels @> $1::jsonb OR ensemble_labels @> $1::jsonb)
	`, labelJSON)
	if err != nil {
		return nil, fmt.Errorf("query human-confirmed samples: %w", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func (r *SampleRepo) Stats(ctx context.Context) (*domain.StoreStats, error) {
	var stats domain.StoreStats
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE jsonb_array_length(COALESCE(human_labels, '[]')) > 0),
			COUNT(*) FILTER (WHERE needs_review = TRUE)
		FROM samples
	`).Scan(&stats.TotalSamples, &stats.LabeledSamples, &stats.NeedsReview)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats.UnlabeledSamples = stats.TotalSamples - stats.LabeledSamples
	return &stats, nil
}

const selectSampleColumns = `
	SELECT id, sentence, source, human_labels, ensemble_labels,
		confidence, entropy, agreement, per_predictor_labels,
		needs_review, labeled_by, created_at`

func scanSample(row pgx.Row) (*domain.Sample, error) {
	var sample domain.Sample
	var humanJSON, ensembleJSON, agreementJSON, perPredictorJSON []byte
	var labeledBy string

	if err := row.Scan(
		&sample.ID, &sample.Sentence, &sample.Source, &humanJSON, &ensembleJSON,
		&sample.Confidence, &sample.Entropy, &agreementJSON, &perPredictorJSON,
		&sample.NeedsReview, &labeledBy, &sample.CreatedAt,
	); err != nil {
		return nil, err
	}

	sample.LabeledBy = domain.LabelSource(labeledBy)

	if humanJSON != nil {
		if err := json.Unmarshal(humanJSON, &sample.HumanLabels); err != nil {
			return nil, fmt.Errorf("unmarshal human labels: %w", err)
		}
	}
	if err := json.Unmarshal(ensembleJSON, &sample.EnsembleLabels); err != nil {
		return nil, fmt.Errorf("unmarshal ensemble labels: %w", err)
	}
	if agreementJSON != nil {
		if err := json.Unmarshal(agreementJSON, &sample.Agreement); err != nil {
			return nil, fmt.Errorf("unmarshal agreement: %w", err)
		}
	}
	if perPredictorJSON != nil {
		if err := json.Unmarshal(perPredictorJSON, &sample.PerPredictorLabels); err != nil {
			return nil, fmt.Errorf("unmarshal per-predictor labels: %w", err)
		}
	}

	return &sample, nil
}

func scanSamples(rows pgx.Rows) ([]*domain.Sample, error) {
	var samples []*domain.Sample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func marshalLabels(labels []domain.Category) ([]byte, error) {
	if labels == nil {
		labels = []domain.Category{}
	}
	return json.Marshal(labels)
}
