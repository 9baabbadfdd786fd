package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meditext/labelengine/internal/domain"
)

type CategoryMetricsRepo struct {
	db *PostgresDB
}

func NewCategoryMetricsRepo(db *PostgresDB) *CategoryMetricsRepo {
	return &CategoryMetricsRepo{db: db}
}

func (r *CategoryMetricsRepo) Upsert(ctx context.Context, m *domain.CategoryMetrics) error {
	if m.LastUpdated.IsZero() {
		m.LastUpdated = time.Now()
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO category_metrics (
			category, total_samples, correct_predictions,
			precision, recall, f1_score, accuracy, can_auto_accept, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (category) DO UPDATE SET
			total_samples = EXCLUDED.total_samples,
			correct_predictions = EXCLUDED.correct_predictions,
			precision = EXCLUDED.precision,
			recall = EXCLUDED.recall,
			f1_score = EXCLUDED.f1_score,
			accuracy = EXCLUDED.accuracy,
			can_auto_accept = EXCLUDED.can_auto_accept,
			last_updated = EXCLUDED.last_updated
	`, string(m.Category), m.TotalSamples, m.CorrectPredictions,
		m.Precision, m.Recall, m.F1Score, m.Accuracy, m.CanAutoAccept, m.LastUpdated)

	if err != nil {
		return fmt.Errorf("upsert category metrics: %w", err)
	}
	return nil
}

// Get returns the stored metrics for a category, or nil when none exist yet.
func (r *CategoryMetricsRepo) Get(ctx context.Context, category domain.Category) (*domain.CategoryMetrics, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT category, total_samples, correct_predictions,
			precision, recall, f1_score, accuracy, can_auto_accept, last_updated
		FROM category_metrics
		WHERE category = $1
	`, string(category))

	var m domain.CategoryMetrics
	err := row.Scan(&m.Category, &m.TotalSamples, &m.CorrectPredictions,
		&m.Precision, &m.Recall, &m.F1Score, &m.Accuracy, &m.CanAutoAccept, &m.LastUpdated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan category metrics: %w", err)
	}

	return &m, nil
}

func (r *CategoryMetricsRepo) GetAll(ctx context.Context) (map[domain.Category]*domain.CategoryMetrics, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT category, total_samples, correct_predictions,
			precision, recall, f1_score, accuracy, can_auto_accept, last_updated
		FROM category_metrics
	`)
	if err != nil {
		return nil, fmt.Errorf("query category metrics: %w", err)
	}
	defer rows.Close()

	all := make(map[domain.Category]*domain.CategoryMetrics)
	for rows.Next() {
		var m domain.CategoryMetrics
		if err := rows.Scan(&m.Category, &m.TotalSamples, &m.CorrectPredictions,
			&m.Precision, &m.Recall, &m.F1Score, &m.Accuracy, &m.CanAutoAccept, &m.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		all[m.Category] = &m
	}

	return all, rows.Err()
}

// GetPolicy returns the stored review policy for a category. Categories
// without a row default to mandatory review.
func (r *CategoryMetricsRepo) GetPolicy(ctx context.Context, category domain.Category) (domain.ReviewPolicy, error) {
	var policy string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT policy FROM category_policy WHERE category = $1
	`, string(category)).Scan(&policy)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.PolicyMandatoryReview, nil
		}
		return "", fmt.Errorf("query category policy: %w", err)
	}

	return domain.ReviewPolicy(policy), nil
}

func (r *CategoryMetricsRepo) SetPolicy(ctx context.Context, category domain.Category, policy domain.ReviewPolicy) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO category_policy (category, policy, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (category) DO UPDATE SET
			policy = EXCLUDED.policy,
			updated_at = EXCLUDED.updated_at
	`, string(category), string(policy))
	if err != nil {
		return fmt.Errorf("set category policy: %w", err)
	}
	return nil
}

func (r *CategoryMetricsRepo) GetAllPolicies(ctx context.Context) (map[domain.Category]domain.ReviewPolicy, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT category, policy FROM category_policy`)
	if err != nil {
		return nil, fmt.Errorf("query category policies: %w", err)
	}
	defer rows.Close()

	policies := make(map[domain.Category]domain.ReviewPolicy)
	for rows.Next() {
		var category, policy string
		if err := rows.Scan(&category, &policy); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		policies[domain.Category(category)] = domain.ReviewPolicy(policy)
	}

	return policies, rows.Err()
}
