package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyflow/studyflow-api/internal/models"
)

// AvailabilityRepository manages weekly rules and date exceptions.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListRules returns all weekly rules for a user ordered by day and start.
func (r *AvailabilityRepository) ListRules(ctx context.Context, userID string) ([]models.AvailabilityRule, error) {
	const query = `SELECT id, user_id, day_of_week, start_time, end_time, created_at FROM availability_rules WHERE user_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, userID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// FindRuleByID fetches a weekly rule by ID.
func (r *AvailabilityRepository) FindRuleByID(ctx context.Context, id string) (*models.AvailabilityRule, error) {
	const query = `SELECT id, user_id, day_of_week, start_time, end_time, created_at FROM availability_rules WHERE id = $1`
	var rule models.AvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability rule: %w", err)
	}
	return &rule, nil
}

// CreateRule inserts a weekly rule.
func (r *AvailabilityRepository) CreateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO availability_rules (id, user_id, day_of_week, start_time, end_time, created_at)
		VALUES (:id, :user_id, :day_of_week, :start_time, :end_time, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create availability rule: %w", err)
	}
	return nil
}

// UpdateRule modifies a weekly rule.
func (r *AvailabilityRepository) UpdateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	const query = `UPDATE availability_rules SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update availability rule: %w", err)
	}
	return nil
}

// DeleteRule removes a weekly rule by id.
func (r *AvailabilityRepository) DeleteRule(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_rules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability rule: %w", err)
	}
	return nil
}

// CountRules returns the number of weekly rules a user has.
func (r *AvailabilityRepository) CountRules(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM availability_rules WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count availability rules: %w", err)
	}
	return count, nil
}

// ListExceptions returns exceptions for a user within [from, to).
func (r *AvailabilityRepository) ListExceptions(ctx context.Context, userID string, from, to time.Time) ([]models.AvailabilityException, error) {
	const query = `SELECT id, user_id, date, start_time, end_time, is_available, created_at FROM availability_exceptions WHERE user_id = $1 AND date >= $2 AND date < $3 ORDER BY date ASC, start_time ASC`
	var exceptions []models.AvailabilityException
	if err := r.db.SelectContext(ctx, &exceptions, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list availability exceptions: %w", err)
	}
	return exceptions, nil
}

// FindExceptionByID fetches an exception by ID.
func (r *AvailabilityRepository) FindExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error) {
	const query = `SELECT id, user_id, date, start_time, end_time, is_available, created_at FROM availability_exceptions WHERE id = $1`
	var exc models.AvailabilityException
	if err := r.db.GetContext(ctx, &exc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability exception: %w", err)
	}
	return &exc, nil
}

// CreateException inserts a date exception.
func (r *AvailabilityRepository) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	if exc.ID == "" {
		exc.ID = uuid.NewString()
	}
	if exc.CreatedAt.IsZero() {
		exc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO availability_exceptions (id, user_id, date, start_time, end_time, is_available, created_at)
		VALUES (:id, :user_id, :date, :start_time, :end_time, :is_available, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exc); err != nil {
		return fmt.Errorf("create availability exception: %w", err)
	}
	return nil
}

// DeleteException removes a date exception by id.
func (r *AvailabilityRepository) DeleteException(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability exception: %w", err)
	}
	return nil
}
