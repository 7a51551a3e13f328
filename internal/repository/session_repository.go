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

// SessionRepository manages persistence for study sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, course_id, task_id, start_time, end_time, planned_minutes, actual_minutes, status, created_at`

// ListByUserRange returns sessions overlapping [from, to) ordered by start.
func (r *SessionRepository) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM study_sessions WHERE user_id = $1 AND start_time < $3 AND end_time > $2 ORDER BY start_time ASC, id ASC`
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list sessions by range: %w", err)
	}
	return sessions, nil
}

// ListFrozenFrom returns sessions at or after the cutoff that a replan must
// keep: everything already completed, skipped or in progress.
func (r *SessionRepository) ListFrozenFrom(ctx context.Context, userID string, from time.Time) ([]models.StudySession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM study_sessions WHERE user_id = $1 AND end_time > $2 AND status IN ('in_progress', 'completed', 'skipped') ORDER BY start_time ASC, id ASC`
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, userID, from); err != nil {
		return nil, fmt.Errorf("list frozen sessions: %w", err)
	}
	return sessions, nil
}

// ListByStatus returns the user's sessions in a given state within [from, to).
func (r *SessionRepository) ListByStatus(ctx context.Context, userID string, status models.SessionStatus, from, to time.Time) ([]models.StudySession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM study_sessions WHERE user_id = $1 AND status = $2 AND start_time >= $3 AND start_time < $4 ORDER BY start_time ASC, id ASC`
	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, userID, status, from, to); err != nil {
		return nil, fmt.Errorf("list sessions by status: %w", err)
	}
	return sessions, nil
}

// FindByID fetches a session by ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.StudySession, error) {
	const query = `SELECT ` + sessionColumns + ` FROM study_sessions WHERE id = $1`
	var session models.StudySession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return &session, nil
}

// BeginTx opens a transaction for a multi-statement plan swap.
func (r *SessionRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session tx: %w", err)
	}
	return tx, nil
}

// DeletePlannedFromWithTx removes planned sessions ending after the cutoff
// inside an existing transaction. Started and finished sessions stay.
func (r *SessionRepository) DeletePlannedFromWithTx(ctx context.Context, tx *sqlx.Tx, userID string, from time.Time) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	const query = `DELETE FROM study_sessions WHERE user_id = $1 AND end_time > $2 AND status = 'planned'`
	if _, err := tx.ExecContext(ctx, query, userID, from); err != nil {
		return fmt.Errorf("delete planned sessions: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts sessions using an existing transaction.
func (r *SessionRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.StudySession) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	now := time.Now().UTC()
	for i := range sessions {
		payload := sessions[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO study_sessions (id, user_id, course_id, task_id, start_time, end_time, planned_minutes, actual_minutes, status, created_at) VALUES (:id, :user_id, :course_id, :task_id, :start_time, :end_time, :planned_minutes, :actual_minutes, :status, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert session: %w", err)
		}
		sessions[i] = payload
	}
	return nil
}

// UpdateStatus transitions a session and records actual minutes.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, actualMinutes int) error {
	const query = `UPDATE study_sessions SET status = $2, actual_minutes = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, actualMinutes); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// DeleteByTask removes planned sessions of one task, used when the task is
// deleted or completed early.
func (r *SessionRepository) DeleteByTask(ctx context.Context, taskID string) error {
	const query = `DELETE FROM study_sessions WHERE task_id = $1 AND status = 'planned'`
	if _, err := r.db.ExecContext(ctx, query, taskID); err != nil {
		return fmt.Errorf("delete sessions by task: %w", err)
	}
	return nil
}
