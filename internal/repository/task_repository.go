package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/studyflow/studyflow-api/internal/models"
)

// TaskFilter narrows and paginates task listings.
type TaskFilter struct {
	CourseID  string
	Status    models.TaskStatus
	Priority  models.TaskPriority
	DueBefore *time.Time
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// TaskRepository manages persistence for tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs a TaskRepository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, course_id, title, description, due_at, priority, difficulty, estimated_minutes, remaining_minutes, status, created_at, updated_at`

// List returns tasks for a user matching the filter along with total count.
func (r *TaskRepository) List(ctx context.Context, userID string, filter TaskFilter) ([]models.Task, int, error) {
	base := "FROM tasks WHERE user_id = $1"
	args := []interface{}{userID}
	var conditions []string

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, fmt.Sprintf("due_at < $%d", len(args)+1))
		args = append(args, *filter.DueBefore)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"due_at":     true,
		"priority":   true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "due_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", taskColumns, base, sortBy, order, size, offset)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	return tasks, total, nil
}

// ListSchedulable returns pending and scheduled tasks with remaining work,
// due after the cutoff, in the order the planner consumes them.
func (r *TaskRepository) ListSchedulable(ctx context.Context, userID string, after time.Time) ([]models.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND status IN ('pending', 'scheduled') AND remaining_minutes > 0 AND due_at > $2 ORDER BY due_at ASC, id ASC`
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, userID, after); err != nil {
		return nil, fmt.Errorf("list schedulable tasks: %w", err)
	}
	return tasks, nil
}

// FindByID fetches a task by ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// Create inserts a new task record.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	const query = `INSERT INTO tasks (id, user_id, course_id, title, description, due_at, priority, difficulty, estimated_minutes, remaining_minutes, status, created_at, updated_at)
		VALUES (:id, :user_id, :course_id, :title, :description, :due_at, :priority, :difficulty, :estimated_minutes, :remaining_minutes, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update modifies an existing task record.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = :title, description = :description, due_at = :due_at, priority = :priority, difficulty = :difficulty, estimated_minutes = :estimated_minutes, remaining_minutes = :remaining_minutes, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// UpdateStatus sets the lifecycle state of a single task.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus) error {
	const query = `UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// UpdateStatusBatchWithTx sets the same status on many tasks inside an
// existing transaction.
func (r *TaskRepository) UpdateStatusBatchWithTx(ctx context.Context, tx *sqlx.Tx, ids []string, status models.TaskStatus) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE tasks SET status = ?, updated_at = ? WHERE id IN (?)`, status, time.Now().UTC(), ids)
	if err != nil {
		return fmt.Errorf("build batch status update: %w", err)
	}
	query = tx.Rebind(query)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("batch update task status: %w", err)
	}
	return nil
}

// UpdateRemaining sets the remaining effort of a task.
func (r *TaskRepository) UpdateRemaining(ctx context.Context, id string, remaining int, status models.TaskStatus) error {
	const query = `UPDATE tasks SET remaining_minutes = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, remaining, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update task remaining: %w", err)
	}
	return nil
}

// MarkOverdue flips past-due unfinished tasks for a user to overdue.
func (r *TaskRepository) MarkOverdue(ctx context.Context, userID string, asOf time.Time) (int64, error) {
	const query = `UPDATE tasks SET status = 'overdue', updated_at = $3 WHERE user_id = $1 AND due_at < $2 AND status IN ('pending', 'scheduled', 'in_progress')`
	res, err := r.db.ExecContext(ctx, query, userID, asOf, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark overdue tasks rows: %w", err)
	}
	return n, nil
}

// Delete removes a task by id.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
