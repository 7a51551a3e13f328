package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/studyflow-api/internal/models"
)

func newTaskRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func taskRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "user_id", "course_id", "title", "description", "due_at", "priority", "difficulty", "estimated_minutes", "remaining_minutes", "status", "created_at", "updated_at"}).
		AddRow("task-1", "user-1", "course-1", "Read chapter 4", "", now.Add(48*time.Hour), "high", "medium", 120, 120, "pending", now, now)
}

func TestTaskRepositoryList(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectQuery("SELECT id, user_id, course_id, .+ FROM tasks WHERE user_id = \\$1 ORDER BY due_at ASC LIMIT 20 OFFSET 0").
		WithArgs("user-1").
		WillReturnRows(taskRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tasks WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	tasks, total, err := repo.List(context.Background(), "user-1", TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "task-1", tasks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectQuery("FROM tasks WHERE user_id = \\$1 AND status = \\$2").
		WithArgs("user-1", models.TaskStatusPending).
		WillReturnRows(taskRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("user-1", models.TaskStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	tasks, total, err := repo.List(context.Background(), "user-1", TaskFilter{Status: models.TaskStatusPending})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryListSchedulable(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	after := time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM tasks WHERE user_id = \\$1 AND status IN \\('pending', 'scheduled'\\) AND remaining_minutes > 0 AND due_at > \\$2").
		WithArgs("user-1", after).
		WillReturnRows(taskRows())

	tasks, err := repo.ListSchedulable(context.Background(), "user-1", after)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 120, tasks[0].RemainingMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateFillsIdentity(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(1, 1))

	task := &models.Task{
		UserID:           "user-1",
		CourseID:         "course-1",
		Title:            "Problem set 3",
		DueAt:            time.Now().Add(72 * time.Hour),
		Priority:         models.PriorityMedium,
		EstimatedMinutes: 90,
		RemainingMinutes: 90,
		Status:           models.TaskStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), task))
	assert.NotEmpty(t, task.ID)
	assert.False(t, task.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateRemaining(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks SET remaining_minutes = \\$2, status = \\$3").
		WithArgs("task-1", 0, models.TaskStatusCompleted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdateRemaining(context.Background(), "task-1", 0, models.TaskStatusCompleted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdateStatusBatchWithTx(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET status = \\$1, updated_at = \\$2 WHERE id IN \\(\\$3, \\$4\\)").
		WithArgs(models.TaskStatusScheduled, sqlmock.AnyArg(), "task-1", "task-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatusBatchWithTx(context.Background(), tx, []string{"task-1", "task-2"}, models.TaskStatusScheduled))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryMarkOverdue(t *testing.T) {
	db, mock, cleanup := newTaskRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	asOf := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE tasks SET status = 'overdue'").
		WithArgs("user-1", asOf, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.MarkOverdue(context.Background(), "user-1", asOf)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
