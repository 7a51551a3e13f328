package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/studyflow-api/internal/models"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRepositoryListRules(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "day_of_week", "start_time", "end_time", "created_at"}).
		AddRow("r1", "user-1", "monday", "18:00", "20:00", time.Now()).
		AddRow("r2", "user-1", "wednesday", "09:00", "11:30", time.Now())
	mock.ExpectQuery("FROM availability_rules WHERE user_id = \\$1 ORDER BY day_of_week ASC, start_time ASC").
		WithArgs("user-1").
		WillReturnRows(rows)

	rules, err := repo.ListRules(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, models.Monday, rules[0].DayOfWeek)
	assert.Equal(t, "18:00", rules[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreateRule(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("INSERT INTO availability_rules").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.AvailabilityRule{UserID: "user-1", DayOfWeek: models.Tuesday, StartTime: "07:00", EndTime: "08:30"}
	require.NoError(t, repo.CreateRule(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCountRules(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM availability_rules WHERE user_id = \\$1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountRules(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListExceptions(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	from := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)
	rows := sqlmock.NewRows([]string{"id", "user_id", "date", "start_time", "end_time", "is_available", "created_at"}).
		AddRow("e1", "user-1", from.AddDate(0, 0, 2), "", "", false, time.Now())
	mock.ExpectQuery("FROM availability_exceptions WHERE user_id = \\$1 AND date >= \\$2 AND date < \\$3").
		WithArgs("user-1", from, to).
		WillReturnRows(rows)

	exceptions, err := repo.ListExceptions(context.Background(), "user-1", from, to)
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.False(t, exceptions[0].IsAvailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDeleteRule(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("DELETE FROM availability_rules WHERE id = \\$1").
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteRule(context.Background(), "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
