package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyflow/studyflow-api/internal/dto"
	"github.com/studyflow/studyflow-api/internal/models"
	"github.com/studyflow/studyflow-api/pkg/config"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

type fakeScheduleTaskRepo struct {
	tasks        []models.Task
	scheduledIDs []string
}

func (f *fakeScheduleTaskRepo) ListSchedulable(ctx context.Context, userID string, after time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, task := range f.tasks {
		if task.Schedulable() && task.RemainingMinutes > 0 && task.DueAt.After(after) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (f *fakeScheduleTaskRepo) UpdateStatusBatchWithTx(ctx context.Context, tx *sqlx.Tx, ids []string, status models.TaskStatus) error {
	f.scheduledIDs = ids
	return nil
}

type fakeScheduleSessionRepo struct {
	db       *sqlx.DB
	frozen   []models.StudySession
	stored   []models.StudySession
	deleted  bool
	inserted int
}

func newFakeScheduleSessionRepo(t *testing.T) (*fakeScheduleSessionRepo, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
	return &fakeScheduleSessionRepo{db: sqlx.NewDb(db, "sqlmock")}, func() { db.Close() }
}

func (f *fakeScheduleSessionRepo) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	var out []models.StudySession
	for _, session := range f.stored {
		if session.StartTime.Before(to) && session.EndTime.After(from) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (f *fakeScheduleSessionRepo) ListFrozenFrom(ctx context.Context, userID string, from time.Time) ([]models.StudySession, error) {
	return f.frozen, nil
}

func (f *fakeScheduleSessionRepo) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return f.db.BeginTxx(ctx, nil)
}

func (f *fakeScheduleSessionRepo) DeletePlannedFromWithTx(ctx context.Context, tx *sqlx.Tx, userID string, from time.Time) error {
	f.deleted = true
	kept := f.stored[:0]
	for _, session := range f.stored {
		if session.Status != models.SessionStatusPlanned || !session.EndTime.After(from) {
			kept = append(kept, session)
		}
	}
	f.stored = kept
	return nil
}

func (f *fakeScheduleSessionRepo) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.StudySession) error {
	f.inserted += len(sessions)
	f.stored = append(f.stored, sessions...)
	return nil
}

type fakeScheduleAvailabilityRepo struct {
	rules      []models.AvailabilityRule
	exceptions []models.AvailabilityException
}

func (f *fakeScheduleAvailabilityRepo) ListRules(ctx context.Context, userID string) ([]models.AvailabilityRule, error) {
	return f.rules, nil
}

func (f *fakeScheduleAvailabilityRepo) ListExceptions(ctx context.Context, userID string, from, to time.Time) ([]models.AvailabilityException, error) {
	return f.exceptions, nil
}

type fakeScheduleUserRepo struct {
	user *models.User
}

func (f *fakeScheduleUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return f.user, nil
}

type fakeScheduleCache struct {
	lockBusy    bool
	invalidated []string
	store       map[string][]byte
}

func (f *fakeScheduleCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (f *fakeScheduleCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (f *fakeScheduleCache) DeleteByPattern(ctx context.Context, pattern string) error {
	f.invalidated = append(f.invalidated, pattern)
	return nil
}

func (f *fakeScheduleCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return !f.lockBusy, nil
}

func (f *fakeScheduleCache) ReleaseLock(ctx context.Context, key string) {}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		MinSessionMinutes: 15,
		MaxSessionMinutes: 120,
		HorizonDays:       14,
		MaxDailyShare:     0.4,
		LockTTL:           30 * time.Second,
	}
}

// Monday 2026-01-05.
var planWeekStart = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

func eveningRules(days ...models.Weekday) []models.AvailabilityRule {
	rules := make([]models.AvailabilityRule, 0, len(days))
	for i, day := range days {
		rules = append(rules, models.AvailabilityRule{
			ID:        string(rune('a' + i)),
			UserID:    "user-1",
			DayOfWeek: day,
			StartTime: "18:00",
			EndTime:   "19:00",
		})
	}
	return rules
}

func newScheduleService(t *testing.T, tasks *fakeScheduleTaskRepo, avail *fakeScheduleAvailabilityRepo, cache *fakeScheduleCache) (*ScheduleService, *fakeScheduleSessionRepo, func()) {
	sessions, cleanup := newFakeScheduleSessionRepo(t)
	users := &fakeScheduleUserRepo{user: &models.User{ID: "user-1", PreferredSessionLength: 120}}
	svc := NewScheduleService(tasks, sessions, avail, users, cache, nil, validator.New(), zap.NewNop(), testSchedulerConfig(), 5*time.Minute)
	svc.now = func() time.Time { return planWeekStart.Add(8 * time.Hour) }
	return svc, sessions, cleanup
}

func TestScheduleServiceGenerateSpreadsTaskAcrossEvenings(t *testing.T) {
	tasks := &fakeScheduleTaskRepo{tasks: []models.Task{{
		ID:               "task-1",
		UserID:           "user-1",
		CourseID:         "course-1",
		DueAt:            planWeekStart.AddDate(0, 0, 3).Add(9 * time.Hour),
		Priority:         models.PriorityHigh,
		RemainingMinutes: 120,
		Status:           models.TaskStatusPending,
	}}}
	avail := &fakeScheduleAvailabilityRepo{rules: eveningRules(models.Monday, models.Tuesday, models.Wednesday)}
	cache := &fakeScheduleCache{}

	svc, sessions, cleanup := newScheduleService(t, tasks, avail, cache)
	defer cleanup()

	resp, err := svc.Generate(context.Background(), "user-1", dto.GenerateScheduleRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Sessions, 2)
	assert.Equal(t, planWeekStart.Add(18*time.Hour), resp.Sessions[0].StartTime)
	assert.Equal(t, planWeekStart.AddDate(0, 0, 1).Add(18*time.Hour), resp.Sessions[1].StartTime)
	assert.Equal(t, 120, resp.TotalPlannedMinutes)
	assert.Empty(t, resp.UnscheduledTaskIDs)
	assert.Nil(t, resp.Diagnostics)

	assert.Equal(t, []string{"task-1"}, tasks.scheduledIDs)
	assert.True(t, sessions.deleted)
	assert.Equal(t, 2, sessions.inserted)
	assert.NotEmpty(t, cache.invalidated)
}

func TestScheduleServiceGenerateWithoutRules(t *testing.T) {
	tasks := &fakeScheduleTaskRepo{}
	avail := &fakeScheduleAvailabilityRepo{}
	svc, _, cleanup := newScheduleService(t, tasks, avail, &fakeScheduleCache{})
	defer cleanup()

	_, err := svc.Generate(context.Background(), "user-1", dto.GenerateScheduleRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoAvailability.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceGenerateLockBusy(t *testing.T) {
	tasks := &fakeScheduleTaskRepo{}
	avail := &fakeScheduleAvailabilityRepo{rules: eveningRules(models.Monday)}
	svc, _, cleanup := newScheduleService(t, tasks, avail, &fakeScheduleCache{lockBusy: true})
	defer cleanup()

	_, err := svc.Generate(context.Background(), "user-1", dto.GenerateScheduleRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleRunning.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceGenerateReportsInfeasible(t *testing.T) {
	// only Wednesday evening is usable and the task needs more than fits
	tasks := &fakeScheduleTaskRepo{tasks: []models.Task{{
		ID:               "task-1",
		UserID:           "user-1",
		CourseID:         "course-1",
		DueAt:            planWeekStart.AddDate(0, 0, 3).Add(9 * time.Hour),
		Priority:         models.PriorityHigh,
		RemainingMinutes: 120,
		Status:           models.TaskStatusPending,
	}}}
	avail := &fakeScheduleAvailabilityRepo{rules: eveningRules(models.Wednesday)}

	svc, _, cleanup := newScheduleService(t, tasks, avail, &fakeScheduleCache{})
	defer cleanup()

	resp, err := svc.Generate(context.Background(), "user-1", dto.GenerateScheduleRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, 60, resp.TotalPlannedMinutes)
	require.Len(t, resp.Diagnostics, 1)
	assert.Equal(t, "task-1", resp.Diagnostics[0].TaskID)
}

func TestScheduleServiceReplanKeepsFrozenTime(t *testing.T) {
	tasks := &fakeScheduleTaskRepo{tasks: []models.Task{{
		ID:               "task-1",
		UserID:           "user-1",
		CourseID:         "course-1",
		DueAt:            planWeekStart.AddDate(0, 0, 3).Add(9 * time.Hour),
		Priority:         models.PriorityHigh,
		RemainingMinutes: 60,
		Status:           models.TaskStatusScheduled,
	}}}
	avail := &fakeScheduleAvailabilityRepo{rules: eveningRules(models.Monday, models.Tuesday, models.Wednesday)}

	svc, sessions, cleanup := newScheduleService(t, tasks, avail, &fakeScheduleCache{})
	defer cleanup()

	// Monday evening is already spent on a completed session
	sessions.frozen = []models.StudySession{{
		ID:        "done-1",
		UserID:    "user-1",
		TaskID:    "task-1",
		StartTime: planWeekStart.Add(18 * time.Hour),
		EndTime:   planWeekStart.Add(19 * time.Hour),
		Status:    models.SessionStatusCompleted,
	}}

	resp, err := svc.Replan(context.Background(), "user-1", dto.ReplanScheduleRequest{})
	require.NoError(t, err)

	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, planWeekStart.AddDate(0, 0, 1).Add(18*time.Hour), resp.Sessions[0].StartTime)
}

func TestScheduleServiceGenerateDeterministic(t *testing.T) {
	build := func() *dto.ScheduleRunResponse {
		tasks := &fakeScheduleTaskRepo{tasks: []models.Task{
			{ID: "task-b", UserID: "user-1", CourseID: "c", DueAt: planWeekStart.AddDate(0, 0, 5), Priority: models.PriorityMedium, RemainingMinutes: 90, Status: models.TaskStatusPending},
			{ID: "task-a", UserID: "user-1", CourseID: "c", DueAt: planWeekStart.AddDate(0, 0, 5), Priority: models.PriorityMedium, RemainingMinutes: 90, Status: models.TaskStatusPending},
		}}
		avail := &fakeScheduleAvailabilityRepo{rules: eveningRules(models.Monday, models.Tuesday, models.Wednesday, models.Thursday)}
		svc, _, cleanup := newScheduleService(t, tasks, avail, &fakeScheduleCache{})
		defer cleanup()
		resp, err := svc.Generate(context.Background(), "user-1", dto.GenerateScheduleRequest{})
		require.NoError(t, err)
		return resp
	}

	first := build()
	second := build()
	require.Equal(t, len(first.Sessions), len(second.Sessions))
	for i := range first.Sessions {
		assert.Equal(t, first.Sessions[i].TaskID, second.Sessions[i].TaskID)
		assert.Equal(t, first.Sessions[i].StartTime, second.Sessions[i].StartTime)
		assert.Equal(t, first.Sessions[i].EndTime, second.Sessions[i].EndTime)
	}
}

func TestScheduleServiceWeekGroupsByDay(t *testing.T) {
	tasks := &fakeScheduleTaskRepo{}
	avail := &fakeScheduleAvailabilityRepo{}
	svc, sessions, cleanup := newScheduleService(t, tasks, avail, &fakeScheduleCache{})
	defer cleanup()

	sessions.stored = []models.StudySession{
		{ID: "s1", UserID: "user-1", TaskID: "t1", StartTime: planWeekStart.Add(18 * time.Hour), EndTime: planWeekStart.Add(19 * time.Hour), PlannedMinutes: 60, Status: models.SessionStatusPlanned},
		{ID: "s2", UserID: "user-1", TaskID: "t1", StartTime: planWeekStart.AddDate(0, 0, 2).Add(9 * time.Hour), EndTime: planWeekStart.AddDate(0, 0, 2).Add(10 * time.Hour), PlannedMinutes: 60, Status: models.SessionStatusPlanned},
	}

	resp, err := svc.Week(context.Background(), "user-1", dto.WeekQuery{Start: "2026-01-05"})
	require.NoError(t, err)

	assert.Equal(t, "2026-01-05", resp.WeekStart)
	require.Len(t, resp.Days, 7)
	assert.Len(t, resp.Days[0].Sessions, 1)
	assert.Len(t, resp.Days[2].Sessions, 1)
	assert.Equal(t, models.Monday, resp.Days[0].DayOfWeek)
	assert.Equal(t, 120, resp.TotalPlannedMinutes)
}
