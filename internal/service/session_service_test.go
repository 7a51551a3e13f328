package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studyflow/studyflow-api/internal/dto"
	"github.com/studyflow/studyflow-api/internal/models"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

type fakeSessionRepo struct {
	sessions map[string]*models.StudySession
}

func (f *fakeSessionRepo) ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error) {
	var out []models.StudySession
	for _, session := range f.sessions {
		if session.UserID == userID && session.StartTime.Before(to) && session.EndTime.After(from) {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, id string) (*models.StudySession, error) {
	if session, ok := f.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessionRepo) UpdateStatus(ctx context.Context, id string, status models.SessionStatus, actualMinutes int) error {
	session := f.sessions[id]
	session.Status = status
	session.ActualMinutes = actualMinutes
	return nil
}

type fakeSessionTaskRepo struct {
	task *models.Task
}

func (f *fakeSessionTaskRepo) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if f.task == nil || f.task.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *f.task
	return &copied, nil
}

func (f *fakeSessionTaskRepo) UpdateRemaining(ctx context.Context, id string, remaining int, status models.TaskStatus) error {
	f.task.RemainingMinutes = remaining
	f.task.Status = status
	return nil
}

func newSessionFixture() (*fakeSessionRepo, *fakeSessionTaskRepo, *SessionService) {
	start := time.Date(2026, time.January, 5, 18, 0, 0, 0, time.UTC)
	sessions := &fakeSessionRepo{sessions: map[string]*models.StudySession{
		"s1": {
			ID:             "s1",
			UserID:         "user-1",
			TaskID:         "task-1",
			StartTime:      start,
			EndTime:        start.Add(time.Hour),
			PlannedMinutes: 60,
			Status:         models.SessionStatusPlanned,
		},
	}}
	tasks := &fakeSessionTaskRepo{task: &models.Task{
		ID:               "task-1",
		UserID:           "user-1",
		RemainingMinutes: 90,
		Status:           models.TaskStatusScheduled,
	}}
	svc := NewSessionService(sessions, tasks, nil, validator.New(), zap.NewNop())
	return sessions, tasks, svc
}

func TestSessionServiceCompleteBurnsDownTask(t *testing.T) {
	sessions, tasks, svc := newSessionFixture()

	session, err := svc.Complete(context.Background(), "user-1", "s1", dto.CompleteSessionRequest{})
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	assert.Equal(t, 60, session.ActualMinutes)
	assert.Equal(t, 30, tasks.task.RemainingMinutes)
	assert.Equal(t, models.TaskStatusScheduled, tasks.task.Status)
	assert.Equal(t, models.SessionStatusCompleted, sessions.sessions["s1"].Status)
}

func TestSessionServiceCompleteFinishesTaskAtZero(t *testing.T) {
	_, tasks, svc := newSessionFixture()
	tasks.task.RemainingMinutes = 45

	actual := 50
	_, err := svc.Complete(context.Background(), "user-1", "s1", dto.CompleteSessionRequest{ActualMinutes: &actual})
	require.NoError(t, err)

	assert.Equal(t, 0, tasks.task.RemainingMinutes)
	assert.Equal(t, models.TaskStatusCompleted, tasks.task.Status)
}

func TestSessionServiceCompleteTwiceConflicts(t *testing.T) {
	_, _, svc := newSessionFixture()

	_, err := svc.Complete(context.Background(), "user-1", "s1", dto.CompleteSessionRequest{})
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "user-1", "s1", dto.CompleteSessionRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceSkipLeavesTaskEffort(t *testing.T) {
	_, tasks, svc := newSessionFixture()

	session, err := svc.Skip(context.Background(), "user-1", "s1")
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusSkipped, session.Status)
	assert.Equal(t, 90, tasks.task.RemainingMinutes)
}

func TestSessionServiceStartMarksTaskInProgress(t *testing.T) {
	sessions, tasks, svc := newSessionFixture()

	session, err := svc.Start(context.Background(), "user-1", "s1")
	require.NoError(t, err)

	assert.Equal(t, models.SessionStatusInProgress, session.Status)
	assert.Equal(t, models.TaskStatusInProgress, tasks.task.Status)
	assert.Equal(t, models.SessionStatusInProgress, sessions.sessions["s1"].Status)
}

func TestSessionServiceOwnershipHidesForeignSessions(t *testing.T) {
	_, _, svc := newSessionFixture()

	_, err := svc.Start(context.Background(), "someone-else", "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
