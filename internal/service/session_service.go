package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyflow/studyflow-api/internal/dto"
	"github.com/studyflow/studyflow-api/internal/models"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

type sessionRepository interface {
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error)
	FindByID(ctx context.Context, id string) (*models.StudySession, error)
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus, actualMinutes int) error
}

type sessionTaskRepository interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	UpdateRemaining(ctx context.Context, id string, remaining int, status models.TaskStatus) error
}

type weekCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SessionService drives the study-session lifecycle. Completing a session
// burns down the owning task's remaining effort.
type SessionService struct {
	repo      sessionRepository
	tasks     sessionTaskRepository
	cache     weekCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a SessionService. The cache may be nil.
func NewSessionService(repo sessionRepository, tasks sessionTaskRepository, cache weekCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SessionService{repo: repo, tasks: tasks, cache: cache, validator: validate, logger: logger}
}

// List returns sessions in a date range, optionally filtered by status.
func (s *SessionService) List(ctx context.Context, userID string, query dto.SessionListQuery) ([]models.StudySession, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session query")
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if query.From != "" {
		parsed, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		from = parsed
	}
	to := from.AddDate(0, 0, 7)
	if query.To != "" {
		parsed, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		to = parsed
	}
	if !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be after from")
	}

	sessions, err := s.repo.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if query.Status != "" {
		filtered := sessions[:0]
		for _, session := range sessions {
			if session.Status == models.SessionStatus(query.Status) {
				filtered = append(filtered, session)
			}
		}
		sessions = filtered
	}
	return sessions, nil
}

// Start transitions a planned session to in progress. The owning task moves
// to in progress with it.
func (s *SessionService) Start(ctx context.Context, userID, id string) (*models.StudySession, error) {
	session, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusPlanned {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session is %s, only planned sessions can start", session.Status))
	}

	if err := s.repo.UpdateStatus(ctx, session.ID, models.SessionStatusInProgress, 0); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start session")
	}

	task, err := s.tasks.FindByID(ctx, session.TaskID)
	if err == nil && task.Status != models.TaskStatusCompleted {
		if err := s.tasks.UpdateRemaining(ctx, task.ID, task.RemainingMinutes, models.TaskStatusInProgress); err != nil {
			s.logger.Warn("failed to move task in progress", zap.String("task_id", task.ID), zap.Error(err))
		}
	}

	session.Status = models.SessionStatusInProgress
	s.invalidateWeekCache(ctx, userID)
	return session, nil
}

// Complete closes a session and subtracts the time studied from the task's
// remaining effort. A task that reaches zero is completed.
func (s *SessionService) Complete(ctx context.Context, userID, id string, req dto.CompleteSessionRequest) (*models.StudySession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complete payload")
	}

	session, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session is already %s", session.Status))
	}

	actual := session.PlannedMinutes
	if req.ActualMinutes != nil {
		actual = *req.ActualMinutes
	}

	if err := s.repo.UpdateStatus(ctx, session.ID, models.SessionStatusCompleted, actual); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
	}

	task, err := s.tasks.FindByID(ctx, session.TaskID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
		}
	} else if task.Status != models.TaskStatusCompleted {
		remaining := task.RemainingMinutes - actual
		status := task.Status
		if remaining <= 0 {
			remaining = 0
			status = models.TaskStatusCompleted
		}
		if err := s.tasks.UpdateRemaining(ctx, task.ID, remaining, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task effort")
		}
	}

	session.Status = models.SessionStatusCompleted
	session.ActualMinutes = actual
	s.invalidateWeekCache(ctx, userID)
	return session, nil
}

// Skip abandons an active session without touching the task's effort, so a
// later replan can redistribute the time.
func (s *SessionService) Skip(ctx context.Context, userID, id string) (*models.StudySession, error) {
	session, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session is already %s", session.Status))
	}

	if err := s.repo.UpdateStatus(ctx, session.ID, models.SessionStatusSkipped, 0); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to skip session")
	}

	session.Status = models.SessionStatusSkipped
	s.invalidateWeekCache(ctx, userID)
	return session, nil
}

func (s *SessionService) findOwned(ctx context.Context, userID, id string) (*models.StudySession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return session, nil
}

func (s *SessionService) invalidateWeekCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("schedule:week:%s:*", userID)); err != nil {
		s.logger.Warn("failed to invalidate week cache", zap.String("user_id", userID), zap.Error(err))
	}
}
