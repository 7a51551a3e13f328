package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyflow/studyflow-api/internal/dto"
	"github.com/studyflow/studyflow-api/internal/models"
	"github.com/studyflow/studyflow-api/internal/repository"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

type taskRepository interface {
	List(ctx context.Context, userID string, filter repository.TaskFilter) ([]models.Task, int, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	UpdateRemaining(ctx context.Context, id string, remaining int, status models.TaskStatus) error
	MarkOverdue(ctx context.Context, userID string, asOf time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
}

type taskCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type taskSessionRepository interface {
	DeleteByTask(ctx context.Context, taskID string) error
}

// TaskService provides task management use cases.
type TaskService struct {
	repo      taskRepository
	courses   taskCourseRepository
	sessions  taskSessionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService constructs a TaskService.
func NewTaskService(repo taskRepository, courses taskCourseRepository, sessions taskSessionRepository, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TaskService{repo: repo, courses: courses, sessions: sessions, validator: validate, logger: logger}
}

// List returns tasks for a user with pagination metadata.
func (s *TaskService) List(ctx context.Context, userID string, query dto.TaskListQuery) ([]models.Task, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task query")
	}

	filter := repository.TaskFilter{
		CourseID:  query.CourseID,
		Status:    models.TaskStatus(query.Status),
		Priority:  models.TaskPriority(query.Priority),
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.DueBefore != "" {
		due, err := time.Parse("2006-01-02", query.DueBefore)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid dueBefore date")
		}
		filter.DueBefore = &due
	}

	// Lazy sweep so listings never show a past-due task as still pending.
	if _, err := s.repo.MarkOverdue(ctx, userID, time.Now().UTC()); err != nil {
		s.logger.Warn("overdue sweep failed", zap.String("user_id", userID), zap.Error(err))
	}

	tasks, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return tasks, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one task, enforcing ownership.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	return s.findOwned(ctx, userID, id)
}

// Create stores a new task under one of the user's courses. The remaining
// effort starts at the estimate.
func (s *TaskService) Create(ctx context.Context, userID string, req dto.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	difficulty := models.TaskDifficulty(req.Difficulty)
	if req.Difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	task := &models.Task{
		UserID:           userID,
		CourseID:         req.CourseID,
		Title:            req.Title,
		Description:      req.Description,
		DueAt:            req.DueAt,
		Priority:         models.TaskPriority(req.Priority),
		Difficulty:       difficulty,
		EstimatedMinutes: req.EstimatedMinutes,
		RemainingMinutes: req.EstimatedMinutes,
		Status:           models.TaskStatusPending,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	return task, nil
}

// Update applies partial changes to an owned task. Raising the estimate adds
// the difference to the remaining effort.
func (s *TaskService) Update(ctx context.Context, userID, id string, req dto.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.DueAt != nil {
		task.DueAt = *req.DueAt
	}
	if req.Priority != nil {
		task.Priority = models.TaskPriority(*req.Priority)
	}
	if req.Difficulty != nil {
		task.Difficulty = models.TaskDifficulty(*req.Difficulty)
	}
	if req.EstimatedMinutes != nil {
		delta := *req.EstimatedMinutes - task.EstimatedMinutes
		task.EstimatedMinutes = *req.EstimatedMinutes
		task.RemainingMinutes += delta
		if task.RemainingMinutes < 0 {
			task.RemainingMinutes = 0
		}
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return task, nil
}

// Complete marks a task finished, zeroes its remaining effort and removes
// any planned sessions still on the calendar.
func (s *TaskService) Complete(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if task.Status == models.TaskStatusCompleted {
		return task, nil
	}

	if err := s.repo.UpdateRemaining(ctx, task.ID, 0, models.TaskStatusCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete task")
	}
	if err := s.sessions.DeleteByTask(ctx, task.ID); err != nil {
		s.logger.Warn("failed to drop planned sessions for completed task", zap.String("task_id", task.ID), zap.Error(err))
	}

	task.RemainingMinutes = 0
	task.Status = models.TaskStatusCompleted
	return task, nil
}

// MarkOverdue flips every past-due unfinished task of the user to overdue
// and reports how many changed.
func (s *TaskService) MarkOverdue(ctx context.Context, userID string, asOf time.Time) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, userID, asOf)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark overdue tasks")
	}
	if n > 0 {
		s.logger.Info("tasks marked overdue", zap.String("user_id", userID), zap.Int64("count", n))
	}
	return n, nil
}

// Delete removes an owned task and its planned sessions.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	task, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.sessions.DeleteByTask(ctx, task.ID); err != nil {
		s.logger.Warn("failed to drop planned sessions for deleted task", zap.String("task_id", task.ID), zap.Error(err))
	}
	if err := s.repo.Delete(ctx, task.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}

func (s *TaskService) findOwned(ctx context.Context, userID, id string) (*models.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if task.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
	}
	return task, nil
}
