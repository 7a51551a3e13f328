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
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

type availabilityRepository interface {
	ListRules(ctx context.Context, userID string) ([]models.AvailabilityRule, error)
	FindRuleByID(ctx context.Context, id string) (*models.AvailabilityRule, error)
	CreateRule(ctx context.Context, rule *models.AvailabilityRule) error
	UpdateRule(ctx context.Context, rule *models.AvailabilityRule) error
	DeleteRule(ctx context.Context, id string) error
	ListExceptions(ctx context.Context, userID string, from, to time.Time) ([]models.AvailabilityException, error)
	FindExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error)
	CreateException(ctx context.Context, exc *models.AvailabilityException) error
	DeleteException(ctx context.Context, id string) error
}

// AvailabilityService manages weekly study windows and date exceptions.
type AvailabilityService struct {
	repo      availabilityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AvailabilityService{repo: repo, validator: validate, logger: logger}
}

// ListRules returns the user's weekly rules.
func (s *AvailabilityService) ListRules(ctx context.Context, userID string) ([]models.AvailabilityRule, error) {
	rules, err := s.repo.ListRules(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	return rules, nil
}

// CreateRule adds a weekly window after checking the times make a valid
// same-day interval.
func (s *AvailabilityService) CreateRule(ctx context.Context, userID string, req dto.CreateAvailabilityRuleRequest) (*models.AvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability rule payload")
	}
	if err := validateClockWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	rule := &models.AvailabilityRule{
		UserID:    userID,
		DayOfWeek: models.Weekday(req.DayOfWeek),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability rule")
	}
	return rule, nil
}

// UpdateRule modifies an owned weekly window.
func (s *AvailabilityService) UpdateRule(ctx context.Context, userID, id string, req dto.UpdateAvailabilityRuleRequest) (*models.AvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability rule payload")
	}

	rule, err := s.findOwnedRule(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.DayOfWeek != nil {
		rule.DayOfWeek = models.Weekday(*req.DayOfWeek)
	}
	if req.StartTime != nil {
		rule.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		rule.EndTime = *req.EndTime
	}
	if err := validateClockWindow(rule.StartTime, rule.EndTime); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability rule")
	}
	return rule, nil
}

// DeleteRule removes an owned weekly window.
func (s *AvailabilityService) DeleteRule(ctx context.Context, userID, id string) error {
	if _, err := s.findOwnedRule(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability rule")
	}
	return nil
}

// ListExceptions returns exceptions in [from, to). Empty bounds default to
// the next 30 days.
func (s *AvailabilityService) ListExceptions(ctx context.Context, userID string, query dto.AvailabilityExceptionQuery) ([]models.AvailabilityException, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception query")
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if query.From != "" {
		parsed, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		from = parsed
	}
	to := from.AddDate(0, 0, 30)
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

	exceptions, err := s.repo.ListExceptions(ctx, userID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability exceptions")
	}
	return exceptions, nil
}

// CreateException records a one-date override. A blocking exception needs no
// times; an available one needs a valid window.
func (s *AvailabilityService) CreateException(ctx context.Context, userID string, req dto.CreateAvailabilityExceptionRequest) (*models.AvailabilityException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability exception payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exception date")
	}

	available := req.IsAvailable != nil && *req.IsAvailable
	if available {
		if req.StartTime == "" || req.EndTime == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "available exceptions require start and end times")
		}
		if err := validateClockWindow(req.StartTime, req.EndTime); err != nil {
			return nil, err
		}
	}

	exc := &models.AvailabilityException{
		UserID:      userID,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: available,
	}
	if err := s.repo.CreateException(ctx, exc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability exception")
	}
	return exc, nil
}

// DeleteException removes an owned date override.
func (s *AvailabilityService) DeleteException(ctx context.Context, userID, id string) error {
	exc, err := s.repo.FindExceptionByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exception")
	}
	if exc.UserID != userID {
		return appErrors.Clone(appErrors.ErrNotFound, "availability exception not found")
	}
	if err := s.repo.DeleteException(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability exception")
	}
	return nil
}

func (s *AvailabilityService) findOwnedRule(ctx context.Context, userID, id string) (*models.AvailabilityRule, error) {
	rule, err := s.repo.FindRuleByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rule")
	}
	if rule.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
	}
	return rule, nil
}

func validateClockWindow(start, end string) error {
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "start time must be HH:MM")
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be HH:MM")
	}
	if !endAt.After(startAt) {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time on the same day")
	}
	return nil
}
