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

type fakeAvailabilityRepo struct {
	rules      map[string]*models.AvailabilityRule
	exceptions map[string]*models.AvailabilityException
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{
		rules:      make(map[string]*models.AvailabilityRule),
		exceptions: make(map[string]*models.AvailabilityException),
	}
}

func (f *fakeAvailabilityRepo) ListRules(ctx context.Context, userID string) ([]models.AvailabilityRule, error) {
	var out []models.AvailabilityRule
	for _, rule := range f.rules {
		if rule.UserID == userID {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) FindRuleByID(ctx context.Context, id string) (*models.AvailabilityRule, error) {
	if rule, ok := f.rules[id]; ok {
		copied := *rule
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAvailabilityRepo) CreateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	if rule.ID == "" {
		rule.ID = "rule-new"
	}
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeAvailabilityRepo) UpdateRule(ctx context.Context, rule *models.AvailabilityRule) error {
	f.rules[rule.ID] = rule
	return nil
}

func (f *fakeAvailabilityRepo) DeleteRule(ctx context.Context, id string) error {
	delete(f.rules, id)
	return nil
}

func (f *fakeAvailabilityRepo) ListExceptions(ctx context.Context, userID string, from, to time.Time) ([]models.AvailabilityException, error) {
	var out []models.AvailabilityException
	for _, exc := range f.exceptions {
		if exc.UserID == userID && !exc.Date.Before(from) && exc.Date.Before(to) {
			out = append(out, *exc)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) FindExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error) {
	if exc, ok := f.exceptions[id]; ok {
		copied := *exc
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAvailabilityRepo) CreateException(ctx context.Context, exc *models.AvailabilityException) error {
	if exc.ID == "" {
		exc.ID = "exc-new"
	}
	f.exceptions[exc.ID] = exc
	return nil
}

func (f *fakeAvailabilityRepo) DeleteException(ctx context.Context, id string) error {
	delete(f.exceptions, id)
	return nil
}

func newAvailabilityService() (*fakeAvailabilityRepo, *AvailabilityService) {
	repo := newFakeAvailabilityRepo()
	return repo, NewAvailabilityService(repo, validator.New(), zap.NewNop())
}

func TestAvailabilityServiceCreateRule(t *testing.T) {
	repo, svc := newAvailabilityService()

	rule, err := svc.CreateRule(context.Background(), "user-1", dto.CreateAvailabilityRuleRequest{
		DayOfWeek: "monday",
		StartTime: "18:00",
		EndTime:   "20:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Monday, rule.DayOfWeek)
	assert.Contains(t, repo.rules, rule.ID)
}

func TestAvailabilityServiceRejectsInvertedWindow(t *testing.T) {
	_, svc := newAvailabilityService()

	_, err := svc.CreateRule(context.Background(), "user-1", dto.CreateAvailabilityRuleRequest{
		DayOfWeek: "monday",
		StartTime: "20:00",
		EndTime:   "18:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceRejectsMidnightCrossing(t *testing.T) {
	_, svc := newAvailabilityService()

	_, err := svc.CreateRule(context.Background(), "user-1", dto.CreateAvailabilityRuleRequest{
		DayOfWeek: "friday",
		StartTime: "22:00",
		EndTime:   "22:00",
	})
	require.Error(t, err)
}

func TestAvailabilityServiceBlockingExceptionNeedsNoTimes(t *testing.T) {
	repo, svc := newAvailabilityService()

	blocked := false
	exc, err := svc.CreateException(context.Background(), "user-1", dto.CreateAvailabilityExceptionRequest{
		Date:        "2026-01-07",
		IsAvailable: &blocked,
	})
	require.NoError(t, err)
	assert.False(t, exc.IsAvailable)
	assert.Contains(t, repo.exceptions, exc.ID)
}

func TestAvailabilityServiceAvailableExceptionRequiresWindow(t *testing.T) {
	_, svc := newAvailabilityService()

	available := true
	_, err := svc.CreateException(context.Background(), "user-1", dto.CreateAvailabilityExceptionRequest{
		Date:        "2026-01-07",
		IsAvailable: &available,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceDeleteRuleEnforcesOwnership(t *testing.T) {
	repo, svc := newAvailabilityService()
	repo.rules["r1"] = &models.AvailabilityRule{ID: "r1", UserID: "user-1", DayOfWeek: models.Monday, StartTime: "18:00", EndTime: "19:00"}

	err := svc.DeleteRule(context.Background(), "someone-else", "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.DeleteRule(context.Background(), "user-1", "r1"))
	assert.NotContains(t, repo.rules, "r1")
}
