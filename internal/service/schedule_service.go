package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/studyflow/studyflow-api/internal/dto"
	"github.com/studyflow/studyflow-api/internal/models"
	"github.com/studyflow/studyflow-api/internal/scheduler"
	"github.com/studyflow/studyflow-api/pkg/config"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
)

type scheduleTaskRepository interface {
	ListSchedulable(ctx context.Context, userID string, after time.Time) ([]models.Task, error)
	UpdateStatusBatchWithTx(ctx context.Context, tx *sqlx.Tx, ids []string, status models.TaskStatus) error
}

type scheduleSessionRepository interface {
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error)
	ListFrozenFrom(ctx context.Context, userID string, from time.Time) ([]models.StudySession, error)
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	DeletePlannedFromWithTx(ctx context.Context, tx *sqlx.Tx, userID string, from time.Time) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, sessions []models.StudySession) error
}

type scheduleAvailabilityRepository interface {
	ListRules(ctx context.Context, userID string) ([]models.AvailabilityRule, error)
	ListExceptions(ctx context.Context, userID string, from, to time.Time) ([]models.AvailabilityException, error)
}

type scheduleUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string)
}

type scheduleMetrics interface {
	ObserveGeneration(duration time.Duration, planned int)
}

// ScheduleService turns availability and open tasks into concrete study
// sessions. Generation is deterministic for a fixed input state.
type ScheduleService struct {
	tasks        scheduleTaskRepository
	sessions     scheduleSessionRepository
	availability scheduleAvailabilityRepository
	users        scheduleUserRepository
	cache        scheduleCache
	metrics      scheduleMetrics
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          config.SchedulerConfig
	weekTTL      time.Duration
	now          func() time.Time
}

// NewScheduleService constructs a ScheduleService. Cache and metrics may be
// nil.
func NewScheduleService(
	tasks scheduleTaskRepository,
	sessions scheduleSessionRepository,
	availability scheduleAvailabilityRepository,
	users scheduleUserRepository,
	cache scheduleCache,
	metrics scheduleMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.SchedulerConfig,
	weekTTL time.Duration,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{
		tasks:        tasks,
		sessions:     sessions,
		availability: availability,
		users:        users,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		weekTTL:      weekTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Generate plans study sessions over the horizon, replacing any planned
// sessions in that window. Completed, skipped and started sessions keep
// their calendar time.
func (s *ScheduleService) Generate(ctx context.Context, userID string, req dto.GenerateScheduleRequest) (*dto.ScheduleRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}

	from := s.now()
	if req.From != nil {
		from = req.From.UTC()
	}
	horizonDays := s.cfg.HorizonDays
	if req.HorizonDays > 0 {
		horizonDays = req.HorizonDays
	}
	to := from.AddDate(0, 0, horizonDays)

	return s.run(ctx, userID, from, to)
}

// Replan rebuilds the future plan after progress or missed sessions. It is
// a generate run anchored at the requested point in time.
func (s *ScheduleService) Replan(ctx context.Context, userID string, req dto.ReplanScheduleRequest) (*dto.ScheduleRunResponse, error) {
	from := s.now()
	if req.From != nil {
		from = req.From.UTC()
	}
	to := from.AddDate(0, 0, s.cfg.HorizonDays)
	return s.run(ctx, userID, from, to)
}

func (s *ScheduleService) run(ctx context.Context, userID string, from, to time.Time) (*dto.ScheduleRunResponse, error) {
	started := s.now()

	if s.cache != nil {
		lockKey := fmt.Sprintf("schedule:lock:%s", userID)
		ok, err := s.cache.AcquireLock(ctx, lockKey, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn("schedule lock unavailable, proceeding unlocked", zap.Error(err))
		} else if !ok {
			return nil, appErrors.Clone(appErrors.ErrScheduleRunning, "a scheduling run is already in progress")
		} else {
			defer s.cache.ReleaseLock(ctx, lockKey)
		}
	}

	rules, err := s.availability.ListRules(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rules")
	}
	if len(rules) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoAvailability, "no availability rules configured")
	}

	exceptions, err := s.availability.ListExceptions(ctx, userID, from.Truncate(24*time.Hour), to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exceptions")
	}

	free, err := scheduler.ResolveAvailability(rules, exceptions, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability configuration")
	}

	frozen, err := s.sessions.ListFrozenFrom(ctx, userID, from)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing sessions")
	}
	busy := make([]scheduler.FreeInterval, 0, len(frozen))
	for _, session := range frozen {
		busy = append(busy, scheduler.FreeInterval{Start: session.StartTime, End: session.EndTime})
	}
	free = scheduler.SubtractBusy(free, busy)

	tasks, err := s.tasks.ListSchedulable(ctx, userID, from)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tasks")
	}
	queue := scheduler.BuildQueue(tasks, from)

	cfg := scheduler.Config{
		MinSessionMinutes: s.cfg.MinSessionMinutes,
		MaxSessionMinutes: s.cfg.MaxSessionMinutes,
		MaxDailyShare:     s.cfg.MaxDailyShare,
	}
	if user, err := s.users.FindByID(ctx, userID); err == nil && user.PreferredSessionLength > 0 {
		cfg.MaxSessionMinutes = user.PreferredSessionLength
		if cfg.MaxSessionMinutes < cfg.MinSessionMinutes {
			cfg.MaxSessionMinutes = cfg.MinSessionMinutes
		}
	}

	chunks, unscheduled, err := scheduler.Allocate(queue, free, cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "allocation failed")
	}
	diagnostics := scheduler.Report(queue, chunks, unscheduled, free, cfg.MinSessionMinutes)

	sessions := make([]models.StudySession, 0, len(chunks))
	totalPlanned := 0
	for _, chunk := range chunks {
		sessions = append(sessions, models.StudySession{
			UserID:         userID,
			CourseID:       chunk.CourseID,
			TaskID:         chunk.TaskID,
			StartTime:      chunk.Start,
			EndTime:        chunk.End,
			PlannedMinutes: chunk.Minutes,
			Status:         models.SessionStatusPlanned,
		})
		totalPlanned += chunk.Minutes
	}

	if err := s.persistPlan(ctx, userID, from, sessions, chunks); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("schedule:week:%s:*", userID)); err != nil {
			s.logger.Warn("failed to invalidate week cache", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(s.now().Sub(started), len(sessions))
	}

	s.logger.Info("schedule generated",
		zap.String("user_id", userID),
		zap.Int("sessions", len(sessions)),
		zap.Int("unscheduled_tasks", len(unscheduled)),
		zap.Time("horizon_start", from),
		zap.Time("horizon_end", to))

	return &dto.ScheduleRunResponse{
		HorizonStart:        from,
		HorizonEnd:          to,
		Sessions:            sessions,
		TotalPlannedMinutes: totalPlanned,
		UnscheduledTaskIDs:  unscheduled,
		Diagnostics:         diagnostics,
	}, nil
}

// persistPlan swaps future planned sessions for the new ones and flips task
// statuses in one transaction.
func (s *ScheduleService) persistPlan(ctx context.Context, userID string, from time.Time, sessions []models.StudySession, chunks []scheduler.Chunk) error {
	tx, err := s.sessions.BeginTx(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin plan transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.sessions.DeletePlannedFromWithTx(ctx, tx, userID, from); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear planned sessions")
	}
	if err := s.sessions.BulkCreateWithTx(ctx, tx, sessions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store sessions")
	}

	scheduledIDs := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		if _, ok := seen[chunk.TaskID]; ok {
			continue
		}
		seen[chunk.TaskID] = struct{}{}
		scheduledIDs = append(scheduledIDs, chunk.TaskID)
	}
	if err := s.tasks.UpdateStatusBatchWithTx(ctx, tx, scheduledIDs, models.TaskStatusScheduled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark tasks scheduled")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit plan")
	}
	committed = true
	return nil
}

// Week returns the calendar view for the week containing the given start
// date, served from cache when fresh.
func (s *ScheduleService) Week(ctx context.Context, userID string, query dto.WeekQuery) (*dto.WeekResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week query")
	}

	anchor := s.now()
	if query.Start != "" {
		parsed, err := time.Parse("2006-01-02", query.Start)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
		}
		anchor = parsed
	}
	weekStart := startOfWeek(anchor)
	weekEnd := weekStart.AddDate(0, 0, 7)

	cacheKey := fmt.Sprintf("schedule:week:%s:%s", userID, weekStart.Format("2006-01-02"))
	if s.cache != nil {
		var cached dto.WeekResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("week cache read failed", zap.Error(err))
		}
	}

	sessions, err := s.sessions.ListByUserRange(ctx, userID, weekStart, weekEnd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sessions = nil
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
		}
	}

	response := &dto.WeekResponse{
		WeekStart: weekStart.Format("2006-01-02"),
		WeekEnd:   weekEnd.AddDate(0, 0, -1).Format("2006-01-02"),
		Days:      make([]dto.WeekDaySummary, 7),
	}
	for i := 0; i < 7; i++ {
		day := weekStart.AddDate(0, 0, i)
		response.Days[i] = dto.WeekDaySummary{
			Date:      day.Format("2006-01-02"),
			DayOfWeek: models.WeekdayOf(day.Weekday()),
			Sessions:  []models.StudySession{},
		}
	}
	for _, session := range sessions {
		index := int(session.StartTime.Sub(weekStart).Hours() / 24)
		if index < 0 || index > 6 {
			continue
		}
		response.Days[index].Sessions = append(response.Days[index].Sessions, session)
		response.Days[index].PlannedMinutes += session.PlannedMinutes
		response.TotalPlannedMinutes += session.PlannedMinutes
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response, s.weekTTL); err != nil {
			s.logger.Warn("week cache write failed", zap.Error(err))
		}
	}
	return response, nil
}

// startOfWeek truncates to the Monday 00:00 UTC of the week containing t.
func startOfWeek(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
