package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/studyflow/studyflow-api/internal/dto"
	"github.com/studyflow/studyflow-api/internal/models"
	appErrors "github.com/studyflow/studyflow-api/pkg/errors"
	"github.com/studyflow/studyflow-api/pkg/export"
)

type exportSessionRepository interface {
	ListByUserRange(ctx context.Context, userID string, from, to time.Time) ([]models.StudySession, error)
}

type exportTaskRepository interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
}

// ExportService renders the study plan as CSV or PDF.
type ExportService struct {
	sessions  exportSessionRepository
	tasks     exportTaskRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(sessions exportSessionRepository, tasks exportTaskRepository, validate *validator.Validate, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExportService{
		sessions:  sessions,
		tasks:     tasks,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ExportResult carries rendered bytes with transport metadata.
type ExportResult struct {
	ContentType string
	Filename    string
	Data        []byte
}

// Schedule renders the user's sessions in the requested range. Format
// defaults to CSV; an empty range defaults to the coming two weeks.
func (s *ExportService) Schedule(ctx context.Context, userID string, query dto.ExportScheduleQuery) (*ExportResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if query.Start != "" {
		parsed, err := time.Parse("2006-01-02", query.Start)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
		}
		from = parsed
	}
	to := from.AddDate(0, 0, 14)
	if query.End != "" {
		parsed, err := time.Parse("2006-01-02", query.End)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date")
		}
		to = parsed
	}
	if !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}

	sessions, err := s.sessions.ListByUserRange(ctx, userID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Start", "End", "Task", "Minutes", "Status"},
		Rows:    make([]map[string]string, 0, len(sessions)),
	}
	titles := make(map[string]string)
	for _, session := range sessions {
		title, ok := titles[session.TaskID]
		if !ok {
			title = session.TaskID
			if task, err := s.tasks.FindByID(ctx, session.TaskID); err == nil {
				title = task.Title
			}
			titles[session.TaskID] = title
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":    session.StartTime.Format("2006-01-02"),
			"Start":   session.StartTime.Format("15:04"),
			"End":     session.EndTime.Format("15:04"),
			"Task":    title,
			"Minutes": fmt.Sprintf("%d", session.PlannedMinutes),
			"Status":  string(session.Status),
		})
	}

	stamp := from.Format("2006-01-02")
	if query.Format == "pdf" {
		data, err := s.pdf.Render(dataset, fmt.Sprintf("Study Plan %s", stamp))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("study-plan-%s.pdf", stamp),
			Data:        data,
		}, nil
	}

	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &ExportResult{
		ContentType: "text/csv",
		Filename:    fmt.Sprintf("study-plan-%s.csv", stamp),
		Data:        data,
	}, nil
}
