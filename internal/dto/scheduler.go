package dto

import (
	"time"

	"github.com/studyflow/studyflow-api/internal/models"
	"github.com/studyflow/studyflow-api/internal/scheduler"
)

// GenerateScheduleRequest asks the planner to build sessions over a horizon.
// An omitted horizon falls back to the configured default.
type GenerateScheduleRequest struct {
	HorizonDays int        `json:"horizonDays" validate:"omitempty,min=1,max=90"`
	From        *time.Time `json:"from" validate:"omitempty"`
}

// ReplanScheduleRequest rebuilds the plan from a point in time, keeping
// everything already completed, skipped or in progress.
type ReplanScheduleRequest struct {
	From *time.Time `json:"from" validate:"omitempty"`
}

// ScheduleRunResponse returns the outcome of a generate or replan run.
type ScheduleRunResponse struct {
	HorizonStart       time.Time              `json:"horizonStart"`
	HorizonEnd         time.Time              `json:"horizonEnd"`
	Sessions           []models.StudySession  `json:"sessions"`
	TotalPlannedMinutes int                   `json:"totalPlannedMinutes"`
	UnscheduledTaskIDs []string               `json:"unscheduledTaskIds"`
	Diagnostics        []scheduler.Diagnostic `json:"diagnostics,omitempty"`
}

// WeekQuery selects the week to display. Start must be "2006-01-02"; an
// empty value means the current week.
type WeekQuery struct {
	Start string `form:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
}

// WeekDaySummary groups one day's sessions with its total load.
type WeekDaySummary struct {
	Date           string                `json:"date"`
	DayOfWeek      models.Weekday        `json:"dayOfWeek"`
	Sessions       []models.StudySession `json:"sessions"`
	PlannedMinutes int                   `json:"plannedMinutes"`
}

// WeekResponse is the calendar view for a single week.
type WeekResponse struct {
	WeekStart           string           `json:"weekStart"`
	WeekEnd             string           `json:"weekEnd"`
	Days                []WeekDaySummary `json:"days"`
	TotalPlannedMinutes int              `json:"totalPlannedMinutes"`
}

// ExportScheduleQuery selects the export format and range.
type ExportScheduleQuery struct {
	Format string `form:"format" json:"format" validate:"omitempty,oneof=csv pdf"`
	Start  string `form:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `form:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
}
