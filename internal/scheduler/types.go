// Package scheduler contains the pure scheduling core: availability
// resolution, demand ordering, slot allocation and feasibility reporting.
// Everything here is a deterministic function of its inputs; no clock, no
// I/O, no map-order dependence. Services feed it data and persist the result.
package scheduler

import (
	"time"

	"github.com/studyflow/studyflow-api/internal/models"
)

// FreeInterval is a concrete half-open [Start, End) block of free time on a
// single day, resolved from availability rules. Ephemeral: computed per run.
type FreeInterval struct {
	Start time.Time
	End   time.Time
}

// Minutes returns the interval length in whole minutes.
func (f FreeInterval) Minutes() int {
	return int(f.End.Sub(f.Start) / time.Minute)
}

func minuteDuration(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}

// Demand is one task's scheduling requirement, ordered by urgency.
type Demand struct {
	TaskID          string
	CourseID        string
	DueAt           time.Time
	Priority        models.TaskPriority
	RequiredMinutes int
}

// Chunk is a contiguous piece of a task's required time placed into a free
// interval. Chunks become StudySession rows once the run is persisted.
type Chunk struct {
	TaskID   string
	CourseID string
	Start    time.Time
	End      time.Time
	Minutes  int
}

// Config bounds session lengths and same-day fairness.
type Config struct {
	// MinSessionMinutes is the shortest chunk worth sitting down for.
	MinSessionMinutes int
	// MaxSessionMinutes caps continuous focus time; longer free blocks are
	// split into back-to-back sessions.
	MaxSessionMinutes int
	// MaxDailyShare limits the fraction of one day's free minutes a single
	// task may consume while other tasks still have unplaced demand.
	// Values <= 0 or >= 1 disable the cap.
	MaxDailyShare float64
}

// DiagnosticKind classifies scheduling shortfalls.
type DiagnosticKind string

const (
	DiagnosticInfeasible         DiagnosticKind = "infeasible"
	DiagnosticPartiallyScheduled DiagnosticKind = "partially_scheduled"
)

// InfeasibleReason explains why nothing could be placed for a task.
type InfeasibleReason string

const (
	ReasonDeadlineTooSoon          InfeasibleReason = "deadline_too_soon"
	ReasonInsufficientAvailability InfeasibleReason = "insufficient_availability"
)

// Diagnostic describes a task the allocator could not fully satisfy.
// Diagnostics are data, not errors: a run that produces them still returns
// every session that could be planned.
type Diagnostic struct {
	TaskID          string           `json:"task_id"`
	Kind            DiagnosticKind   `json:"kind"`
	Reason          InfeasibleReason `json:"reason,omitempty"`
	MinutesPlaced   int              `json:"minutes_placed"`
	MinutesRequired int              `json:"minutes_required"`
}
