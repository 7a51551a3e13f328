package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/studyflow-api/internal/models"
)

func TestReportPartiallyScheduled(t *testing.T) {
	due := weekStart.AddDate(0, 0, 2).Add(23*time.Hour + 59*time.Minute)
	queue := []Demand{
		{TaskID: "t1", CourseID: "c1", DueAt: due, Priority: models.PriorityMedium, RequiredMinutes: 120},
	}
	intervals := eveningSlots(2)

	chunks, unscheduled, err := Allocate(queue, intervals, defaultConfig())
	require.NoError(t, err)

	diagnostics := Report(queue, chunks, unscheduled, intervals, 15)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, DiagnosticPartiallyScheduled, diagnostics[0].Kind)
	assert.Equal(t, 60, diagnostics[0].MinutesPlaced)
	assert.Equal(t, 120, diagnostics[0].MinutesRequired)
}

func TestReportDeadlineTooSoon(t *testing.T) {
	due := weekStart.Add(8 * time.Hour)
	queue := []Demand{
		{TaskID: "t1", CourseID: "c1", DueAt: due, Priority: models.PriorityMedium, RequiredMinutes: 120},
	}
	intervals := eveningSlots(0)

	chunks, unscheduled, err := Allocate(queue, intervals, defaultConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)

	diagnostics := Report(queue, chunks, unscheduled, intervals, 15)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, DiagnosticInfeasible, diagnostics[0].Kind)
	assert.Equal(t, ReasonDeadlineTooSoon, diagnostics[0].Reason)
}

func TestReportInsufficientAvailability(t *testing.T) {
	// Deadline is fine, there is just no free time at all.
	due := weekStart.AddDate(0, 0, 3)
	queue := []Demand{
		{TaskID: "t1", CourseID: "c1", DueAt: due, Priority: models.PriorityMedium, RequiredMinutes: 60},
	}

	chunks, unscheduled, err := Allocate(queue, nil, defaultConfig())
	require.NoError(t, err)
	assert.Empty(t, chunks)

	diagnostics := Report(queue, chunks, unscheduled, nil, 15)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, DiagnosticInfeasible, diagnostics[0].Kind)
	assert.Equal(t, ReasonInsufficientAvailability, diagnostics[0].Reason)
}

func TestReportEmptyWhenEverythingScheduled(t *testing.T) {
	due := weekStart.AddDate(0, 0, 3)
	queue := []Demand{
		{TaskID: "t1", CourseID: "c1", DueAt: due, Priority: models.PriorityMedium, RequiredMinutes: 60},
	}
	intervals := eveningSlots(0)

	chunks, unscheduled, err := Allocate(queue, intervals, defaultConfig())
	require.NoError(t, err)
	require.Empty(t, unscheduled)

	assert.Nil(t, Report(queue, chunks, unscheduled, intervals, 15))
}

func TestReportIsDeterministic(t *testing.T) {
	due := weekStart.AddDate(0, 0, 2)
	queue := []Demand{
		{TaskID: "t1", CourseID: "c1", DueAt: due, Priority: models.PriorityMedium, RequiredMinutes: 240},
		{TaskID: "t2", CourseID: "c1", DueAt: due, Priority: models.PriorityLow, RequiredMinutes: 240},
	}
	intervals := eveningSlots(0, 1)

	chunks, unscheduled, err := Allocate(queue, intervals, defaultConfig())
	require.NoError(t, err)

	first := Report(queue, chunks, unscheduled, intervals, 15)
	second := Report(queue, chunks, unscheduled, intervals, 15)
	assert.Equal(t, first, second)
}
