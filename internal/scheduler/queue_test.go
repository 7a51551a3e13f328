package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/studyflow-api/internal/models"
)

func TestBuildQueueOrdersByDeadlinePriorityID(t *testing.T) {
	asOf := weekStart
	due := asOf.AddDate(0, 0, 3)

	tasks := []models.Task{
		{ID: "c", Status: models.TaskStatusPending, Priority: models.PriorityLow, DueAt: due, RemainingMinutes: 30},
		{ID: "a", Status: models.TaskStatusPending, Priority: models.PriorityLow, DueAt: due, RemainingMinutes: 30},
		{ID: "b", Status: models.TaskStatusPending, Priority: models.PriorityUrgent, DueAt: due, RemainingMinutes: 30},
		{ID: "d", Status: models.TaskStatusScheduled, Priority: models.PriorityLow, DueAt: asOf.AddDate(0, 0, 1), RemainingMinutes: 30},
	}

	queue := BuildQueue(tasks, asOf)
	require.Len(t, queue, 4)
	assert.Equal(t, "d", queue[0].TaskID)
	assert.Equal(t, "b", queue[1].TaskID)
	assert.Equal(t, "a", queue[2].TaskID)
	assert.Equal(t, "c", queue[3].TaskID)
}

func TestBuildQueueFiltersUnschedulableTasks(t *testing.T) {
	asOf := weekStart

	tasks := []models.Task{
		{ID: "done", Status: models.TaskStatusCompleted, DueAt: asOf.AddDate(0, 0, 1), RemainingMinutes: 0},
		{ID: "past", Status: models.TaskStatusPending, DueAt: asOf.Add(-time.Hour), RemainingMinutes: 60},
		{ID: "empty", Status: models.TaskStatusPending, DueAt: asOf.AddDate(0, 0, 1), RemainingMinutes: 0},
		{ID: "live", Status: models.TaskStatusPending, DueAt: asOf.AddDate(0, 0, 1), RemainingMinutes: 60},
	}

	queue := BuildQueue(tasks, asOf)
	require.Len(t, queue, 1)
	assert.Equal(t, "live", queue[0].TaskID)
}

func TestBuildQueueRoundsUpToFiveMinutes(t *testing.T) {
	tasks := []models.Task{
		{ID: "t1", Status: models.TaskStatusPending, DueAt: weekStart.AddDate(0, 0, 1), RemainingMinutes: 47},
		{ID: "t2", Status: models.TaskStatusPending, DueAt: weekStart.AddDate(0, 0, 1), RemainingMinutes: 45},
		{ID: "t3", Status: models.TaskStatusPending, DueAt: weekStart.AddDate(0, 0, 1), RemainingMinutes: 1},
	}

	queue := BuildQueue(tasks, weekStart)
	require.Len(t, queue, 3)
	byID := map[string]int{}
	for _, demand := range queue {
		byID[demand.TaskID] = demand.RequiredMinutes
	}
	assert.Equal(t, 50, byID["t1"])
	assert.Equal(t, 45, byID["t2"])
	assert.Equal(t, 5, byID["t3"])
}
