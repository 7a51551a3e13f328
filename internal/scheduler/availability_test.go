package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyflow/studyflow-api/internal/models"
)

// Mon Jan 5 2026 through Sun Jan 11 is a convenient fixed week.
var weekStart = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

func TestResolveAvailabilityExpandsWeeklyRules(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "18:00", EndTime: "19:00"},
		{ID: "r2", DayOfWeek: models.Wednesday, StartTime: "08:00", EndTime: "10:00"},
	}

	intervals, err := ResolveAvailability(rules, nil, weekStart, weekStart.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	assert.Equal(t, weekStart.Add(18*time.Hour), intervals[0].Start)
	assert.Equal(t, weekStart.Add(19*time.Hour), intervals[0].End)
	assert.Equal(t, weekStart.AddDate(0, 0, 2).Add(8*time.Hour), intervals[1].Start)
	assert.Equal(t, 120, intervals[1].Minutes())
}

func TestResolveAvailabilityMergesTouchingWindows(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:30"},
		{ID: "r2", DayOfWeek: models.Monday, StartTime: "10:30", EndTime: "12:00"},
		{ID: "r3", DayOfWeek: models.Monday, StartTime: "11:00", EndTime: "11:30"},
	}

	intervals, err := ResolveAvailability(rules, nil, weekStart, weekStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, 180, intervals[0].Minutes())
}

func TestResolveAvailabilityExceptionReplacesPattern(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "18:00", EndTime: "20:00"},
	}
	exceptions := []models.AvailabilityException{
		{ID: "e1", Date: weekStart, StartTime: "07:00", EndTime: "08:00", IsAvailable: true},
	}

	intervals, err := ResolveAvailability(rules, exceptions, weekStart, weekStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, weekStart.Add(7*time.Hour), intervals[0].Start)
	assert.Equal(t, 60, intervals[0].Minutes())
}

func TestResolveAvailabilityBlockingExceptionEmptiesDay(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "18:00", EndTime: "20:00"},
	}
	exceptions := []models.AvailabilityException{
		{ID: "e1", Date: weekStart, IsAvailable: false},
	}

	intervals, err := ResolveAvailability(rules, exceptions, weekStart, weekStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, intervals)
}

func TestResolveAvailabilityRejectsMidnightCrossing(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "22:00", EndTime: "02:00"},
	}

	_, err := ResolveAvailability(rules, nil, weekStart, weekStart.AddDate(0, 0, 1))
	require.Error(t, err)
}

func TestResolveAvailabilityDropsZeroLengthWindows(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "09:00"},
	}

	intervals, err := ResolveAvailability(rules, nil, weekStart, weekStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, intervals)
}

func TestResolveAvailabilityClampsToHorizon(t *testing.T) {
	rules := []models.AvailabilityRule{
		{ID: "r1", DayOfWeek: models.Monday, StartTime: "18:00", EndTime: "20:00"},
	}
	asOf := weekStart.Add(18*time.Hour + 30*time.Minute)

	intervals, err := ResolveAvailability(rules, nil, asOf, weekStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, intervals, 1)
	assert.Equal(t, asOf, intervals[0].Start)
	assert.Equal(t, 90, intervals[0].Minutes())
}

func TestSubtractBusyCarvesOutSessions(t *testing.T) {
	free := []FreeInterval{
		{Start: weekStart.Add(18 * time.Hour), End: weekStart.Add(20 * time.Hour)},
	}
	busy := []FreeInterval{
		{Start: weekStart.Add(18*time.Hour + 30*time.Minute), End: weekStart.Add(19 * time.Hour)},
	}

	remaining := SubtractBusy(free, busy)
	require.Len(t, remaining, 2)
	assert.Equal(t, 30, remaining[0].Minutes())
	assert.Equal(t, 60, remaining[1].Minutes())
}

func TestSubtractBusyDropsFullyCoveredIntervals(t *testing.T) {
	free := []FreeInterval{
		{Start: weekStart.Add(18 * time.Hour), End: weekStart.Add(19 * time.Hour)},
	}
	busy := []FreeInterval{
		{Start: weekStart.Add(17 * time.Hour), End: weekStart.Add(20 * time.Hour)},
	}

	assert.Empty(t, SubtractBusy(free, busy))
}
