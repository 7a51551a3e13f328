package scheduler

import (
	"sort"
	"time"

	"github.com/studyflow/studyflow-api/internal/models"
)

// BuildQueue selects schedulable tasks and orders them earliest-deadline
// first, breaking ties on priority rank then task id. Earliest-deadline-first
// is optimal for feasibility under single-resource scheduling with
// preemption; the tie-breaks make the result reproducible.
func BuildQueue(tasks []models.Task, asOf time.Time) []Demand {
	queue := make([]Demand, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		if !task.Schedulable() {
			continue
		}
		if !task.DueAt.After(asOf) {
			continue
		}
		if task.RemainingMinutes <= 0 {
			continue
		}
		queue = append(queue, Demand{
			TaskID:          task.ID,
			CourseID:        task.CourseID,
			DueAt:           task.DueAt,
			Priority:        task.Priority,
			RequiredMinutes: roundUpToFive(task.RemainingMinutes),
		})
	}

	sort.Slice(queue, func(i, j int) bool {
		if !queue[i].DueAt.Equal(queue[j].DueAt) {
			return queue[i].DueAt.Before(queue[j].DueAt)
		}
		if queue[i].Priority.Rank() != queue[j].Priority.Rank() {
			return queue[i].Priority.Rank() < queue[j].Priority.Rank()
		}
		return queue[i].TaskID < queue[j].TaskID
	})

	return queue
}

// roundUpToFive pads tiny remainders up to a usable slot size.
func roundUpToFive(minutes int) int {
	if rem := minutes % 5; rem != 0 {
		return minutes + 5 - rem
	}
	return minutes
}
