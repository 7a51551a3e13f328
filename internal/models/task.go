package models

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusScheduled  TaskStatus = "scheduled"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusOverdue    TaskStatus = "overdue"
)

// TaskPriority is a closed enum with a total order used by the scheduler's
// tie-break key. Lower rank sorts first.
type TaskPriority string

const (
	PriorityUrgent TaskPriority = "urgent"
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

var priorityRanks = map[TaskPriority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// Rank returns the scheduling rank for the priority. Unknown values sort last.
func (p TaskPriority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return len(priorityRanks)
}

// Valid reports whether the priority is a known value.
func (p TaskPriority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// TaskDifficulty grades how demanding a task is.
type TaskDifficulty string

const (
	DifficultyEasy   TaskDifficulty = "easy"
	DifficultyMedium TaskDifficulty = "medium"
	DifficultyHard   TaskDifficulty = "hard"
)

// Task is a unit of study work with a deadline and an effort estimate.
// RemainingMinutes starts at EstimatedMinutes and shrinks as sessions
// complete; it never goes below zero, and a completed task has zero left.
type Task struct {
	ID               string         `db:"id" json:"id"`
	UserID           string         `db:"user_id" json:"user_id"`
	CourseID         string         `db:"course_id" json:"course_id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	DueAt            time.Time      `db:"due_at" json:"due_at"`
	Priority         TaskPriority   `db:"priority" json:"priority"`
	Difficulty       TaskDifficulty `db:"difficulty" json:"difficulty"`
	EstimatedMinutes int            `db:"estimated_minutes" json:"estimated_minutes"`
	RemainingMinutes int            `db:"remaining_minutes" json:"remaining_minutes"`
	Status           TaskStatus     `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Schedulable reports whether the task can still receive study sessions.
func (t *Task) Schedulable() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusScheduled
}
