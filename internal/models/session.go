package models

import "time"

// SessionStatus is the lifecycle state of a study session.
type SessionStatus string

const (
	SessionStatusPlanned    SessionStatus = "planned"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusSkipped    SessionStatus = "skipped"
)

// StudySession is a concrete block of planned study time for one task.
// For a given user no two sessions in {planned, in_progress} overlap.
type StudySession struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"user_id"`
	CourseID       string        `db:"course_id" json:"course_id"`
	TaskID         string        `db:"task_id" json:"task_id"`
	StartTime      time.Time     `db:"start_time" json:"start_time"`
	EndTime        time.Time     `db:"end_time" json:"end_time"`
	PlannedMinutes int           `db:"planned_minutes" json:"planned_minutes"`
	ActualMinutes  int           `db:"actual_minutes" json:"actual_minutes"`
	Status         SessionStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// Active reports whether the session still occupies calendar time.
func (s *StudySession) Active() bool {
	return s.Status == SessionStatusPlanned || s.Status == SessionStatusInProgress
}
