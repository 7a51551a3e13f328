package models

import "time"

// Course groups tasks under a subject of study.
type Course struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	StartDate   *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	ExamDate    *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
