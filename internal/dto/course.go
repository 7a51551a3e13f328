package dto

import "time"

// CreateCourseRequest creates a course for the current user.
type CreateCourseRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	ExamDate    *time.Time `json:"examDate"`
}

// UpdateCourseRequest applies partial changes to a course.
type UpdateCourseRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	ExamDate    *time.Time `json:"examDate"`
}
