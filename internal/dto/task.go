package dto

import "time"

// CreateTaskRequest creates a task under a course.
type CreateTaskRequest struct {
	CourseID         string    `json:"courseId" validate:"required,uuid4"`
	Title            string    `json:"title" validate:"required,max=200"`
	Description      string    `json:"description" validate:"max=2000"`
	DueAt            time.Time `json:"dueAt" validate:"required"`
	Priority         string    `json:"priority" validate:"required,oneof=low medium high urgent"`
	Difficulty       string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	EstimatedMinutes int       `json:"estimatedMinutes" validate:"required,min=5,max=6000"`
}

// UpdateTaskRequest applies partial changes to a task. Nil fields stay as
// they are.
type UpdateTaskRequest struct {
	Title            *string    `json:"title" validate:"omitempty,max=200"`
	Description      *string    `json:"description" validate:"omitempty,max=2000"`
	DueAt            *time.Time `json:"dueAt"`
	Priority         *string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Difficulty       *string    `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	EstimatedMinutes *int       `json:"estimatedMinutes" validate:"omitempty,min=5,max=6000"`
}

// TaskListQuery filters and paginates the task list.
type TaskListQuery struct {
	CourseID  string `form:"courseId" json:"courseId"`
	Status    string `form:"status" json:"status" validate:"omitempty,oneof=pending scheduled in_progress completed overdue"`
	Priority  string `form:"priority" json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DueBefore string `form:"dueBefore" json:"dueBefore" validate:"omitempty,datetime=2006-01-02"`
	SortBy    string `form:"sortBy" json:"sortBy" validate:"omitempty,oneof=due_at priority created_at"`
	SortOrder string `form:"sortOrder" json:"sortOrder" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page      int    `form:"page" json:"page"`
	PageSize  int    `form:"pageSize" json:"pageSize"`
}
