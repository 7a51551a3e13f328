package models

import "time"

// UserRole distinguishes regular students from administrators.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// User represents an application user stored in the users table.
type User struct {
	ID                      string    `db:"id" json:"id"`
	Email                   string    `db:"email" json:"email"`
	PasswordHash            string    `db:"password_hash" json:"-"`
	FullName                string    `db:"full_name" json:"full_name"`
	Timezone                string    `db:"timezone" json:"timezone"`
	WeeklyHoursGoal         int       `db:"weekly_hours_goal" json:"weekly_hours_goal"`
	PreferredSessionLength  int       `db:"preferred_session_length" json:"preferred_session_length"`
	BreakPreferenceMinutes  int       `db:"break_preference" json:"break_preference"`
	Role                    UserRole  `db:"role" json:"role"`
	Active                  bool      `db:"active" json:"active"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
