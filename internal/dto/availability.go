package dto

// CreateAvailabilityRuleRequest adds a recurring weekly study window.
type CreateAvailabilityRuleRequest struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
}

// UpdateAvailabilityRuleRequest modifies an existing weekly window.
type UpdateAvailabilityRuleRequest struct {
	DayOfWeek *string `json:"dayOfWeek" validate:"omitempty,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime *string `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"endTime" validate:"omitempty,datetime=15:04"`
}

// CreateAvailabilityExceptionRequest overrides availability on one date.
// When IsAvailable is false the times are ignored and the date is blocked.
type CreateAvailabilityExceptionRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime     string `json:"endTime" validate:"omitempty,datetime=15:04"`
	IsAvailable *bool  `json:"isAvailable" validate:"required"`
}

// AvailabilityExceptionQuery bounds the exception list by date.
type AvailabilityExceptionQuery struct {
	From string `form:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}
