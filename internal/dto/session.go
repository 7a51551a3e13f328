package dto

// CompleteSessionRequest closes a session. ActualMinutes defaults to the
// planned length when omitted.
type CompleteSessionRequest struct {
	ActualMinutes *int `json:"actualMinutes" validate:"omitempty,min=1,max=1440"`
}

// SessionListQuery bounds the session list by time range and status.
type SessionListQuery struct {
	From   string `form:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
	Status string `form:"status" json:"status" validate:"omitempty,oneof=planned in_progress completed skipped"`
}
