package dto

// RejoinRequest represents a rejoin trigger
type RejoinRequest struct {
	GuildID string `form:"guild_id" binding:"required,snowflake"`
	Notify  bool   `form:"notify"`
}

// RunRequest addresses a single rejoin run
type RunRequest struct {
	RunID string `uri:"run_id" binding:"required,uuid"`
}

// SummaryResponse represents the outcome counts of a rejoin run
type SummaryResponse struct {
	RunID   string `json:"run_id"`
	GuildID string `json:"guild_id"`
	OK      int    `json:"ok"`
	Already int    `json:"already"`
	Fail    int    `json:"fail"`
	Total   int    `json:"total"`
}

// JoinAttemptResponse represents one audit row
type JoinAttemptResponse struct {
	UserID    string  `json:"user_id"`
	Status    string  `json:"status"`
	Error     *string `json:"error,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// RunResponse represents the audit rows of a run
type RunResponse struct {
	RunID    string                `json:"run_id"`
	GuildID  string                `json:"guild_id"`
	Attempts []JoinAttemptResponse `json:"attempts"`
}

// AuthorizedResponse is returned after a successful authorization
type AuthorizedResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
