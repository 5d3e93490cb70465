package dto

import (
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// NewSummaryResponse converts a run summary
func NewSummaryResponse(s *domain.Summary) SummaryResponse {
	return SummaryResponse{
		RunID:   s.RunID,
		GuildID: s.GuildID,
		OK:      s.OK,
		Already: s.Already,
		Fail:    s.Fail,
		Total:   s.Total,
	}
}

// NewRunResponse converts the audit rows of one run
func NewRunResponse(runID string, attempts []*domain.JoinAttempt) RunResponse {
	resp := RunResponse{
		RunID:    runID,
		Attempts: make([]JoinAttemptResponse, 0, len(attempts)),
	}

	for _, a := range attempts {
		resp.GuildID = a.GuildID
		resp.Attempts = append(resp.Attempts, JoinAttemptResponse{
			UserID:    a.UserID,
			Status:    string(a.Outcome),
			Error:     a.ErrorText,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
		})
	}

	return resp
}
