package domain

import "time"

// Outcome is the terminal state of one user within a reconciliation run.
type Outcome string

const (
	OutcomeJoined        Outcome = "joined"
	OutcomeAlreadyMember Outcome = "already"
	OutcomeFailed        Outcome = "failed"
)

// MembershipStatus is the successful result of an add-member call.
type MembershipStatus int

const (
	MembershipAdded MembershipStatus = iota + 1
	MembershipAlreadyMember
)

// Outcome maps a membership status to the audit outcome.
func (s MembershipStatus) Outcome() Outcome {
	if s == MembershipAlreadyMember {
		return OutcomeAlreadyMember
	}
	return OutcomeJoined
}

// JoinAttempt is one append-only audit row written per user per run.
type JoinAttempt struct {
	ID        int64     `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	GuildID   string    `json:"guild_id" db:"guild_id"`
	Outcome   Outcome   `json:"status" db:"status"`
	ErrorText *string   `json:"error_text,omitempty" db:"error_text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Summary aggregates the outcomes of a reconciliation run.
// Total always equals OK + Already + Fail.
type Summary struct {
	RunID   string `json:"run_id"`
	GuildID string `json:"guild_id"`
	OK      int    `json:"ok"`
	Already int    `json:"already"`
	Fail    int    `json:"fail"`
	Total   int    `json:"total"`
}

// Add counts one outcome.
func (s *Summary) Add(outcome Outcome) {
	switch outcome {
	case OutcomeJoined:
		s.OK++
	case OutcomeAlreadyMember:
		s.Already++
	default:
		s.Fail++
	}
	s.Total++
}
