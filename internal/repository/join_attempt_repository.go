package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// joinAttemptRepository implements JoinAttemptRepository interface
type joinAttemptRepository struct {
	db dbtx
}

// NewJoinAttemptRepository creates a new join attempt repository
func NewJoinAttemptRepository(db dbtx) JoinAttemptRepository {
	return &joinAttemptRepository{db: db}
}

// Create appends an audit row. Rows are never updated afterwards.
func (r *joinAttemptRepository) Create(ctx context.Context, attempt *domain.JoinAttempt) error {
	query := `
		INSERT INTO guild_join_logs (run_id, user_id, guild_id, status, error_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = attempt.CreatedAt
	}

	err := r.db.QueryRowContext(ctx, query,
		attempt.RunID,
		attempt.UserID,
		attempt.GuildID,
		string(attempt.Outcome),
		attempt.ErrorText,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	).Scan(&attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to create join attempt for user %s: %w", attempt.UserID, err)
	}

	return nil
}

// ListByRunID returns the audit rows written by one run in insertion order
func (r *joinAttemptRepository) ListByRunID(ctx context.Context, runID string) ([]*domain.JoinAttempt, error) {
	query := `
		SELECT id, run_id, user_id, guild_id, status, error_text, created_at, updated_at
		FROM guild_join_logs
		WHERE run_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get join attempts by run id: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.JoinAttempt
	for rows.Next() {
		attempt := &domain.JoinAttempt{}
		var status string
		var errorText sql.NullString

		err := rows.Scan(
			&attempt.ID,
			&attempt.RunID,
			&attempt.UserID,
			&attempt.GuildID,
			&status,
			&errorText,
			&attempt.CreatedAt,
			&attempt.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan join attempt: %w", err)
		}

		attempt.Outcome = domain.Outcome(status)
		attempt.ErrorText = nullableString(errorText)

		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate join attempts: %w", err)
	}

	return attempts, nil
}
