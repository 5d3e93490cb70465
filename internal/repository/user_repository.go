package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db dbtx
}

// NewUserRepository creates a new user repository
func NewUserRepository(db dbtx) UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts a user or refreshes the profile snapshot of an existing one.
// consented_at keeps the time of the first authorization.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO discord_users (user_id, username, global_name, avatar, email, locale, consented_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			global_name = EXCLUDED.global_name,
			avatar = EXCLUDED.avatar,
			email = EXCLUDED.email,
			locale = EXCLUDED.locale,
			last_login_at = EXCLUDED.last_login_at
	`

	now := time.Now()
	if user.ConsentedAt.IsZero() {
		user.ConsentedAt = now
	}
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.GlobalName,
		user.Avatar,
		user.Email,
		user.Locale,
		user.ConsentedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}

	return nil
}

// GetByID retrieves a user by Discord id
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT user_id, username, global_name, avatar, email, locale, consented_at, last_login_at
		FROM discord_users
		WHERE user_id = $1
	`

	user := &domain.User{}
	var globalName, avatar, email, locale sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&globalName,
		&avatar,
		&email,
		&locale,
		&user.ConsentedAt,
		&user.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	user.GlobalName = nullableString(globalName)
	user.Avatar = nullableString(avatar)
	user.Email = nullableString(email)
	user.Locale = nullableString(locale)

	return user, nil
}

// ListIDs returns the ids of all known users, oldest consent first
func (r *userRepository) ListIDs(ctx context.Context) ([]string, error) {
	query := `SELECT user_id FROM discord_users ORDER BY consented_at, user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}

	return ids, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
