package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db dbtx
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db dbtx) CredentialRepository {
	return &credentialRepository{db: db}
}

// Upsert stores the credential of a user, replacing every field of an existing row
func (r *credentialRepository) Upsert(ctx context.Context, credential *domain.Credential) error {
	query := `
		INSERT INTO discord_tokens (user_id, access_token, refresh_token, token_type, scope, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	if credential.UpdatedAt.IsZero() {
		credential.UpdatedAt = time.Now()
	}

	scopes := credential.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	_, err := r.db.ExecContext(ctx, query,
		credential.UserID,
		credential.AccessToken,
		credential.RefreshToken,
		credential.TokenType,
		pq.Array(scopes),
		credential.ExpiresAt,
		credential.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential for user %s: %w", credential.UserID, err)
	}

	return nil
}

// GetByUserID retrieves the credential stored for a user
func (r *credentialRepository) GetByUserID(ctx context.Context, userID string) (*domain.Credential, error) {
	query := `
		SELECT user_id, access_token, refresh_token, token_type, scope, expires_at, updated_at
		FROM discord_tokens
		WHERE user_id = $1
	`

	credential := &domain.Credential{}

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&credential.UserID,
		&credential.AccessToken,
		&credential.RefreshToken,
		&credential.TokenType,
		pq.Array(&credential.Scopes),
		&credential.ExpiresAt,
		&credential.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential for user %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return credential, nil
}
