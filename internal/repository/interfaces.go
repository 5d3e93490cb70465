package repository

import (
	"context"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// UserRepository defines methods for Discord user profile operations
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListIDs(ctx context.Context) ([]string, error)
}

// CredentialRepository defines methods for stored OAuth credentials
type CredentialRepository interface {
	Upsert(ctx context.Context, credential *domain.Credential) error
	GetByUserID(ctx context.Context, userID string) (*domain.Credential, error)
}

// JoinAttemptRepository defines methods for the append-only join audit log
type JoinAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.JoinAttempt) error
	ListByRunID(ctx context.Context, runID string) ([]*domain.JoinAttempt, error)
}

// Transactor runs fn with repositories bound to a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(repos *Repositories) error) error
}
