package service

import (
	"context"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
)

// ReconcileService defines the bulk rejoin operations
type ReconcileService interface {
	Reconcile(ctx context.Context, guildID string, notify bool) (*domain.Summary, error)
	ListAttempts(ctx context.Context, runID string) ([]*domain.JoinAttempt, error)
}

// OAuthService defines the user authorization flow
type OAuthService interface {
	AuthorizeURL(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*domain.User, error)
}

// TokenRefresher renews the stored credential of a user and returns the new access token
type TokenRefresher interface {
	Refresh(ctx context.Context, userID string) (string, error)
}

// TokenGranter performs refresh_token grants against the identity provider
type TokenGranter interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error)
}

// IdentityProvider covers the authorization code flow of the identity provider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.TokenSet, error)
	CurrentUser(ctx context.Context, accessToken string) (*domain.User, error)
}

// MembershipClient adds users to guilds and notifies them
type MembershipClient interface {
	AddGuildMember(ctx context.Context, guildID, userID, accessToken string) (domain.MembershipStatus, error)
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// Limiter paces provider calls
type Limiter interface {
	Wait(ctx context.Context) error
}

// RunLocker guarantees a single active run per guild
type RunLocker interface {
	Acquire(ctx context.Context, guildID string) (Lease, error)
}

// Lease is a held run lock
type Lease interface {
	// Lost is closed when the lock expired or was taken over while held.
	Lost() <-chan struct{}
	Release(ctx context.Context) error
}

// NonceStore remembers consumed single-use values
type NonceStore interface {
	// Consume returns false when nonce was already consumed.
	Consume(ctx context.Context, nonce string) (bool, error)
}
