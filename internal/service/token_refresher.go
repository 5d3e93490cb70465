package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"github.com/prperemyshlev/guild-rejoin/internal/repository"
	"github.com/prperemyshlev/guild-rejoin/pkg/observability"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// tokenRefresher implements TokenRefresher
type tokenRefresher struct {
	credentials repository.CredentialRepository
	granter     TokenGranter
	skew        time.Duration
	metrics     *observability.ReconcileMetrics
	logger      *zap.Logger
	now         func() time.Time

	// collapses concurrent refreshes of one user so the stored credential is written once
	group singleflight.Group
}

// NewTokenRefresher creates a token refresher
func NewTokenRefresher(
	credentials repository.CredentialRepository,
	granter TokenGranter,
	skew time.Duration,
	metrics *observability.ReconcileMetrics,
	logger *zap.Logger,
) TokenRefresher {
	return &tokenRefresher{
		credentials: credentials,
		granter:     granter,
		skew:        skew,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Refresh implements TokenRefresher
func (r *tokenRefresher) Refresh(ctx context.Context, userID string) (string, error) {
	v, err, _ := r.group.Do(userID, func() (any, error) {
		return r.refresh(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *tokenRefresher) refresh(ctx context.Context, userID string) (string, error) {
	current, err := r.credentials.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.ErrNoCredential
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if current.RefreshToken == "" {
		return "", fmt.Errorf("%w: refresh token is empty", domain.ErrNoCredential)
	}

	tokens, err := r.granter.Refresh(ctx, current.RefreshToken)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrRefreshDenied) {
			result = "denied"
		}
		r.metrics.RecordRefresh(ctx, result)
		return "", err
	}

	// The provider may omit a rotated refresh token; the old one stays valid then.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = current.RefreshToken
	}
	if len(tokens.Scopes) == 0 {
		tokens.Scopes = current.Scopes
	}

	credential := domain.NewCredential(userID, tokens, r.now(), r.skew)
	if err := r.credentials.Upsert(ctx, credential); err != nil {
		r.metrics.RecordRefresh(ctx, "error")
		return "", fmt.Errorf("failed to store refreshed credential: %w", err)
	}

	r.metrics.RecordRefresh(ctx, "ok")
	r.logger.Debug("Access token refreshed",
		zap.String("user_id", userID),
		zap.Time("expires_at", credential.ExpiresAt),
	)

	return credential.AccessToken, nil
}
