package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"github.com/prperemyshlev/guild-rejoin/internal/repository"
	"github.com/prperemyshlev/guild-rejoin/internal/utils"
	"go.uber.org/zap"
)

// ErrNoRefreshToken is returned when the token response cannot be refreshed later
var ErrNoRefreshToken = errors.New("token response carried no refresh token")

// oauthService implements OAuthService
type oauthService struct {
	tx       repository.Transactor
	provider IdentityProvider
	states   *utils.StateManager
	nonces   NonceStore
	skew     time.Duration
	logger   *zap.Logger
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(
	tx repository.Transactor,
	provider IdentityProvider,
	states *utils.StateManager,
	nonces NonceStore,
	skew time.Duration,
	logger *zap.Logger,
) OAuthService {
	return &oauthService{
		tx:       tx,
		provider: provider,
		states:   states,
		nonces:   nonces,
		skew:     skew,
		logger:   logger,
	}
}

// AuthorizeURL returns the consent page URL with a fresh signed state
func (s *oauthService) AuthorizeURL(ctx context.Context) (string, error) {
	state, err := s.states.Generate()
	if err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// HandleCallback stores the profile and credential of a user who granted consent
func (s *oauthService) HandleCallback(ctx context.Context, code, state string) (*domain.User, error) {
	nonce, err := s.states.Validate(state)
	if err != nil {
		return nil, err
	}

	fresh, err := s.nonces.Consume(ctx, nonce)
	if err != nil {
		return nil, err
	}
	if !fresh {
		return nil, fmt.Errorf("%w: state already used", utils.ErrInvalidState)
	}

	tokens, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if tokens.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	user, err := s.provider.CurrentUser(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.ConsentedAt = now
	user.LastLoginAt = now
	credential := domain.NewCredential(user.ID, tokens, now, s.skew)

	firstConsent := false
	err = s.tx.RunInTx(ctx, func(repos *repository.Repositories) error {
		if _, err := repos.User.GetByID(ctx, user.ID); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			firstConsent = true
		}
		if err := repos.User.Upsert(ctx, user); err != nil {
			return err
		}
		return repos.Credential.Upsert(ctx, credential)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store authorization: %w", err)
	}

	s.logger.Info("User authorized",
		zap.String("user_id", user.ID),
		zap.Strings("scopes", credential.Scopes),
		zap.Bool("first_consent", firstConsent),
	)

	return user, nil
}
