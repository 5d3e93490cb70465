package app

import (
	"fmt"

	"github.com/prperemyshlev/guild-rejoin/internal/config"
	"github.com/prperemyshlev/guild-rejoin/internal/discord"
	"github.com/prperemyshlev/guild-rejoin/internal/repository"
	"github.com/prperemyshlev/guild-rejoin/internal/service"
	"github.com/prperemyshlev/guild-rejoin/internal/utils"
	"github.com/prperemyshlev/guild-rejoin/pkg/observability"
)

const meterName = "guild-rejoin"

// Services holds the wired application services shared by the HTTP server and the CLI
type Services struct {
	Repositories *repository.Repositories
	Reconcile    service.ReconcileService
	OAuth        service.OAuthService
	RateLimiter  *service.RateLimiter
}

// NewServices wires repositories, Discord clients and services
func NewServices(infra Infrastructure, cfg *config.Config) (*Services, error) {
	repos := repository.NewRepositories(infra.Postgres())

	metrics, err := observability.NewReconcileMetrics(infra.MeterProvider().Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	oauth := discord.NewOAuth(cfg.Discord)
	bot := discord.NewClient(cfg.Discord)

	refresher := service.NewTokenRefresher(
		repos.Credential,
		oauth,
		cfg.Reconcile.ExpirySkew.Duration,
		metrics,
		infra.Logger(),
	)

	reconcileService := service.NewReconcileService(
		repos,
		refresher,
		bot,
		service.NewRedisRunLocker(infra.Redis(), cfg.Reconcile.LockTTL.Duration, infra.Logger()),
		service.NewPacer(cfg.Reconcile.Delay.Duration),
		metrics,
		infra.Logger(),
		cfg.Reconcile.WelcomeMessage,
	)

	oauthService := service.NewOAuthService(
		repos,
		oauth,
		utils.NewStateManager(cfg.State.Secret, cfg.State.TTL.Duration),
		service.NewRedisNonceStore(infra.Redis(), cfg.State.TTL.Duration),
		cfg.Reconcile.ExpirySkew.Duration,
		infra.Logger(),
	)

	return &Services{
		Repositories: repos,
		Reconcile:    reconcileService,
		OAuth:        oauthService,
		RateLimiter:  service.NewRateLimiter(infra.Redis()),
	}, nil
}
