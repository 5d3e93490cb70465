package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"github.com/prperemyshlev/guild-rejoin/internal/repository"
	"github.com/prperemyshlev/guild-rejoin/pkg/observability"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

// reconcileService implements ReconcileService
type reconcileService struct {
	users          repository.UserRepository
	credentials    repository.CredentialRepository
	attempts       repository.JoinAttemptRepository
	refresher      TokenRefresher
	members        MembershipClient
	locker         RunLocker
	limiter        Limiter
	metrics        *observability.ReconcileMetrics
	logger         *zap.Logger
	welcomeMessage string
	now            func() time.Time
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(
	repos *repository.Repositories,
	refresher TokenRefresher,
	members MembershipClient,
	locker RunLocker,
	limiter Limiter,
	metrics *observability.ReconcileMetrics,
	logger *zap.Logger,
	welcomeMessage string,
) ReconcileService {
	return &reconcileService{
		users:          repos.User,
		credentials:    repos.Credential,
		attempts:       repos.JoinAttempt,
		refresher:      refresher,
		members:        members,
		locker:         locker,
		limiter:        limiter,
		metrics:        metrics,
		logger:         logger,
		welcomeMessage: welcomeMessage,
		now:            time.Now,
	}
}

// Reconcile re-adds every known user to the guild, one at a time.
// On abort the partial summary is returned together with the error.
func (s *reconcileService) Reconcile(ctx context.Context, guildID string, notify bool) (*domain.Summary, error) {
	lease, err := s.locker.Acquire(ctx, guildID)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		select {
		case <-lease.Lost():
			cancel(ErrLeaseLost)
		case <-runCtx.Done():
		}
	}()

	summary := &domain.Summary{
		RunID:   uuid.NewString(),
		GuildID: guildID,
	}
	logger := s.logger.With(
		zap.String("run_id", summary.RunID),
		zap.String("guild_id", guildID),
	)

	defer func() {
		releaseCtx, cancelRelease := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancelRelease()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("Failed to release run lock", zap.Error(err))
		}
	}()

	start := s.now()
	logger.Info("Rejoin run started", zap.Bool("notify", notify))

	err = s.run(runCtx, summary, notify, logger)

	status := "completed"
	if err != nil {
		status = "aborted"
		logger.Error("Rejoin run aborted",
			zap.Int("processed", summary.Total),
			zap.Error(err),
		)
	} else {
		logger.Info("Rejoin run finished",
			zap.Int("ok", summary.OK),
			zap.Int("already", summary.Already),
			zap.Int("fail", summary.Fail),
			zap.Int("total", summary.Total),
		)
	}
	s.metrics.RecordRun(ctx, status, s.now().Sub(start))

	return summary, err
}

func (s *reconcileService) run(ctx context.Context, summary *domain.Summary, notify bool, logger *zap.Logger) error {
	userIDs, err := s.users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return fmt.Errorf("run stopped after %d of %d users: %w", summary.Total, len(userIDs), context.Cause(ctx))
		}

		result, err := s.reconcileUser(ctx, summary.GuildID, userID, notify, logger)
		if err != nil {
			if ctx.Err() != nil {
				err = errors.Join(err, context.Cause(ctx))
			}
			return fmt.Errorf("run aborted at user %s: %w", userID, err)
		}

		attempt := &domain.JoinAttempt{
			RunID:   summary.RunID,
			UserID:  userID,
			GuildID: summary.GuildID,
			Outcome: result.outcome,
		}
		if result.cause != nil {
			text := result.cause.Error()
			attempt.ErrorText = &text
		}

		if err := s.attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}

		summary.Add(result.outcome)
		s.metrics.RecordAttempt(ctx, string(result.outcome))

		if result.cause != nil {
			logger.Warn("User rejoin failed",
				zap.String("user_id", userID),
				zap.String("outcome", string(result.outcome)),
				zap.Error(result.cause),
			)
		} else {
			logger.Info("User rejoin processed",
				zap.String("user_id", userID),
				zap.String("outcome", string(result.outcome)),
			)
		}
	}

	return nil
}

type userResult struct {
	outcome domain.Outcome
	// cause is set for failed outcomes
	cause error
}

// reconcileUser drives one user to a terminal outcome. A non-nil error aborts the run.
func (s *reconcileService) reconcileUser(ctx context.Context, guildID, userID string, notify bool, logger *zap.Logger) (userResult, error) {
	fail := func(err error) (userResult, error) {
		if domain.IsUserScoped(err) {
			return userResult{outcome: domain.OutcomeFailed, cause: err}, nil
		}
		return userResult{}, err
	}

	credential, err := s.credentials.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(domain.ErrNoCredential)
		}
		return fail(err)
	}

	accessToken := credential.AccessToken
	if credential.IsExpired(s.now()) {
		if err := s.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
		accessToken, err = s.refresher.Refresh(ctx, userID)
		if err != nil {
			return fail(err)
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fail(err)
	}
	status, err := s.members.AddGuildMember(ctx, guildID, userID, accessToken)
	if err != nil {
		return fail(err)
	}

	outcome := status.Outcome()
	if notify && outcome == domain.OutcomeJoined {
		s.notify(ctx, userID, logger)
	}

	return userResult{outcome: outcome}, nil
}

// notify is best effort; failures never change the outcome
func (s *reconcileService) notify(ctx context.Context, userID string, logger *zap.Logger) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	if err := s.members.SendDirectMessage(ctx, userID, s.welcomeMessage); err != nil {
		logger.Warn("Failed to send welcome message",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// ListAttempts returns the audit rows of one run
func (s *reconcileService) ListAttempts(ctx context.Context, runID string) ([]*domain.JoinAttempt, error) {
	attempts, err := s.attempts.ListByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
