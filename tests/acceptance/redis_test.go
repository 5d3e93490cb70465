package acceptance

import (
	"context"
	"errors"
	"time"

	"github.com/prperemyshlev/guild-rejoin/internal/service"
	"go.uber.org/zap"
)

func (s *Suite) TestRunLock_ExclusivePerGuild() {
	ctx := context.Background()
	locker := service.NewRedisRunLocker(s.Redis, 30*time.Second, zap.NewNop())

	lease, err := locker.Acquire(ctx, guildID)
	s.Require().NoError(err)

	_, err = locker.Acquire(ctx, guildID)
	s.ErrorIs(err, service.ErrRunInProgress)

	other, err := locker.Acquire(ctx, "900000000000000002")
	s.Require().NoError(err)
	s.Require().NoError(other.Release(ctx))

	s.Require().NoError(lease.Release(ctx))

	again, err := locker.Acquire(ctx, guildID)
	s.Require().NoError(err)
	s.Require().NoError(again.Release(ctx))
}

func (s *Suite) TestRunLock_RenewedWhileHeld() {
	ctx := context.Background()
	locker := service.NewRedisRunLocker(s.Redis, 300*time.Millisecond, zap.NewNop())

	lease, err := locker.Acquire(ctx, guildID)
	s.Require().NoError(err)
	defer lease.Release(ctx)

	time.Sleep(time.Second)

	exists, err := s.Redis.Client.Exists(ctx, "rejoin:lock:"+guildID).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)
}

func (s *Suite) TestRunLock_LostWhenTakenOver() {
	ctx := context.Background()
	locker := service.NewRedisRunLocker(s.Redis, 300*time.Millisecond, zap.NewNop())

	lease, err := locker.Acquire(ctx, guildID)
	s.Require().NoError(err)

	s.Require().NoError(s.Redis.Client.Set(ctx, "rejoin:lock:"+guildID, "someone-else", time.Minute).Err())

	select {
	case <-lease.Lost():
	case <-time.After(2 * time.Second):
		s.Fail("lease was not reported lost")
	}

	// Release must not delete the new holder's key
	s.Require().NoError(lease.Release(ctx))
	value, err := s.Redis.Client.Get(ctx, "rejoin:lock:"+guildID).Result()
	s.Require().NoError(err)
	s.Equal("someone-else", value)
}

func (s *Suite) TestNonceStore_ConsumeOnce() {
	ctx := context.Background()
	store := service.NewRedisNonceStore(s.Redis, time.Minute)

	fresh, err := store.Consume(ctx, "nonce-1")
	s.Require().NoError(err)
	s.True(fresh)

	fresh, err = store.Consume(ctx, "nonce-1")
	s.Require().NoError(err)
	s.False(fresh)
}

func (s *Suite) TestRateLimiter_SlidingWindow() {
	ctx := context.Background()
	limiter := service.NewRateLimiter(s.Redis)

	for i := 0; i < 3; i++ {
		s.Require().NoError(limiter.Allow(ctx, "acceptance", 3, time.Minute))
	}

	err := limiter.Allow(ctx, "acceptance", 3, time.Minute)
	s.Require().Error(err)
	s.True(errors.Is(err, service.ErrRateLimited))

	var rateErr *service.RateLimitError
	s.Require().ErrorAs(err, &rateErr)
	s.Greater(rateErr.RetryAfter, time.Duration(0))

	remaining, err := limiter.GetRemainingRequests(ctx, "acceptance", 3, time.Minute)
	s.Require().NoError(err)
	s.Equal(0, remaining)
}
