package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/guild-rejoin/pkg/database"
	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is matched by every RateLimitError
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError carries the time until the next request is allowed
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, try again in %v", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow records a request under key using a sliding window log.
// It returns a *RateLimitError when the limit is exceeded.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) error {
	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := r.count(ctx, redisKey, now, window)
	if err != nil {
		return err
	}

	if count >= int64(limit) {
		retryAfter := window
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			retryAfter = window - now.Sub(time.UnixMilli(int64(oldest[0].Score)))
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	pipe := r.redis.Client.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, redisKey, window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}

	return nil
}

// GetRemainingRequests returns the number of remaining requests allowed
func (r *RateLimiter) GetRemainingRequests(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	count, err := r.count(ctx, fmt.Sprintf("ratelimit:%s", key), time.Now(), window)
	if err != nil {
		return 0, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

func (r *RateLimiter) count(ctx context.Context, redisKey string, now time.Time, window time.Duration) (int64, error) {
	windowStart := now.Add(-window)

	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixMilli())).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	return count, nil
}
