package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/guild-rejoin/pkg/database"
)

// RedisNonceStore keeps consumed OAuth state nonces in Redis until they expire
type RedisNonceStore struct {
	redis *database.Redis
	ttl   time.Duration
}

// NewRedisNonceStore creates a nonce store; ttl should cover the state lifetime
func NewRedisNonceStore(redis *database.Redis, ttl time.Duration) *RedisNonceStore {
	return &RedisNonceStore{redis: redis, ttl: ttl}
}

// Consume implements NonceStore
func (s *RedisNonceStore) Consume(ctx context.Context, nonce string) (bool, error) {
	key := fmt.Sprintf("oauth:state:%s", nonce)
	fresh, err := s.redis.Client.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume state nonce: %w", err)
	}
	return fresh, nil
}
