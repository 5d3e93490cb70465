package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/guild-rejoin/pkg/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrRunInProgress is returned when another run holds the guild lock
	ErrRunInProgress = errors.New("a rejoin run is already in progress for this guild")

	// ErrLeaseLost is the cancellation cause of a run whose lock expired
	ErrLeaseLost = errors.New("run lock lost")
)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLocker implements RunLocker with a renewed Redis lease
type RedisRunLocker struct {
	redis  *database.Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRunLocker creates a run locker whose leases live for ttl unless renewed
func NewRedisRunLocker(redis *database.Redis, ttl time.Duration, logger *zap.Logger) *RedisRunLocker {
	return &RedisRunLocker{
		redis:  redis,
		ttl:    ttl,
		logger: logger,
	}
}

// Acquire implements RunLocker
func (l *RedisRunLocker) Acquire(ctx context.Context, guildID string) (Lease, error) {
	key := fmt.Sprintf("rejoin:lock:%s", guildID)
	token := uuid.NewString()

	ok, err := l.redis.Client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	lease := &redisLease{
		client: l.redis.Client,
		key:    key,
		token:  token,
		ttl:    l.ttl,
		logger: l.logger,
		stop:   make(chan struct{}),
		lost:   make(chan struct{}),
	}
	go lease.keepAlive()

	return lease, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	logger *zap.Logger

	stop     chan struct{}
	lost     chan struct{}
	stopOnce sync.Once
}

func (l *redisLease) Lost() <-chan struct{} {
	return l.lost
}

func (l *redisLease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stop) })

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

func (l *redisLease) keepAlive() {
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			renewed, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
			cancel()

			if err != nil {
				l.logger.Warn("Failed to renew run lock", zap.String("key", l.key), zap.Error(err))
				continue
			}
			if renewed == 0 {
				l.logger.Error("Run lock lost", zap.String("key", l.key))
				close(l.lost)
				return
			}
		}
	}
}
