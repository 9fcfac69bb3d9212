package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lock is a best-effort mutual exclusion across service instances.
type Lock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

const releaseLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

const renewLockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end`

// RedisLock is a SET NX lock whose value is a per-holder token, so only the holder can
// release or renew it. While held it is renewed every expiry/3.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	expiry time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRedisLock(client *redis.Client, key string, expiry time.Duration, logger *zap.Logger) *RedisLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expiry <= 0 {
		expiry = time.Minute
	}
	return &RedisLock{
		client: client,
		key:    key,
		token:  uuid.New().String(),
		expiry: expiry,
		logger: logger,
	}
}

func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return false, nil
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	go l.autoRenew(renewCtx)
	return true, nil
}

func (l *RedisLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	res, err := l.client.Eval(ctx, releaseLockScript, []string{l.key}, l.token).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	if n, _ := res.(int64); n == 0 {
		l.logger.Warn("lock was not held at release", zap.String("key", l.key))
	}
	return nil
}

func (l *RedisLock) autoRenew(ctx context.Context) {
	ticker := time.NewTicker(l.expiry / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := l.client.Eval(ctx, renewLockScript, []string{l.key}, l.token, l.expiry.Milliseconds()).Result()
			if err != nil {
				if ctx.Err() == nil {
					l.logger.Warn("lock renew failed", zap.String("key", l.key), zap.Error(err))
				}
				return
			}
			if n, _ := res.(int64); n == 0 {
				l.logger.Warn("lock lost, renew stopped", zap.String("key", l.key))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
