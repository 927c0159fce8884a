// Package lock serializes critical sections across processes with a redis
// SETNX lease.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/hisaab/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotAcquired = errors.New("lock_not_acquired")

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const retryInterval = 25 * time.Millisecond

// Locker hands out exclusive leases on keys.
type Locker interface {
	// Acquire waits up to wait for key and returns a release func. The lease
	// expires after ttl even if release is never called.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (release func(), err error)
}

type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		log:    log.Named("lock.redis"),
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	deadline := time.Now().Add(wait)
	for {
		token, ok, err := l.TryLock(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Released on a fresh context: the caller's may already be done.
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := l.Release(releaseCtx, key, token); err != nil {
					l.log.Warn("release lock failed", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		if !time.Now().Add(retryInterval).Before(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Noop grants every lease immediately. Used when redis is not configured;
// database row locks still serialize within one database.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration, time.Duration) (func(), error) {
	return func() {}, nil
}

// Key joins parts with ":" under the hisaab namespace.
func Key(parts ...string) string {
	return "hisaab:" + strings.Join(parts, ":")
}

// Provide returns a redis-backed locker when REDIS_ADDR is set and Noop
// otherwise.
func Provide(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, distributed locking disabled")
		return Noop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return NewRedisLocker(client, log)
}

var Module = fx.Module("lock",
	fx.Provide(Provide),
)
