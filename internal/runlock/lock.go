// Package runlock provides an optional redis-backed mutual exclusion for
// aggregation runs. When redis is not configured the lock degrades to a
// no-op and overlapping runs are instead de-duplicated by the snapshot
// store's unique bucket.
package runlock

import (
	"context"
	"time"

	"github.com/fleetworks/odometer/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const lockKey = "odometer:kpi:run_lock"

// releaseScript deletes the lock only when the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker serializes aggregation runs across processes.
type Locker interface {
	// TryAcquire returns a release func when the lock was taken, or
	// ok=false when another run holds it.
	TryAcquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

type redisLocker struct {
	client *redis.Client
	log    *zap.Logger
}

func (l *redisLocker) TryAcquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Release runs after the caller's ctx may be done.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{lockKey}, token).Err(); err != nil {
			l.log.Warn("run lock release failed", zap.Error(err))
		}
	}
	return release, true, nil
}

type noopLocker struct{}

func (noopLocker) TryAcquire(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func New(p Params) Locker {
	if p.Config.RedisAddr == "" {
		return noopLocker{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
		DB:       p.Config.RedisDB,
	})
	return &redisLocker{
		client: client,
		log:    p.Log.Named("runlock"),
	}
}

var Module = fx.Module("runlock",
	fx.Provide(New),
)
