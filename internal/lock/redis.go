package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL       = 30 * time.Second
	retryInterval = 50 * time.Millisecond
)

// unlockScript deletes the lock only if this holder still owns it, so an
// expired lock reclaimed by another instance is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a distributed Locker backed by a short-lived advisory key.
// The TTL bounds how long a crashed holder can block a slot.
type Redis struct {
	client *redis.Client
	log    *slog.Logger
}

func NewRedis(client *redis.Client, log *slog.Logger) *Redis {
	return &Redis{client: client, log: log}
}

var _ Locker = (*Redis)(nil)

// Acquire polls SET NX until the lock is obtained or ctx ends.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	name := "lock:" + key

	for {
		ok, err := r.client.SetNX(ctx, name, token, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release must proceed even if the request context is gone.
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					if err := unlockScript.Run(ctx, r.client, []string{name}, token).Err(); err != nil && err != redis.Nil {
						r.log.Error("lock release failed", "key", key, "error", err)
					}
				})
			}, nil
		}

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
