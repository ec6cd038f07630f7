package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("selection lock not acquired")
)

// Locker guards the commit of a client's slot selection so that two
// concurrent commits for the same (activity, client) pair cannot both
// replace the stored selection.
type Locker interface {
	WithSelectionLock(ctx context.Context, activityID, clientID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisSelectionLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSelectionLocker creates a locker that uses one Redis key per
// (activity, client) pair.
func NewRedisSelectionLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisSelectionLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisSelectionLocker) WithSelectionLock(ctx context.Context, activityID, clientID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:selection:%s:%s", activityID.String(), clientID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire selection lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisSelectionLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release selection lock: %w", err)
	}
	return nil
}
