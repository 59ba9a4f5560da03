package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds this owner's value.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker takes short-lived advisory locks with SET NX PX.
type Locker struct {
	client *redis.Client
	owner  string
}

// NewLocker creates a locker identified by a random owner id.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, owner: uuid.NewString()}
}

// TryLock acquires key for ttl. It returns false without error when another owner holds it.
// The returned release func is a no-op when the lock was not acquired.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, func(context.Context), error) {
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, func(context.Context) {}, fmt.Errorf("setnx %s: %w", key, err)
	}
	if !ok {
		return false, func(context.Context) {}, nil
	}
	return true, func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.client, []string{key}, l.owner).Err()
	}, nil
}
