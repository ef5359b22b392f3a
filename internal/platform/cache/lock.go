package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our value.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Locker hands out short-lived exclusive locks keyed by name.
type Locker struct {
	rdb *redis.Client
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb}
}

// Lock is a held lock. Release is safe to call more than once.
type Lock struct {
	rdb   *redis.Client
	key   string
	value string
}

// TryAcquire takes key for ttl. ok is false when someone else holds it.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	value := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{rdb: l.rdb, key: key, value: value}, true, nil
}

// Release drops the lock if it has not expired or been taken over.
// It reports whether the key was deleted.
func (lk *Lock) Release(ctx context.Context) (bool, error) {
	deleted, err := releaseScript.Run(ctx, lk.rdb, []string{lk.key}, lk.value).Int64()
	if err != nil {
		return false, fmt.Errorf("releasing lock %s: %w", lk.key, err)
	}
	return deleted == 1, nil
}
