package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out best-effort single-flight locks backed by SET NX.
type Locker struct {
	client redis.UniversalClient
}

// NewLocker builds a Locker. A nil client yields a locker that always grants.
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Lock is a held lock; Release is safe to call more than once.
type Lock struct {
	key    string
	token  string
	client redis.UniversalClient
}

// TryLock attempts to take key for ttl. ok is false when another holder owns it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	fullKey := Key("lock", key)
	if l == nil || l.client == nil {
		return &Lock{key: fullKey}, true, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{key: fullKey, token: token, client: l.client}, true, nil
}

func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil || lk.client == nil {
		return nil
	}
	return releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Err()
}
