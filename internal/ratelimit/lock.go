package ratelimit

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript drops the key only while it still carries the holder's token,
// so an expired lease never deletes a lock taken over by another replica.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockDisabled = errors.New("lock client not configured")
	ErrLockKey      = errors.New("lock key is empty")
	ErrLockTTL      = errors.New("lock ttl must be positive")
)

// Locker hands out exclusive leases on Redis keys. A nil Locker means
// locking is disabled and callers run unguarded.
type Locker struct {
	client  *redis.Client
	release *redis.Script
	holder  string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client:  client,
		release: redis.NewScript(releaseScript),
		holder:  holderName(),
	}
}

// Lease is a held lock. Its Token names the replica that took it.
type Lease struct {
	Key   string
	Token string

	locker *Locker
}

// Acquire takes key for ttl. It returns a nil lease and no error when another
// holder owns the key.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockDisabled
	}
	if key == "" {
		return nil, ErrLockKey
	}
	if ttl <= 0 {
		return nil, ErrLockTTL
	}

	token := l.holder + "/" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Lease{Key: key, Token: token, locker: l}, nil
}

// Holder reports the token currently stored under key, or "" when it is free.
func (l *Locker) Holder(ctx context.Context, key string) (string, error) {
	if l == nil || l.client == nil {
		return "", ErrLockDisabled
	}
	token, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// Release gives the lease back. It is safe on a nil lease.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.locker == nil || l.locker.client == nil {
		return nil
	}
	return l.locker.release.Run(ctx, l.locker.client, []string{l.Key}, l.Token).Err()
}

func holderName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "pricewatch"
	}
	return host
}
