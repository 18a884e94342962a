package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds this owner's
// token, so an expired lease cannot release a lock re-acquired by someone
// else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a lease-based distributed lock (SET NX PX with a per-acquisition
// token). Leases auto-expire after TTL, so a crashed holder cannot block a
// key forever.
type Lock struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	retryIn   time.Duration
}

// NewLock creates a lock manager. Keys are namespaced with keyPrefix; ttl
// bounds how long a lease survives a crashed holder.
func NewLock(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Lock {
	if client == nil {
		panic("redis: lock client is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Lock{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		retryIn:   50 * time.Millisecond,
	}
}

// Acquire blocks until the lease for key is obtained or ctx is done.
// The returned release function is safe to call once; it only releases a
// lease this acquisition still owns.
func (l *Lock) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := l.keyPrefix + ":" + key

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release on a fresh context: the request context may
				// already be cancelled when cleanup runs.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryIn):
		}
	}
}

// TryAcquire attempts the lease once and returns ErrLockNotAcquired when
// the key is already held.
func (l *Lock) TryAcquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := l.keyPrefix + ":" + key

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
	}, nil
}
