package subscription

import (
	"context"
	"sync"

	"github.com/dmitrymomot/billingkit/pkg/redis"
)

// ReferenceLocker serializes create-or-update calls per reference. The
// returned release func must be called exactly once. Implementations may be
// in-process or distributed; pkg/redis provides a lease-based one for
// multi-instance deployments.
type ReferenceLocker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

var _ ReferenceLocker = (*redis.Lock)(nil)

// MutexLocker is the in-process default: a lazily-populated mutex per key.
// It is sufficient for single-instance deployments and for tests.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMutexLocker creates an in-process reference locker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *MutexLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
