package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/invoice_audit/utils"
)

const (
	ConsolidationLockKey = "lock:daily-consolidation"
	ConsolidationLockTTL = 30 * time.Minute
)

// RunLocker guarantees a single daily consolidation at a time. Obtain returns
// utils.ErrorRunLocked when another holder has the key.
type RunLocker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type RedisRunLocker struct {
	Client *redislock.Client
}

func (l *RedisRunLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.Client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, utils.ErrorRunLocked
	} else if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

// LocalRunLocker only serialises runs inside one process. Used when Redis is not
// configured.
type LocalRunLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *LocalRunLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, utils.ErrorRunLocked
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}
