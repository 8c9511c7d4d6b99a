package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/settlement-engine/pkg/redis"
)

// WorkerLockName guards every scheduled cycle and the manual escrow sweep.
const WorkerLockName = "cron-worker"

const defaultLeaseTTL = 5 * time.Minute

// Lock hands out at most one live Lease at a time across all replicas.
type Lock interface {
	// TryAcquire returns a nil Lease without error when someone else holds it.
	TryAcquire(ctx context.Context) (Lease, error)
}

// Lease is a held Lock. Releasing an expired lease is a no-op.
type Lease interface {
	Release(ctx context.Context) error
}

type leaseStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfEquals(ctx context.Context, key, value string) (bool, error)
}

// RedisLock stores the holder's token under key with a TTL, so a crashed
// holder blocks the others only until the key expires.
type RedisLock struct {
	store leaseStore
	key   string
	ttl   time.Duration
}

// LockKey namespaces a lock by environment and purpose.
func LockKey(env, name string) string {
	if env == "" {
		env = "local"
	}
	return redis.Key(env, "lock", name)
}

func NewRedisLock(store leaseStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("lease store is required")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) TryAcquire(ctx context.Context) (Lease, error) {
	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", l.key, err)
	}
	if !won {
		return nil, nil
	}
	return &redisLease{store: l.store, key: l.key, token: token}, nil
}

type redisLease struct {
	store leaseStore
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	if _, err := l.store.DelIfEquals(ctx, l.key, l.token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// WithLock runs fn while holding lock and reports whether it ran. The lease
// is released even when ctx is already canceled.
func WithLock(ctx context.Context, lock Lock, fn func(ctx context.Context) error) (ran bool, err error) {
	lease, err := lock.TryAcquire(ctx)
	if err != nil || lease == nil {
		return false, err
	}
	defer func() {
		err = multierr.Append(err, lease.Release(context.WithoutCancel(ctx)))
	}()
	return true, fn(ctx)
}
