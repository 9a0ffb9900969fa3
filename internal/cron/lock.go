package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The TTL outlives a full sweep interval so a crashed replica cannot wedge
// the worker forever; it simply expires.
const defaultLockTTL = 7 * time.Hour

// Lock serializes sweep cycles across worker replicas.
type Lock interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX-with-TTL replica lock. Each process carries its own
// token so one replica can never release a lock another replica holds.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
	held  bool
}

// NewRedisLock builds a lock for the given key.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis store is required")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{
		store: store,
		key:   key,
		ttl:   ttl,
		token: uuid.NewString(),
	}, nil
}

// TryAcquire claims the lock for this replica's token. Returns false when
// another replica already holds it.
func (l *RedisLock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.store.SetNX(ctx, l.key, l.token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim lock %s: %w", l.key, err)
	}
	l.held = ok
	return ok, nil
}

// Release frees the lock if this replica still owns it. A lock that expired
// or moved to another replica is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	l.held = false

	current, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("inspect lock %s: %w", l.key, err)
	}
	if current != l.token {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}
