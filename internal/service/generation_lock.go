package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrGenerationLocked reports that another generation holds the lock for the same target.
var ErrGenerationLocked = errors.New("generation lock held")

const defaultLockWait = 30 * time.Second

type localLockSlot struct {
	ch   chan struct{}
	refs int
}

// LocalGenerationLocker serialises generations per key inside one process. A key is
// forgotten once no holder or waiter references it.
type LocalGenerationLocker struct {
	mu    sync.Mutex
	slots map[string]*localLockSlot
	wait  time.Duration
}

// NewLocalGenerationLocker constructs an empty keyed locker.
func NewLocalGenerationLocker() *LocalGenerationLocker {
	return &LocalGenerationLocker{slots: make(map[string]*localLockSlot), wait: defaultLockWait}
}

// Acquire blocks until the key is free. It gives up with ErrGenerationLocked once the
// wait elapses, and with ctx.Err() when the caller goes away first.
func (l *LocalGenerationLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &localLockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
	case <-timer.C:
		l.forget(key, slot)
		return nil, ErrGenerationLocked
	case <-ctx.Done():
		l.forget(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.forget(key, slot)
		})
	}, nil
}

func (l *LocalGenerationLocker) forget(key string, slot *localLockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.slots[key] == slot {
		delete(l.slots, key)
	}
}

func (l *LocalGenerationLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

type lockRepository interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// RedisGenerationLocker serialises generations across instances through a Redis lock.
type RedisGenerationLocker struct {
	repo     lockRepository
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	token    func() string
	logger   *zap.Logger
}

// NewRedisGenerationLocker builds a locker whose leases expire after ttl. Acquire waits at
// most ttl for a competing holder.
func NewRedisGenerationLocker(repo lockRepository, ttl time.Duration, token func() string, logger *zap.Logger) *RedisGenerationLocker {
	if ttl <= 0 {
		ttl = defaultLockWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGenerationLocker{
		repo:     repo,
		ttl:      ttl,
		wait:     ttl,
		interval: 100 * time.Millisecond,
		token:    token,
		logger:   logger,
	}
}

// Acquire polls until the lock is taken or the wait elapses. A cancelled ctx returns ctx.Err().
func (l *RedisGenerationLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := l.token()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.repo.TryLock(ctx, key, token, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrGenerationLocked
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}
}

func (l *RedisGenerationLocker) release(key, token string) {
	// Release must outlive a cancelled request context.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.repo.Unlock(ctx, key, token); err != nil {
		l.logger.Warn("failed to release generation lock; lease held until ttl",
			zap.String("key", key),
			zap.Duration("ttl", l.ttl),
			zap.Error(err),
		)
	}
}
