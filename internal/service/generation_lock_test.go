package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLocalGenerationLockerSerialisesPerKey(t *testing.T) {
	locker := NewLocalGenerationLocker()

	locker.wait = 20 * time.Millisecond

	release, err := locker.Acquire(context.Background(), "timetable:lock:fixed:term-1")
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), "timetable:lock:fixed:term-1")
	assert.ErrorIs(t, err, ErrGenerationLocked)

	other, err := locker.Acquire(context.Background(), "timetable:lock:fixed:term-2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.Acquire(context.Background(), "timetable:lock:fixed:term-1")
	require.NoError(t, err)
	again()
	assert.Zero(t, locker.size())
}

func TestLocalGenerationLockerCancelledWaiter(t *testing.T) {
	locker := NewLocalGenerationLocker()
	release, err := locker.Acquire(context.Background(), "timetable:lock:plan:plan-1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "timetable:lock:plan:plan-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrGenerationLocked))
	assert.Equal(t, 1, locker.size())

	release()
	assert.Zero(t, locker.size())
}

func TestLocalGenerationLockerWaitsForRelease(t *testing.T) {
	locker := NewLocalGenerationLocker()
	release, err := locker.Acquire(context.Background(), "key")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		next, err := locker.Acquire(context.Background(), "key")
		if err == nil {
			next()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the lock is held")
	case <-time.After(20 * time.Millisecond):
	}
	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire never completed")
	}
}

func TestRedisGenerationLockerAcquireAndRelease(t *testing.T) {
	repo := newLockRepositoryFake()
	locker := NewRedisGenerationLocker(repo, time.Second, func() string { return "token-1" }, nil)

	release, err := locker.Acquire(context.Background(), "timetable:lock:plan:plan-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", repo.holder("timetable:lock:plan:plan-1"))

	release()
	assert.Empty(t, repo.holder("timetable:lock:plan:plan-1"))
}

func TestRedisGenerationLockerTimesOut(t *testing.T) {
	repo := newLockRepositoryFake()
	repo.held["key"] = "someone-else"
	locker := NewRedisGenerationLocker(repo, time.Minute, func() string { return "token-1" }, nil)
	locker.wait = 15 * time.Millisecond
	locker.interval = 5 * time.Millisecond

	_, err := locker.Acquire(context.Background(), "key")
	assert.ErrorIs(t, err, ErrGenerationLocked)
	assert.Equal(t, "someone-else", repo.holder("key"))
}

func TestRedisGenerationLockerPropagatesRepositoryErrors(t *testing.T) {
	repo := newLockRepositoryFake()
	repo.err = errors.New("redis down")
	locker := NewRedisGenerationLocker(repo, time.Second, func() string { return "token-1" }, nil)

	_, err := locker.Acquire(context.Background(), "key")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrGenerationLocked))
}

func TestRedisGenerationLockerCancelledWhileWaiting(t *testing.T) {
	repo := newLockRepositoryFake()
	repo.held["key"] = "someone-else"
	locker := NewRedisGenerationLocker(repo, time.Minute, func() string { return "token-1" }, nil)
	locker.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	_, err := locker.Acquire(ctx, "key")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrGenerationLocked))
}

func TestRedisGenerationLockerLogsReleaseFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := newLockRepositoryFake()
	repo.unlockErr = errors.New("i/o timeout")
	locker := NewRedisGenerationLocker(repo, time.Second, func() string { return "token-1" }, zap.New(core))

	release, err := locker.Acquire(context.Background(), "timetable:lock:fixed:term-1")
	require.NoError(t, err)
	release()

	entries := logs.FilterMessage("failed to release generation lock; lease held until ttl").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "timetable:lock:fixed:term-1", entries[0].ContextMap()["key"])
	assert.Equal(t, "i/o timeout", entries[0].ContextMap()["error"])
}

type lockRepositoryFake struct {
	mu   sync.Mutex
	held      map[string]string
	err       error
	unlockErr error
}

func newLockRepositoryFake() *lockRepositoryFake {
	return &lockRepositoryFake{held: make(map[string]string)}
}

func (f *lockRepositoryFake) TryLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.held[key]; ok {
		return false, nil
	}
	f.held[key] = token
	return true, nil
}

func (f *lockRepositoryFake) Unlock(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unlockErr != nil {
		return f.unlockErr
	}
	if f.held[key] == token {
		delete(f.held, key)
	}
	return nil
}

func (f *lockRepositoryFake) holder(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held[key]
}
