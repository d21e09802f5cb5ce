package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still carries the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// GenerationLockRepository holds short-lived Redis leases that serialise timetable generations.
type GenerationLockRepository struct {
	client redis.Cmdable
}

// NewGenerationLockRepository constructs the lock repository.
func NewGenerationLockRepository(client redis.Cmdable) *GenerationLockRepository {
	return &GenerationLockRepository{client: client}
}

// TryLock takes the lease when the key is free.
func (r *GenerationLockRepository) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	acquired, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return acquired, nil
}

// Unlock releases the lease if token still owns it.
func (r *GenerationLockRepository) Unlock(ctx context.Context, key, token string) error {
	if err := unlockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	return nil
}
