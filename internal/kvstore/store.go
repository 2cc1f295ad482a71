package kvstore

import (
	"context"
	"fmt"
	"time"

	"task-dashboard/internal/redis"
)

// TTL sentinels, matching the values Redis reports.
const (
	// TTLMissing means the key was never set or has expired.
	TTLMissing time.Duration = -2
	// TTLNoExpiry means the key exists without an expiry.
	TTLNoExpiry time.Duration = -1
)

// Store is the uniform key-value contract shared by the Redis and in-memory backends.
type Store interface {
	// Get returns the stored bytes; found is false for a missing or expired key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set writes value with expiry, overwriting unconditionally. A non-positive
	// ttl stores the key without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// TTL returns the remaining time to live, or TTLMissing / TTLNoExpiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// AcquireLock atomically sets lockKey if absent with the given expiry and
	// reports whether the caller now holds it.
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes lockKey. Releasing a free lock is a no-op.
	ReleaseLock(ctx context.Context, lockKey string) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key starting with prefix and returns how many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Backend names the active backend for health output.
	Backend() string
	Close() error
}

// LockKey returns the lock key guarding refreshes of cacheKey.
func LockKey(cacheKey string) string {
	return "lock:" + cacheKey
}

// Type represents the store backend type
type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)

// Config holds store configuration
type Config struct {
	Type        Type          `json:"type"`
	RedisClient *redis.Client `json:"-"`
}

// New creates a store instance based on configuration
func New(config Config) (Store, error) {
	switch config.Type {
	case TypeMemory, "":
		return NewMemoryStore(), nil

	case TypeRedis:
		if config.RedisClient == nil {
			return nil, fmt.Errorf("redis client required for redis store")
		}
		return NewRedisStore(config.RedisClient), nil

	default:
		return nil, fmt.Errorf("unknown store type: %s", config.Type)
	}
}
