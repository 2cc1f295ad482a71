package kvstore

import (
	"context"
	"time"

	"task-dashboard/internal/redis"
)

// RedisStore backs the store with Redis, shared across instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store over an already connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return r.client.Get(ctx, key)
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl)
}

func (r *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, key)
	if err != nil {
		return TTLMissing, err
	}
	switch {
	case ttl == TTLMissing, ttl == TTLNoExpiry:
		return ttl, nil
	case ttl < 0:
		return TTLMissing, nil
	}
	return ttl, nil
}

func (r *RedisStore) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return r.client.AcquireLock(ctx, lockKey, ttl)
}

func (r *RedisStore) ReleaseLock(ctx context.Context, lockKey string) error {
	return r.client.ReleaseLock(ctx, lockKey)
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Delete(ctx, key)
}

func (r *RedisStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	return r.client.DeleteByPrefix(ctx, prefix)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Health(ctx)
}

func (r *RedisStore) Backend() string {
	return string(TypeRedis)
}

// Close is a no-op; the client is owned by whoever created it.
func (r *RedisStore) Close() error {
	return nil
}
