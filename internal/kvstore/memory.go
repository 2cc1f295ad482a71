package kvstore

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local store over patrickmn/go-cache. The janitor
// is disabled: go-cache checks expiry on every read, so expired keys and
// locks are treated as absent without a background goroutine and are swept
// by DeleteByPrefix or overwritten on the next write.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	m.cache.Set(key, stored, expiration(ttl))
	return nil
}

func (m *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	_, expiresAt, found := m.cache.GetWithExpiration(key)
	if !found {
		return TTLMissing, nil
	}
	if expiresAt.IsZero() {
		return TTLNoExpiry, nil
	}
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		return TTLMissing, nil
	}
	return remaining, nil
}

// AcquireLock relies on go-cache Add, which fails while an unexpired item
// exists and replaces an expired one under the cache mutex.
func (m *MemoryStore) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	if err := m.cache.Add(lockKey, []byte("1"), expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) ReleaseLock(ctx context.Context, lockKey string) error {
	m.cache.Delete(lockKey)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// DeleteByPrefix counts only live keys and also sweeps expired entries.
func (m *MemoryStore) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	live := m.cache.Items()
	deleted := 0
	for key := range live {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
			deleted++
		}
	}
	m.cache.DeleteExpired()
	return deleted, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Backend() string {
	return string(TypeMemory)
}

// Close drops every entry.
func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
