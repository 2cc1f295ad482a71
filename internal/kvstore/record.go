package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Record is a cached dataset plus the time it was fetched upstream.
// Records are replaced wholesale, never mutated in place.
type Record[T any] struct {
	Data      T     `json:"data"`
	FetchedAt int64 `json:"fetchedAt"` // epoch milliseconds
}

// NewRecord stamps data with fetchedAt.
func NewRecord[T any](data T, fetchedAt time.Time) Record[T] {
	return Record[T]{Data: data, FetchedAt: fetchedAt.UnixMilli()}
}

// Age returns how long ago the record was fetched, relative to now.
func (r *Record[T]) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(r.FetchedAt))
}

// GetRecord reads and decodes the record stored at key. A missing, expired or
// malformed entry yields (nil, nil); only backend failures are returned as errors.
func GetRecord[T any](ctx context.Context, store Store, key string) (*Record[T], error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var rec Record[T]
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

// SetRecord encodes rec and writes it at key with ttl.
func SetRecord[T any](ctx context.Context, store Store, key string, rec Record[T], ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}
	return store.Set(ctx, key, raw, ttl)
}
