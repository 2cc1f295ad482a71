// Package swr serves cached datasets with stale-while-revalidate semantics.
//
// Every call for a key takes one of these paths, in order:
//   - a record within FreshTTL is returned as a hit
//   - while the global cooldown is active, a record within StaleMaxAge is
//     returned as stale
//   - otherwise the caller tries to take the key's lock; the winner fetches,
//     writes the record and returns miss or refresh
//   - callers that lose the lock return a usable stale record, or wait once
//     for the winner and return warm, or fail with a 503
//
// A fetch failing with a rate-limit signal sets the global cooldown so every
// key stops calling the upstream until it expires. Store failures never
// escape: they degrade to misses, no cooldown or lost lock races.
package swr

import (
	"context"
	"fmt"
	"math"
	"time"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/kvstore"
)

// FetchFunc produces the dataset from the upstream.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Engine coordinates cached reads over a kvstore.Store. It is safe for
// concurrent use; all coordination goes through the store.
type Engine struct {
	store       kvstore.Store
	logger      logging.Logger
	defaults    Options
	now         func() time.Time
	wait        time.Duration
	cooldownKey string
}

// NewEngine creates an engine over store.
func NewEngine(store kvstore.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		logger:      logging.GetGlobalLogger(),
		defaults:    DefaultOptions(),
		now:         time.Now,
		wait:        DefaultWaitInterval,
		cooldownKey: DefaultCooldownKey,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithFields(logging.String("component", "swr"))
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() kvstore.Store {
	return e.store
}

// Defaults returns the windows used when a call passes no Option.
func (e *Engine) Defaults() Options {
	return e.defaults
}

// Invalidate deletes every cached key under prefix. Write paths call it after
// a successful upstream mutation so the next read refetches.
func (e *Engine) Invalidate(ctx context.Context, prefix string) (int, error) {
	n, err := e.store.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return n, fmt.Errorf("invalidate %s: %w", prefix, err)
	}
	e.logger.WithContext(ctx).Debug("Invalidated cache keys",
		logging.String("prefix", prefix),
		logging.Int("deleted", n),
	)
	return n, nil
}

// Cooldown returns the remaining global cooldown, or zero.
func (e *Engine) Cooldown(ctx context.Context) time.Duration {
	ttl, err := e.store.TTL(ctx, e.cooldownKey)
	if err != nil {
		e.logger.WithContext(ctx).Warn("Failed to read cooldown", logging.Err(err))
		return 0
	}
	if ttl <= 0 {
		return 0
	}
	return ttl
}

// SetCooldown starts the global cooldown, replacing any running one.
func (e *Engine) SetCooldown(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = errors.DefaultRetryAfter
	}
	if err := e.store.Set(ctx, e.cooldownKey, []byte("1"), d); err != nil {
		e.logger.WithContext(ctx).Warn("Failed to set cooldown",
			logging.Duration("cooldown", d),
			logging.Err(err),
		)
	}
}

// ClearCooldown removes the global cooldown.
func (e *Engine) ClearCooldown(ctx context.Context) error {
	return e.store.Delete(ctx, e.cooldownKey)
}

// WithCache returns the dataset cached at key, fetching it with fetch when the
// cached record is missing or past its fresh window.
//
// The only errors returned are the fetch error, when no record can stand in
// for it, and an unavailable error (503, 1s retry hint) when another caller
// holds the refresh and nothing appears after one wait.
func WithCache[T any](ctx context.Context, e *Engine, key string, fetch FetchFunc[T], opts ...Option) (*Result[T], error) {
	if key == "" {
		return nil, errors.ValidationError("cache key is required")
	}

	o := e.defaults
	for _, opt := range opts {
		opt(&o)
	}
	logger := e.logger.WithContext(ctx).WithFields(logging.String("key", key))

	cooldown := e.Cooldown(ctx)
	cached := readRecord[T](ctx, e, logger, key)
	age := recordAge(cached, e.now())

	if cached != nil && age <= o.FreshTTL {
		return &Result[T]{Data: cached.Data, Status: StatusHit, Fresh: true}, nil
	}

	usable := cached != nil && age <= o.StaleMaxAge

	if cooldown > 0 && usable {
		logger.Debug("Serving stale during cooldown", logging.Duration("cooldown", cooldown))
		return &Result[T]{Data: cached.Data, Status: StatusStale, Cooldown: cooldown}, nil
	}

	lockKey := kvstore.LockKey(key)
	acquired, err := e.store.AcquireLock(ctx, lockKey, o.LockTTL)
	if err != nil {
		logger.Warn("Failed to acquire refresh lock", logging.Err(err))
		acquired = false
	}

	if acquired {
		return refresh(ctx, e, logger, key, lockKey, cached, usable, fetch, o)
	}

	if usable {
		status := StatusStale
		if age <= o.FreshTTL {
			status = StatusHit
		}
		return &Result[T]{Data: cached.Data, Status: status, Fresh: status == StatusHit}, nil
	}

	if err := sleep(ctx, e.wait); err != nil {
		return nil, err
	}

	if warmed := readRecord[T](ctx, e, logger, key); warmed != nil {
		return &Result[T]{Data: warmed.Data, Status: StatusWarm}, nil
	}

	logger.Warn("No data available while another refresh is running")
	return nil, errors.UnavailableError("service unavailable", UnavailableRetryAfter)
}

func refresh[T any](
	ctx context.Context,
	e *Engine,
	logger logging.Logger,
	key, lockKey string,
	cached *kvstore.Record[T],
	usable bool,
	fetch FetchFunc[T],
	o Options,
) (*Result[T], error) {
	defer func() {
		// The release must run even when ctx is already cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := e.store.ReleaseLock(releaseCtx, lockKey); err != nil {
			logger.Warn("Failed to release refresh lock", logging.Err(err))
		}
	}()

	start := e.now()
	data, err := fetch(ctx)
	if err == nil {
		write(ctx, e, logger, key, kvstore.NewRecord(data, e.now()), o.StaleMaxAge)
		status := StatusMiss
		if cached != nil {
			status = StatusRefresh
		}
		logger.Debug("Refreshed cache key",
			logging.String("status", string(status)),
			logging.Duration("fetch_duration", e.now().Sub(start)),
		)
		return &Result[T]{Data: data, Status: status}, nil
	}

	if retryAfter, limited := errors.IsRateLimited(err); limited {
		logger.Warn("Upstream rate limited, starting cooldown",
			logging.Duration("retry_after", retryAfter),
		)
		e.SetCooldown(ctx, retryAfter)
		if usable {
			return &Result[T]{Data: cached.Data, Status: StatusStale, RetryAfter: retryAfter}, nil
		}
	}

	if usable {
		logger.Warn("Refresh failed, serving stale", logging.Err(err))
		return &Result[T]{Data: cached.Data, Status: StatusStale}, nil
	}

	return nil, fmt.Errorf("refresh %s: %w", key, err)
}

// write stores rec unless the key already holds a newer record, so fetchedAt
// never moves backwards when a slow refresh finishes after a faster one.
func write[T any](ctx context.Context, e *Engine, logger logging.Logger, key string, rec kvstore.Record[T], ttl time.Duration) {
	if current := readRecord[T](ctx, e, logger, key); current != nil && current.FetchedAt > rec.FetchedAt {
		logger.Debug("Skipping write, newer record present")
		return
	}
	if err := kvstore.SetRecord(ctx, e.store, key, rec, ttl); err != nil {
		logger.Warn("Failed to write cache record", logging.Err(err))
	}
}

func readRecord[T any](ctx context.Context, e *Engine, logger logging.Logger, key string) *kvstore.Record[T] {
	rec, err := kvstore.GetRecord[T](ctx, e.store, key)
	if err != nil {
		logger.Warn("Failed to read cache record", logging.Err(err))
		return nil
	}
	return rec
}

func recordAge[T any](rec *kvstore.Record[T], now time.Time) time.Duration {
	if rec == nil {
		return time.Duration(math.MaxInt64)
	}
	return rec.Age(now)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
