package swr

import (
	"time"

	"task-dashboard/internal/common/logging"
)

// Default windows.
const (
	DefaultFreshTTL     = 60 * time.Second
	DefaultStaleMaxAge  = 300 * time.Second
	DefaultLockTTL      = 10 * time.Second
	DefaultWaitInterval = 400 * time.Millisecond
	DefaultCooldownKey  = "cooldown:notion"
	// UnavailableRetryAfter is the retry hint sent when nothing can be served.
	UnavailableRetryAfter = time.Second
)

// Options are the per-call cache windows.
type Options struct {
	// FreshTTL is how long a record is served without revalidation.
	FreshTTL time.Duration
	// StaleMaxAge bounds how old a record may be when served as a fallback.
	// It is also the TTL of written records.
	StaleMaxAge time.Duration
	// LockTTL bounds how long one refresh can hold the key.
	LockTTL time.Duration
}

// DefaultOptions returns 60s fresh, 300s stale and a 10s lock.
func DefaultOptions() Options {
	return Options{
		FreshTTL:    DefaultFreshTTL,
		StaleMaxAge: DefaultStaleMaxAge,
		LockTTL:     DefaultLockTTL,
	}
}

// Option overrides one cache window for a single call.
type Option func(*Options)

func WithFreshTTL(d time.Duration) Option {
	return func(o *Options) { o.FreshTTL = d }
}

func WithStaleMaxAge(d time.Duration) Option {
	return func(o *Options) { o.StaleMaxAge = d }
}

func WithLockTTL(d time.Duration) Option {
	return func(o *Options) { o.LockTTL = d }
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaults sets the windows used when a call passes no Option.
func WithDefaults(opts Options) EngineOption {
	return func(e *Engine) { e.defaults = opts }
}

// WithClock replaces time.Now for age computations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithWaitInterval sets how long a caller that lost the lock waits before re-reading.
func WithWaitInterval(d time.Duration) EngineOption {
	return func(e *Engine) { e.wait = d }
}

// WithCooldownKey names the store key of the global cooldown marker.
func WithCooldownKey(key string) EngineOption {
	return func(e *Engine) { e.cooldownKey = key }
}

func WithLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}
