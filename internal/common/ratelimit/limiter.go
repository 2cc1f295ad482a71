// Package ratelimit limits inbound requests per client key with
// golang.org/x/time/rate token buckets.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config represents rate limiter configuration
type Config struct {
	RequestsPerSecond int
	BurstSize         int
	// MaxKeys triggers an early cleanup once this many keys are tracked.
	MaxKeys int
	// CleanupPeriod is how long an unused key is kept.
	CleanupPeriod time.Duration
}

// DefaultConfig returns a limiter suitable for the mutating endpoints.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		BurstSize:         5,
		MaxKeys:           10000,
		CleanupPeriod:     10 * time.Minute,
	}
}

// Validate validates the rate limiter configuration
func (c Config) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %d", c.RequestsPerSecond)
	}
	if c.BurstSize <= 0 {
		return fmt.Errorf("burst size must be positive, got %d", c.BurstSize)
	}
	if c.MaxKeys <= 0 {
		return fmt.Errorf("max keys must be positive, got %d", c.MaxKeys)
	}
	if c.CleanupPeriod <= 0 {
		return fmt.Errorf("cleanup period must be positive, got %v", c.CleanupPeriod)
	}
	return nil
}

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu          sync.Mutex
	config      Config
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
	now         func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// New creates a keyed limiter.
func New(config Config) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}, nil
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.limiterFor(key).AllowN(l.now(), 1)
}

// Limit returns the configured requests per second.
func (l *Limiter) Limit() int {
	return l.config.RequestsPerSecond
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) > l.config.CleanupPeriod {
		l.cleanup(now)
	}

	entry, exists := l.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize),
		}
		l.limiters[key] = entry
		if len(l.limiters) > l.config.MaxKeys {
			l.cleanup(now)
		}
	}
	entry.lastUsed = now
	return entry.limiter
}

// cleanup removes limiters that haven't been used recently. mu must be held.
func (l *Limiter) cleanup(now time.Time) {
	cutoff := now.Add(-l.config.CleanupPeriod)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
	l.lastCleanup = now
}
