package swr

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Status is the cache outcome reported in X-Cache.
type Status string

const (
	// StatusHit is a fresh record served without upstream contact.
	StatusHit Status = "hit"
	// StatusStale is an old record served as a fallback.
	StatusStale Status = "stale"
	// StatusMiss is a fetch with no prior record.
	StatusMiss Status = "miss"
	// StatusRefresh is a fetch that replaced a prior record.
	StatusRefresh Status = "refresh"
	// StatusWarm is a record written by a concurrent refresh while this call waited.
	StatusWarm Status = "warm"
)

// Header names.
const (
	HeaderCache      = "X-Cache"
	HeaderCacheFresh = "X-Cache-Fresh"
	HeaderCooldown   = "X-Cooldown"
	HeaderRetryAfter = "Retry-After"
)

// Result is the data served for a key plus the cache state that produced it.
type Result[T any] struct {
	Data   T
	Status Status
	// Fresh is set for records served within the fresh window.
	Fresh bool
	// Cooldown is the remaining global cooldown when it caused a stale read.
	Cooldown time.Duration
	// RetryAfter is the backoff requested by the upstream on this call.
	RetryAfter time.Duration
}

// Headers renders the result as response headers. X-Cache is always present.
func (r *Result[T]) Headers() map[string]string {
	headers := map[string]string{HeaderCache: string(r.Status)}
	if r.Fresh {
		headers[HeaderCacheFresh] = "true"
	}
	if r.Cooldown > 0 {
		headers[HeaderCooldown] = strconv.Itoa(Seconds(r.Cooldown))
	}
	if r.RetryAfter > 0 {
		headers[HeaderRetryAfter] = strconv.Itoa(Seconds(r.RetryAfter))
	}
	return headers
}

// WriteHeaders sets the cache headers on h.
func (r *Result[T]) WriteHeaders(h http.Header) {
	for name, value := range r.Headers() {
		h.Set(name, value)
	}
}

// Seconds rounds d up to whole seconds, with a minimum of 1 for positive d.
func Seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
