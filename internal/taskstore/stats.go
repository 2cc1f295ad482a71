package taskstore

import (
	"math"
	"time"
)

// Stats is the snapshot introspection served by the store-stats endpoint.
// FetchedAt is epoch milliseconds; nil fields mean "never".
type Stats struct {
	TaskCount       int     `json:"taskCount"`
	FetchedAt       *int64  `json:"fetchedAt"`
	AgeSeconds      *int64  `json:"ageSeconds"`
	IsRefreshing    bool    `json:"isRefreshing"`
	IsInCooldown    bool    `json:"isInCooldown"`
	CooldownSeconds int64   `json:"cooldownSeconds"`
	LastError       *string `json:"lastError"`
	RefreshInterval int64   `json:"refreshInterval"`
}

// Stats reports the snapshot state without doing any I/O.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := Stats{
		TaskCount:       len(s.items),
		IsRefreshing:    s.inflight != nil,
		IsInCooldown:    s.inCooldown(now),
		RefreshInterval: int64(s.config.RefreshInterval / time.Second),
	}
	if !s.fetchedAt.IsZero() {
		fetchedAt := s.fetchedAt.UnixMilli()
		age := int64(now.Sub(s.fetchedAt) / time.Second)
		stats.FetchedAt = &fetchedAt
		stats.AgeSeconds = &age
	}
	if remaining := s.cooldownUntil.Sub(now); !s.cooldownUntil.IsZero() && remaining > 0 {
		stats.CooldownSeconds = int64(math.Ceil(remaining.Seconds()))
	}
	if s.lastError != "" {
		lastError := s.lastError
		stats.LastError = &lastError
	}
	return stats
}
