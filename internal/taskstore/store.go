// Package taskstore keeps a process-local snapshot of the task list,
// refreshed in the background by a cron job.
//
// Refreshes never overlap. A rate-limited refresh starts a cooldown of the
// signalled length and any other failure a short fixed one; no refresh runs
// while a cooldown is active.
package taskstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/notion"
)

// FetchFunc loads the full task list from the upstream.
type FetchFunc func(ctx context.Context) ([]notion.Task, error)

// Config holds the refresh timings.
type Config struct {
	// RefreshInterval is the snapshot age that triggers a background refresh.
	RefreshInterval time.Duration
	// PollInterval is how often the background job checks the snapshot age.
	PollInterval time.Duration
	// RateLimitCooldown applies after a 429 that carried no retry hint.
	RateLimitCooldown time.Duration
	// ErrorCooldown applies after any other refresh failure.
	ErrorCooldown time.Duration
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:   60 * time.Second,
		PollInterval:      10 * time.Second,
		RateLimitCooldown: 60 * time.Second,
		ErrorCooldown:     10 * time.Second,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// refreshCall tracks the refresh in progress so concurrent forced refreshes
// can wait for it instead of starting another.
type refreshCall struct {
	done chan struct{}
	err  error
}

// Store is the task snapshot. The zero value is not usable; use New.
type Store struct {
	fetch  FetchFunc
	config Config
	logger logging.Logger
	now    func() time.Time

	mu            sync.Mutex
	items         []notion.Task
	fetchedAt     time.Time
	inflight      *refreshCall
	cooldownUntil time.Time
	lastError     string

	startOnce sync.Once
	scheduler *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates an empty store. Zero timings in config fall back to the defaults.
func New(fetch FetchFunc, config Config, opts ...Option) *Store {
	defaults := DefaultConfig()
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = defaults.RefreshInterval
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.RateLimitCooldown <= 0 {
		config.RateLimitCooldown = defaults.RateLimitCooldown
	}
	if config.ErrorCooldown <= 0 {
		config.ErrorCooldown = defaults.ErrorCooldown
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		fetch:  fetch,
		config: config,
		logger: logging.GetGlobalLogger(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithFields(logging.String("component", "taskstore"))
	return s
}

// Start schedules the background refresh job. Calling it again is a no-op.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.scheduler = cron.New(cron.WithChain(
			cron.Recover(cronLogger{s.logger}),
			cron.SkipIfStillRunning(cronLogger{s.logger}),
		))
		s.scheduler.Schedule(cron.Every(s.config.PollInterval), cron.FuncJob(s.tick))
		s.scheduler.Start()
		s.logger.Info("Started background refresh",
			logging.Duration("refresh_interval", s.config.RefreshInterval),
			logging.Duration("poll_interval", s.config.PollInterval),
		)
	})
}

// Close stops the background job and waits for a running tick to finish or
// for ctx to expire.
func (s *Store) Close(ctx context.Context) error {
	s.cancel()
	s.startOnce.Do(func() {})
	if s.scheduler == nil {
		return nil
	}
	select {
	case <-s.scheduler.Stop().Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop refresh job: %w", ctx.Err())
	}
}

// GetItems returns a copy of the snapshot. It starts the background job and,
// when the snapshot is empty and nothing is refreshing, refreshes once
// before returning. Refresh failures are recorded, not returned.
func (s *Store) GetItems(ctx context.Context) []notion.Task {
	s.Start()

	s.mu.Lock()
	empty := len(s.items) == 0 && s.inflight == nil
	s.mu.Unlock()

	if empty {
		_ = s.refresh(ctx, false)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notion.Task(nil), s.items...)
}

// SetItems replaces the snapshot and stamps it as fetched now.
func (s *Store) SetItems(items []notion.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]notion.Task(nil), items...)
	s.fetchedAt = s.now()
	s.logger.Debug("Snapshot replaced", logging.Int("count", len(items)))
}

// UpdateItem merges patch into the task with the given id and stamps its
// modification time. It reports whether the task was found.
func (s *Store) UpdateItem(id string, patch notion.TaskPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		patch.Apply(&s.items[i])
		s.items[i].LastModified = s.now().UTC()
		return true
	}
	s.logger.Warn("Task not found in snapshot", logging.String("task_id", id))
	return false
}

// ForceRefresh clears the cooldown and refreshes now. If a refresh is already
// running it waits for that one instead. The refresh error is returned.
func (s *Store) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	s.cooldownUntil = time.Time{}
	s.mu.Unlock()
	return s.refresh(ctx, true)
}

// Reset empties the snapshot and clears cooldown and error state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.fetchedAt = time.Time{}
	s.cooldownUntil = time.Time{}
	s.lastError = ""
	s.logger.Info("Snapshot cleared")
}

// tick is the background job body.
func (s *Store) tick() {
	if !s.shouldRefresh() {
		return
	}
	if err := s.refresh(s.ctx, false); err != nil {
		s.logger.Debug("Background refresh failed", logging.Err(err))
	}
}

func (s *Store) shouldRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.inCooldown(now) {
		return false
	}
	if s.fetchedAt.IsZero() {
		return true
	}
	return now.Sub(s.fetchedAt) > s.config.RefreshInterval
}

// refresh runs one fetch unless one is running or a cooldown is active. With
// wait set, a caller finding a refresh in progress waits for its outcome.
func (s *Store) refresh(ctx context.Context, wait bool) error {
	s.mu.Lock()
	if call := s.inflight; call != nil {
		s.mu.Unlock()
		if !wait {
			s.logger.Debug("Refresh already in progress, skipping")
			return nil
		}
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if now := s.now(); s.inCooldown(now) {
		remaining := s.cooldownUntil.Sub(now)
		s.mu.Unlock()
		s.logger.Debug("In cooldown, skipping refresh", logging.Duration("remaining", remaining))
		return nil
	}
	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.lastError = ""
	s.mu.Unlock()

	items, err := s.fetch(ctx)

	s.mu.Lock()
	if err == nil {
		s.items = items
		s.fetchedAt = s.now()
		s.logger.Info("Refreshed task snapshot", logging.Int("count", len(items)))
	} else if ctx.Err() != nil {
		// The caller went away; the upstream did not fail.
		s.logger.Debug("Refresh cancelled", logging.Err(err))
	} else if _, limited := errors.IsRateLimited(err); limited {
		cooldown := errors.RetryAfter(err)
		if cooldown <= 0 {
			cooldown = s.config.RateLimitCooldown
		}
		s.cooldownUntil = s.now().Add(cooldown)
		s.lastError = "Rate limited"
		s.logger.Warn("Rate limited, starting cooldown", logging.Duration("cooldown", cooldown))
	} else {
		s.cooldownUntil = s.now().Add(s.config.ErrorCooldown)
		s.lastError = err.Error()
		s.logger.Error("Failed to refresh task snapshot", err,
			logging.Duration("cooldown", s.config.ErrorCooldown),
		)
	}
	s.inflight = nil
	s.mu.Unlock()

	call.err = err
	close(call.done)
	return err
}

// inCooldown must be called with mu held.
func (s *Store) inCooldown(now time.Time) bool {
	return !s.cooldownUntil.IsZero() && now.Before(s.cooldownUntil)
}
