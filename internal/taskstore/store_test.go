package taskstore

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-dashboard/internal/common/errors"
	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/notion"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFetcher struct {
	calls atomic.Int32
	mu    sync.Mutex
	tasks []notion.Task
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]notion.Task, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]notion.Task(nil), f.tasks...), nil
}

func (f *fakeFetcher) set(tasks []notion.Task, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
	f.err = err
}

func newTestStore(t *testing.T, fetch FetchFunc, clock *fakeClock) *Store {
	t.Helper()
	s := New(fetch, DefaultConfig(), WithClock(clock.Now), WithLogger(logging.NewNopLogger()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

func sampleTasks() []notion.Task {
	return []notion.Task{
		{ID: "abc", Title: "First", Status: notion.StatusNotStarted},
		{ID: "def", Title: "Second", Status: notion.StatusInProgress},
	}
}

func TestStore_GetItemsInitialFetch(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{tasks: sampleTasks()}
	s := newTestStore(t, fetcher.Fetch, clock)

	items := s.GetItems(context.Background())
	assert.Len(t, items, 2)
	assert.Equal(t, int32(1), fetcher.calls.Load())

	stats := s.Stats()
	require.NotNil(t, stats.FetchedAt)
	assert.Equal(t, clock.Now().UnixMilli(), *stats.FetchedAt)

	// A populated snapshot is served without fetching.
	s.GetItems(context.Background())
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestStore_GetItemsReturnsCopy(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{tasks: sampleTasks()}
	s := newTestStore(t, fetcher.Fetch, clock)

	items := s.GetItems(context.Background())
	items[0].Title = "mutated"

	assert.Equal(t, "First", s.GetItems(context.Background())[0].Title)
}

func TestStore_UpdateItem(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{tasks: sampleTasks()}
	s := newTestStore(t, fetcher.Fetch, clock)
	s.GetItems(context.Background())

	clock.Advance(5 * time.Second)
	done := notion.StatusDone
	assert.True(t, s.UpdateItem("abc", notion.TaskPatch{Status: &done}))

	items := s.GetItems(context.Background())
	assert.Equal(t, notion.StatusDone, items[0].Status)
	assert.Equal(t, clock.Now(), items[0].LastModified)
	assert.Equal(t, notion.StatusInProgress, items[1].Status)

	assert.False(t, s.UpdateItem("missing", notion.TaskPatch{Status: &done}))
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestStore_RateLimitCooldown(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{err: errors.RateLimitError("notion", time.Second)}
	s := newTestStore(t, fetcher.Fetch, clock)

	assert.Empty(t, s.GetItems(context.Background()))
	stats := s.Stats()
	assert.True(t, stats.IsInCooldown)
	assert.Equal(t, int64(1), stats.CooldownSeconds)
	require.NotNil(t, stats.LastError)
	assert.Equal(t, "Rate limited", *stats.LastError)

	// A second 429 five seconds later replaces the cooldown rather than stacking.
	clock.Advance(5 * time.Second)
	s.tick()
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, int64(1), s.Stats().CooldownSeconds)
}

func TestStore_RateLimitWithoutHint(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{err: &errors.AppError{Type: errors.ErrTypeUpstream, Status: 429}}
	s := newTestStore(t, fetcher.Fetch, clock)

	s.GetItems(context.Background())
	assert.Equal(t, int64(60), s.Stats().CooldownSeconds)
}

func TestStore_ErrorCooldown(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{err: stderrors.New("boom")}
	s := newTestStore(t, fetcher.Fetch, clock)

	s.GetItems(context.Background())
	stats := s.Stats()
	assert.True(t, stats.IsInCooldown)
	assert.Equal(t, int64(10), stats.CooldownSeconds)
	require.NotNil(t, stats.LastError)
	assert.Equal(t, "boom", *stats.LastError)

	// Inside the cooldown the background job does nothing.
	clock.Advance(9 * time.Second)
	s.tick()
	assert.Equal(t, int32(1), fetcher.calls.Load())

	// Once it expires the next tick recovers and clears the error.
	clock.Advance(2 * time.Second)
	fetcher.set(sampleTasks(), nil)
	s.tick()
	assert.Equal(t, int32(2), fetcher.calls.Load())
	stats = s.Stats()
	assert.Nil(t, stats.LastError)
	assert.Equal(t, 2, stats.TaskCount)
	assert.False(t, stats.IsInCooldown)
}

func TestStore_TickHonoursRefreshInterval(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{tasks: sampleTasks()}
	s := newTestStore(t, fetcher.Fetch, clock)
	s.GetItems(context.Background())

	clock.Advance(60 * time.Second)
	s.tick()
	assert.Equal(t, int32(1), fetcher.calls.Load(), "age equal to the interval is not stale")

	clock.Advance(time.Second)
	s.tick()
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestStore_ForceRefreshClearsCooldown(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{err: errors.RateLimitError("notion", 30*time.Second)}
	s := newTestStore(t, fetcher.Fetch, clock)
	s.GetItems(context.Background())
	require.True(t, s.Stats().IsInCooldown)

	fetcher.set(sampleTasks(), nil)
	require.NoError(t, s.ForceRefresh(context.Background()))
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, 2, s.Stats().TaskCount)
	assert.False(t, s.Stats().IsInCooldown)
}

func TestStore_ForceRefreshReturnsError(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{err: stderrors.New("upstream down")}
	s := newTestStore(t, fetcher.Fetch, clock)

	err := s.ForceRefresh(context.Background())
	assert.EqualError(t, err, "upstream down")
}

func TestStore_NoOverlappingRefresh(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]notion.Task, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return sampleTasks(), nil
	}
	s := newTestStore(t, fetch, clock)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.GetItems(context.Background())
	}()
	<-started

	assert.True(t, s.Stats().IsRefreshing)
	s.tick()

	// A forced refresh waits for the running one instead of fetching again.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.ForceRefresh(ctx), context.DeadlineExceeded)

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, s.Stats().IsRefreshing)
}

func TestStore_SetItemsAndReset(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{}
	s := newTestStore(t, fetcher.Fetch, clock)

	s.SetItems(sampleTasks())
	assert.Equal(t, 2, s.Stats().TaskCount)
	clock.Advance(3 * time.Second)
	require.NotNil(t, s.Stats().AgeSeconds)
	assert.Equal(t, int64(3), *s.Stats().AgeSeconds)

	s.Reset()
	stats := s.Stats()
	assert.Equal(t, 0, stats.TaskCount)
	assert.Nil(t, stats.FetchedAt)
	assert.Nil(t, stats.AgeSeconds)
	assert.Nil(t, stats.LastError)
	assert.Equal(t, int64(60), stats.RefreshInterval)
}

func TestStore_CancelledFetchSetsNoCooldown(t *testing.T) {
	clock := newFakeClock()
	fetch := func(ctx context.Context) ([]notion.Task, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := newTestStore(t, fetch, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, s.GetItems(ctx))
	assert.False(t, s.Stats().IsInCooldown)
}

func TestStore_StartAndClose(t *testing.T) {
	clock := newFakeClock()
	fetcher := &fakeFetcher{tasks: sampleTasks()}
	s := New(fetcher.Fetch, Config{PollInterval: time.Second}, WithClock(clock.Now), WithLogger(logging.NewNopLogger()))

	s.Start()
	s.Start()

	// The first tick sees an empty, never fetched snapshot.
	assert.Eventually(t, func() bool { return fetcher.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
}

func TestStore_CloseWithoutStart(t *testing.T) {
	s := New(func(ctx context.Context) ([]notion.Task, error) { return nil, nil }, Config{})
	require.NoError(t, s.Close(context.Background()))
}
