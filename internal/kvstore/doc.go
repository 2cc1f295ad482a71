// Package kvstore is the key-value layer under the cache engine.
//
// It wraps two backends behind one Store interface:
//   - Redis through internal/redis (github.com/go-redis/redis/v8), shared by
//     every instance pointed at the same server
//   - github.com/patrickmn/go-cache for a process-local fallback
//
// Values are opaque bytes. Cache records are JSON documents of the form
// {"data": ..., "fetchedAt": <epoch ms>} so both backends store the same
// payload and a corrupt payload reads as a miss on either.
//
// Usage:
//
//	store, err := kvstore.New(kvstore.Config{Type: kvstore.TypeMemory})
//	err = kvstore.SetRecord(ctx, store, "notion:tasks:all", kvstore.NewRecord(tasks, time.Now()), 5*time.Minute)
//	rec, err := kvstore.GetRecord[[]notion.Task](ctx, store, "notion:tasks:all")
//
// Locks are plain keys written with set-if-absent and a TTL:
//
//	ok, err := store.AcquireLock(ctx, kvstore.LockKey("notion:tasks:all"), 10*time.Second)
//	defer store.ReleaseLock(ctx, kvstore.LockKey("notion:tasks:all"))
package kvstore
