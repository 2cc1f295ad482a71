package app

import (
	"fmt"

	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/config"
	"task-dashboard/internal/kvstore"
	"task-dashboard/internal/redis"
)

// initializeStore selects the cache backend. "auto" uses Redis when it is
// configured and reachable and falls back to memory otherwise; "redis"
// fails startup when Redis cannot be reached.
func (app *App) initializeStore() error {
	backend := app.Config.CacheBackend

	if backend == config.BackendMemory || (backend == config.BackendAuto && app.Config.RedisAddress == "") {
		return app.useMemoryStore("configured")
	}

	redisClient, err := redis.NewClient(&redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDB,
		PoolSize: app.Config.RedisPoolSize,
	})
	if err != nil {
		if backend == config.BackendRedis {
			return fmt.Errorf("cache backend redis: %w", err)
		}
		app.Logger.Warn("Redis unreachable, falling back to in-memory cache",
			logging.String("address", app.Config.RedisAddress),
			logging.Err(err),
		)
		return app.useMemoryStore("fallback")
	}

	store, err := kvstore.New(kvstore.Config{Type: kvstore.TypeRedis, RedisClient: redisClient})
	if err != nil {
		_ = redisClient.Close()
		return err
	}
	app.RedisClient = redisClient
	app.Store = store
	app.Logger.Info("Cache: Redis connected", logging.String("address", redisClient.Address()))
	return nil
}

func (app *App) useMemoryStore(reason string) error {
	store, err := kvstore.New(kvstore.Config{Type: kvstore.TypeMemory})
	if err != nil {
		return err
	}
	app.Store = store
	app.Logger.Info("Cache: in-memory", logging.String("reason", reason))
	return nil
}
