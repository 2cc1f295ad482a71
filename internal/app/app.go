package app

import (
	"context"
	"fmt"

	"task-dashboard/internal/common/logging"
	"task-dashboard/internal/common/ratelimit"
	"task-dashboard/internal/config"
	"task-dashboard/internal/kvstore"
	"task-dashboard/internal/notion"
	"task-dashboard/internal/redis"
	"task-dashboard/internal/swr"
	"task-dashboard/internal/taskstore"
)

// App holds all the application dependencies
type App struct {
	Config       *config.Config
	RedisClient  *redis.Client
	Store        kvstore.Store
	Cache        *swr.Engine
	Notion       *notion.Client
	Tasks        *taskstore.Store
	WriteLimiter *ratelimit.Limiter
	Logger       logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.Component("app"),
	}

	// Initialize components in order of dependency
	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	app.Cache = swr.NewEngine(app.Store, swr.WithDefaults(swr.Options{
		FreshTTL:    cfg.FreshTTL(),
		StaleMaxAge: cfg.StaleMaxAge(),
		LockTTL:     cfg.LockTTL(),
	}))

	app.initializeNotion()

	if err := app.initializeWriteLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

func (app *App) initializeNotion() {
	app.Notion = notion.NewClient(notion.Config{
		APIKey:            app.Config.NotionAPIKey,
		DatabaseID:        app.Config.NotionDatabaseID,
		BaseURL:           app.Config.NotionAPIURL,
		Version:           app.Config.NotionVersion,
		RequestsPerSecond: app.Config.NotionRequestsPerSecond,
	}, logging.GetGlobalLogger())
	if !app.Notion.Configured() {
		app.Logger.Warn("Notion: credentials missing, task endpoints will answer 500")
	}

	// The snapshot always loads the whole database; filters apply in memory.
	// Its background job starts on the first read.
	app.Tasks = taskstore.New(
		func(ctx context.Context) ([]notion.Task, error) {
			return app.Notion.QueryTasks(ctx, notion.TaskFilter{})
		},
		taskstore.Config{
			RefreshInterval:   app.Config.RefreshInterval(),
			PollInterval:      app.Config.RefreshPoll(),
			RateLimitCooldown: app.Config.RateLimitCooldown(),
			ErrorCooldown:     app.Config.ErrorCooldown(),
		},
	)
	app.Logger.Info("Task cache configured",
		logging.String("strategy", app.Config.CacheStrategy),
		logging.Duration("refresh_interval", app.Config.RefreshInterval()),
	)
}

func (app *App) initializeWriteLimiter() error {
	limitConfig := ratelimit.DefaultConfig()
	limitConfig.RequestsPerSecond = app.Config.WriteRequestsPerSecond
	limitConfig.BurstSize = app.Config.WriteBurst

	limiter, err := ratelimit.New(limitConfig)
	if err != nil {
		return fmt.Errorf("write rate limiter: %w", err)
	}
	app.WriteLimiter = limiter
	return nil
}

// Shutdown stops background work, waiting at most until ctx expires.
func (app *App) Shutdown(ctx context.Context) error {
	if app.Tasks == nil {
		return nil
	}
	if err := app.Tasks.Close(ctx); err != nil {
		return err
	}
	app.Logger.Info("Background refresh stopped")
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			app.Logger.Warn("Error closing cache store", logging.Err(err))
		}
	}
	if app.RedisClient != nil {
		_ = app.RedisClient.Close()
	}
}
