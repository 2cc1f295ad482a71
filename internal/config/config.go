// Package config provides configuration management for the task dashboard.
// It loads configuration from environment variables with sensible defaults
// and validates it so the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Optional log file path (default: stdout)
//   - LOG_FORMAT: "console" or "json" (default: console)
//
// Notion:
//   - NOTION_API_KEY: Integration token (required by the task endpoints)
//   - NOTION_DATABASE_ID: Tasks database id (required by the task endpoints)
//   - NOTION_API_URL: API base URL (default: https://api.notion.com/v1)
//   - NOTION_VERSION: Notion-Version header (default: 2022-06-28)
//   - NOTION_REQUESTS_PER_SECOND: Outbound request pacing (default: 3)
//
// Caching:
//   - CACHE_STRATEGY: "periodic" or "swr" for the task list (default: periodic)
//   - CACHE_BACKEND: "auto", "redis" or "memory" (default: auto)
//   - CACHE_FRESH_TTL_SECONDS: Fresh window (default: 60)
//   - CACHE_STALE_MAX_AGE_SECONDS: Stale window and record TTL (default: 300)
//   - CACHE_LOCK_TTL_SECONDS: Refresh lock TTL (default: 10)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address (empty disables Redis under "auto")
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Periodic refresh:
//   - REFRESH_INTERVAL_SECONDS: Snapshot max age before refresh (default: 60)
//   - REFRESH_POLL_SECONDS: Background check interval (default: 10)
//   - RATE_LIMIT_COOLDOWN_SECONDS: Cooldown after a 429 without Retry-After (default: 60)
//   - ERROR_COOLDOWN_SECONDS: Cooldown after any other refresh error (default: 10)
//
// Inbound limits:
//   - WRITE_REQUESTS_PER_SECOND: Per-client rate for PATCH and refresh (default: 2)
//   - WRITE_BURST: Per-client burst for PATCH and refresh (default: 5)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache strategies for the task list endpoint.
const (
	StrategyPeriodic = "periodic"
	StrategySWR      = "swr"
)

// Cache backends.
const (
	BackendAuto   = "auto"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration values for the task dashboard.
type Config struct {
	// Application settings
	Port      string
	LogLevel  string
	LogFile   string
	LogFormat string

	// Notion upstream
	NotionAPIKey            string
	NotionDatabaseID        string
	NotionAPIURL            string
	NotionVersion           string
	NotionRequestsPerSecond int

	// Cache selection
	CacheStrategy string
	CacheBackend  string

	// Redis configuration
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// SWR windows, in seconds
	CacheFreshTTLSeconds    int
	CacheStaleMaxAgeSeconds int
	CacheLockTTLSeconds     int

	// Periodic refresh store, in seconds
	RefreshIntervalSeconds   int
	RefreshPollSeconds       int
	RateLimitCooldownSeconds int
	ErrorCooldownSeconds     int

	// Per-client limits on the mutating endpoints
	WriteRequestsPerSecond int
	WriteBurst             int
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", ""),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		NotionAPIKey:            getEnv("NOTION_API_KEY", ""),
		NotionDatabaseID:        getEnv("NOTION_DATABASE_ID", ""),
		NotionAPIURL:            getEnv("NOTION_API_URL", "https://api.notion.com/v1"),
		NotionVersion:           getEnv("NOTION_VERSION", "2022-06-28"),
		NotionRequestsPerSecond: getIntEnv("NOTION_REQUESTS_PER_SECOND", 3),

		CacheStrategy: strings.ToLower(getEnv("CACHE_STRATEGY", StrategyPeriodic)),
		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", BackendAuto)),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPoolSize: getIntEnv("REDIS_POOL_SIZE", 10),

		CacheFreshTTLSeconds:    getIntEnv("CACHE_FRESH_TTL_SECONDS", 60),
		CacheStaleMaxAgeSeconds: getIntEnv("CACHE_STALE_MAX_AGE_SECONDS", 300),
		CacheLockTTLSeconds:     getIntEnv("CACHE_LOCK_TTL_SECONDS", 10),

		RefreshIntervalSeconds:   getIntEnv("REFRESH_INTERVAL_SECONDS", 60),
		RefreshPollSeconds:       getIntEnv("REFRESH_POLL_SECONDS", 10),
		RateLimitCooldownSeconds: getIntEnv("RATE_LIMIT_COOLDOWN_SECONDS", 60),
		ErrorCooldownSeconds:     getIntEnv("ERROR_COOLDOWN_SECONDS", 10),

		WriteRequestsPerSecond: getIntEnv("WRITE_REQUESTS_PER_SECOND", 2),
		WriteBurst:             getIntEnv("WRITE_BURST", 5),
	}
}

// HasNotionCredentials reports whether both the API key and database id are set.
func (c *Config) HasNotionCredentials() bool {
	return c.NotionAPIKey != "" && c.NotionDatabaseID != ""
}

// FreshTTL returns the SWR fresh window.
func (c *Config) FreshTTL() time.Duration { return seconds(c.CacheFreshTTLSeconds) }

// StaleMaxAge returns the SWR stale window.
func (c *Config) StaleMaxAge() time.Duration { return seconds(c.CacheStaleMaxAgeSeconds) }

// LockTTL returns the SWR refresh lock TTL.
func (c *Config) LockTTL() time.Duration { return seconds(c.CacheLockTTLSeconds) }

// RefreshInterval returns the snapshot max age.
func (c *Config) RefreshInterval() time.Duration { return seconds(c.RefreshIntervalSeconds) }

// RefreshPoll returns the background check interval.
func (c *Config) RefreshPoll() time.Duration { return seconds(c.RefreshPollSeconds) }

// RateLimitCooldown returns the fallback cooldown after a 429.
func (c *Config) RateLimitCooldown() time.Duration { return seconds(c.RateLimitCooldownSeconds) }

// ErrorCooldown returns the cooldown after a non rate-limit refresh error.
func (c *Config) ErrorCooldown() time.Duration { return seconds(c.ErrorCooldownSeconds) }

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable value or returns a default value.
// Unparseable values fall back to the default.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks ranges and enumerations. Missing Notion credentials are not
// a startup error; the task endpoints report them per request.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.CacheStrategy {
	case StrategyPeriodic, StrategySWR:
	default:
		return fmt.Errorf("CACHE_STRATEGY must be '%s' or '%s'", StrategyPeriodic, StrategySWR)
	}

	switch c.CacheBackend {
	case BackendAuto, BackendMemory:
	case BackendRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required when CACHE_BACKEND is 'redis'")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be '%s', '%s' or '%s'", BackendAuto, BackendRedis, BackendMemory)
	}

	if c.RedisAddress != "" {
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if c.RedisPoolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if u, err := url.Parse(c.NotionAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("NOTION_API_URL must be an absolute URL")
	}
	if c.NotionRequestsPerSecond < 1 {
		return fmt.Errorf("NOTION_REQUESTS_PER_SECOND must be a positive number")
	}

	for _, field := range []struct {
		name  string
		value int
	}{
		{"CACHE_FRESH_TTL_SECONDS", c.CacheFreshTTLSeconds},
		{"CACHE_STALE_MAX_AGE_SECONDS", c.CacheStaleMaxAgeSeconds},
		{"CACHE_LOCK_TTL_SECONDS", c.CacheLockTTLSeconds},
		{"REFRESH_INTERVAL_SECONDS", c.RefreshIntervalSeconds},
		{"REFRESH_POLL_SECONDS", c.RefreshPollSeconds},
		{"RATE_LIMIT_COOLDOWN_SECONDS", c.RateLimitCooldownSeconds},
		{"ERROR_COOLDOWN_SECONDS", c.ErrorCooldownSeconds},
		{"WRITE_REQUESTS_PER_SECOND", c.WriteRequestsPerSecond},
		{"WRITE_BURST", c.WriteBurst},
	} {
		if field.value < 1 {
			return fmt.Errorf("%s must be a positive number", field.name)
		}
	}

	// freshTtl > staleMaxAge is allowed but makes the stale tier unreachable.
	return nil
}
