package config

import (
	"strings"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"PORT", "LOG_LEVEL", "LOG_FILE", "LOG_FORMAT",
	"NOTION_API_KEY", "NOTION_DATABASE_ID", "NOTION_API_URL", "NOTION_VERSION",
	"NOTION_REQUESTS_PER_SECOND", "CACHE_STRATEGY", "CACHE_BACKEND",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE",
	"CACHE_FRESH_TTL_SECONDS", "CACHE_STALE_MAX_AGE_SECONDS", "CACHE_LOCK_TTL_SECONDS",
	"REFRESH_INTERVAL_SECONDS", "REFRESH_POLL_SECONDS",
	"RATE_LIMIT_COOLDOWN_SECONDS", "ERROR_COOLDOWN_SECONDS",
	"WRITE_REQUESTS_PER_SECOND", "WRITE_BURST",
}

// clearTestEnvVars blanks every variable Load reads; getEnv treats empty as unset.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearTestEnvVars(t)

	config := Load()

	if config.Port != "8080" {
		t.Errorf("Load() Port = %v, want %v", config.Port, "8080")
	}
	if config.LogLevel != "info" {
		t.Errorf("Load() LogLevel = %v, want %v", config.LogLevel, "info")
	}
	if config.LogFormat != "console" {
		t.Errorf("Load() LogFormat = %v, want console", config.LogFormat)
	}
	if config.NotionAPIURL != "https://api.notion.com/v1" {
		t.Errorf("Load() NotionAPIURL = %v", config.NotionAPIURL)
	}
	if config.NotionVersion != "2022-06-28" {
		t.Errorf("Load() NotionVersion = %v", config.NotionVersion)
	}
	if config.NotionRequestsPerSecond != 3 {
		t.Errorf("Load() NotionRequestsPerSecond = %d, want 3", config.NotionRequestsPerSecond)
	}
	if config.CacheStrategy != StrategyPeriodic {
		t.Errorf("Load() CacheStrategy = %v, want %v", config.CacheStrategy, StrategyPeriodic)
	}
	if config.CacheBackend != BackendAuto {
		t.Errorf("Load() CacheBackend = %v, want %v", config.CacheBackend, BackendAuto)
	}
	if config.RedisAddress != "" {
		t.Errorf("Load() RedisAddress = %v, want empty", config.RedisAddress)
	}
	if config.RedisPoolSize != 10 {
		t.Errorf("Load() RedisPoolSize = %d, want 10", config.RedisPoolSize)
	}
	if config.WriteRequestsPerSecond != 2 || config.WriteBurst != 5 {
		t.Errorf("Load() write limits = %d/%d, want 2/5", config.WriteRequestsPerSecond, config.WriteBurst)
	}

	durations := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"FreshTTL", config.FreshTTL(), 60 * time.Second},
		{"StaleMaxAge", config.StaleMaxAge(), 300 * time.Second},
		{"LockTTL", config.LockTTL(), 10 * time.Second},
		{"RefreshInterval", config.RefreshInterval(), 60 * time.Second},
		{"RefreshPoll", config.RefreshPoll(), 10 * time.Second},
		{"RateLimitCooldown", config.RateLimitCooldown(), 60 * time.Second},
		{"ErrorCooldown", config.ErrorCooldown(), 10 * time.Second},
	}
	for _, d := range durations {
		if d.got != d.want {
			t.Errorf("%s() = %v, want %v", d.name, d.got, d.want)
		}
	}

	if config.HasNotionCredentials() {
		t.Error("HasNotionCredentials() = true without credentials")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)
	envVars := map[string]string{
		"PORT":                        "9090",
		"NOTION_API_KEY":              "secret_abc",
		"NOTION_DATABASE_ID":          "db123",
		"CACHE_STRATEGY":              "SWR",
		"CACHE_BACKEND":               "redis",
		"REDIS_ADDRESS":               "redis:6379",
		"REDIS_DB":                    "2",
		"REDIS_POOL_SIZE":             "20",
		"CACHE_FRESH_TTL_SECONDS":     "30",
		"CACHE_STALE_MAX_AGE_SECONDS": "600",
		"RATE_LIMIT_COOLDOWN_SECONDS": " 90 ",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	config := Load()

	if config.Port != "9090" {
		t.Errorf("Port = %v, want 9090", config.Port)
	}
	if !config.HasNotionCredentials() {
		t.Error("HasNotionCredentials() = false, want true")
	}
	if config.CacheStrategy != StrategySWR {
		t.Errorf("CacheStrategy = %v, want %v", config.CacheStrategy, StrategySWR)
	}
	if config.CacheBackend != BackendRedis {
		t.Errorf("CacheBackend = %v, want %v", config.CacheBackend, BackendRedis)
	}
	if config.RedisDB != 2 || config.RedisPoolSize != 20 {
		t.Errorf("RedisDB/RedisPoolSize = %d/%d, want 2/20", config.RedisDB, config.RedisPoolSize)
	}
	if config.FreshTTL() != 30*time.Second {
		t.Errorf("FreshTTL() = %v, want 30s", config.FreshTTL())
	}
	if config.StaleMaxAge() != 10*time.Minute {
		t.Errorf("StaleMaxAge() = %v, want 10m", config.StaleMaxAge())
	}
	if config.RateLimitCooldown() != 90*time.Second {
		t.Errorf("RateLimitCooldown() = %v, want 90s", config.RateLimitCooldown())
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestGetIntEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"unset", "", 7, 7},
		{"number", "42", 7, 42},
		{"negative", "-1", 7, -1},
		{"garbage", "ten", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_ENV", tt.value)
			if got := getIntEnv("TEST_INT_ENV", tt.defaultValue); got != tt.want {
				t.Errorf("getIntEnv() = %d, want %d", got, tt.want)
			}
		})
	}
}

func validConfig() *Config {
	clone := *defaults
	return &clone
}

var defaults = &Config{
	Port:                     "8080",
	NotionAPIURL:             "https://api.notion.com/v1",
	NotionRequestsPerSecond:  3,
	CacheStrategy:            StrategyPeriodic,
	CacheBackend:             BackendAuto,
	RedisPoolSize:            10,
	CacheFreshTTLSeconds:     60,
	CacheStaleMaxAgeSeconds:  300,
	CacheLockTTLSeconds:      10,
	RefreshIntervalSeconds:   60,
	RefreshPollSeconds:       10,
	RateLimitCooldownSeconds: 60,
	ErrorCooldownSeconds:     10,
	WriteRequestsPerSecond:   2,
	WriteBurst:               5,
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorContains string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}},
		{
			name:   "valid redis backend",
			mutate: func(c *Config) { c.CacheBackend = BackendRedis; c.RedisAddress = "localhost:6379" },
		},
		{
			name:          "invalid port",
			mutate:        func(c *Config) { c.Port = "invalid" },
			errorContains: "PORT must be a valid port number",
		},
		{
			name:          "port out of range",
			mutate:        func(c *Config) { c.Port = "70000" },
			errorContains: "PORT must be a valid port number",
		},
		{
			name:          "unknown strategy",
			mutate:        func(c *Config) { c.CacheStrategy = "lru" },
			errorContains: "CACHE_STRATEGY",
		},
		{
			name:          "unknown backend",
			mutate:        func(c *Config) { c.CacheBackend = "memcached" },
			errorContains: "CACHE_BACKEND",
		},
		{
			name:          "redis backend without address",
			mutate:        func(c *Config) { c.CacheBackend = BackendRedis },
			errorContains: "REDIS_ADDRESS is required",
		},
		{
			name:          "redis db out of range",
			mutate:        func(c *Config) { c.RedisAddress = "localhost:6379"; c.RedisDB = 16 },
			errorContains: "REDIS_DB",
		},
		{
			name:          "redis pool size zero",
			mutate:        func(c *Config) { c.RedisAddress = "localhost:6379"; c.RedisPoolSize = 0 },
			errorContains: "REDIS_POOL_SIZE",
		},
		{
			name:          "relative notion url",
			mutate:        func(c *Config) { c.NotionAPIURL = "/v1" },
			errorContains: "NOTION_API_URL",
		},
		{
			name:          "zero request rate",
			mutate:        func(c *Config) { c.NotionRequestsPerSecond = 0 },
			errorContains: "NOTION_REQUESTS_PER_SECOND",
		},
		{
			name:          "zero lock ttl",
			mutate:        func(c *Config) { c.CacheLockTTLSeconds = 0 },
			errorContains: "CACHE_LOCK_TTL_SECONDS",
		},
		{
			name:          "negative poll interval",
			mutate:        func(c *Config) { c.RefreshPollSeconds = -5 },
			errorContains: "REFRESH_POLL_SECONDS",
		},
		{
			name:          "zero write burst",
			mutate:        func(c *Config) { c.WriteBurst = 0 },
			errorContains: "WRITE_BURST",
		},
		{
			name:   "fresh window longer than stale window is allowed",
			mutate: func(c *Config) { c.CacheFreshTTLSeconds = 600 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)
			err := config.Validate()

			if tt.errorContains == "" {
				if err != nil {
					t.Errorf("Config.Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Config.Validate() expected error containing %q", tt.errorContains)
			}
			if !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Config.Validate() error = %v, want containing %q", err, tt.errorContains)
			}
		})
	}
}

func BenchmarkLoad(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Load()
	}
}
