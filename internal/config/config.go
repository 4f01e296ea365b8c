package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the recommendation service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string

	AllowAnyOrigin bool

	DatabaseURL string

	// Cache freshness window for per-user recommendation snapshots.
	CacheTTL             time.Duration
	CacheJanitorInterval time.Duration

	// Maximum number of items in one recommendation response.
	ResultLimit int

	// Recomputations slower than this are logged as warnings. Zero disables.
	SlowCallThreshold time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "recsvc"),
		LogLevel:             envOrDefault("APP_LOG_LEVEL", "info"),
		AllowAnyOrigin:       false,
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:      15 * time.Second,
		CacheTTL:             5 * time.Minute,
		CacheJanitorInterval: 30 * time.Second,
		ResultLimit:          5,
		SlowCallThreshold:    500 * time.Millisecond,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheTTL, err = durationFromEnv("RECOMMEND_CACHE_TTL", cfg.CacheTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheJanitorInterval, err = durationFromEnv("RECOMMEND_CACHE_JANITOR_INTERVAL", cfg.CacheJanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SlowCallThreshold, err = durationFromEnv("RECOMMEND_SLOW_CALL_THRESHOLD", cfg.SlowCallThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.ResultLimit, err = intFromEnv("RECOMMEND_RESULT_LIMIT", cfg.ResultLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.CacheTTL < time.Second {
		return Config{}, fmt.Errorf("RECOMMEND_CACHE_TTL must be at least 1s")
	}
	if cfg.CacheJanitorInterval < time.Second {
		return Config{}, fmt.Errorf("RECOMMEND_CACHE_JANITOR_INTERVAL must be at least 1s")
	}
	if cfg.ResultLimit <= 0 || cfg.ResultLimit > 50 {
		return Config{}, fmt.Errorf("RECOMMEND_RESULT_LIMIT must be between 1 and 50")
	}
	if cfg.SlowCallThreshold < 0 {
		return Config{}, fmt.Errorf("RECOMMEND_SLOW_CALL_THRESHOLD must be >= 0")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
