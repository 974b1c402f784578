// Package config loads gateway configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr            string
	LogLevel        string
	UpstreamBaseURL string

	RedisAddr      string
	CacheEnabled   bool
	CacheOpTimeout time.Duration
	CacheTTLSearch time.Duration
	CacheTTLEvents time.Duration

	AutocompleteDebounce  time.Duration
	AutocompleteCacheSize int

	SessionIdleTimeout time.Duration

	MetricsEnabled bool
	MetricsAddr    string
	MetricsPath    string

	Invalidation InvalidationCfg
}

func FromEnv() Config {
	return Config{
		Addr:            getenv("ADDR", ":8090"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		UpstreamBaseURL: getenv("UPSTREAM_BASE_URL", "http://localhost:8080/api/"),

		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		CacheEnabled:   getbool("CACHE_ENABLED", false),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheTTLSearch: getduration("CACHE_TTL_SEARCH", 30*time.Second),
		CacheTTLEvents: getduration("CACHE_TTL_EVENTS", 60*time.Second),

		AutocompleteDebounce:  getduration("AUTOCOMPLETE_DEBOUNCE", 200*time.Millisecond),
		AutocompleteCacheSize: getint("AUTOCOMPLETE_CACHE_SIZE", 256),

		SessionIdleTimeout: getduration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),

		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "item-mutations"),
			GroupID: getenv("KAFKA_GROUP_ID", "searchsync-invalidator"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
