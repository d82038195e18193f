// Package config reads all runtime configuration from the environment so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "sigede/pkg/platform/strings"
)

// Server captures the full runtime configuration.
type Server struct {
	Addr string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Monitor  MonitorConfig

	// CacheDir is where the file-backed client cache lives. Empty means
	// the in-memory cache.
	CacheDir string

	// AdminToken guards the /admin endpoints. Empty disables them.
	AdminToken string
}

// RedisConfig configures the optional Redis session registry.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the optional Postgres backends.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig configures the optional Kafka audit sink.
type KafkaConfig struct {
	Seeds []string
	Topic string
}

// MonitorConfig tunes the session health monitor.
type MonitorConfig struct {
	Interval         time.Duration
	FailureThreshold int
	Disabled         bool
}

// FromEnv builds a Server config from SIGEDE_* environment variables.
func FromEnv() Server {
	return Server{
		Addr: envOr("SIGEDE_ADDR", ":8080"),
		Redis: RedisConfig{
			URL:          os.Getenv("SIGEDE_REDIS_URL"),
			PoolSize:     envInt("SIGEDE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("SIGEDE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("SIGEDE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("SIGEDE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("SIGEDE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("SIGEDE_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Seeds: envList("SIGEDE_KAFKA_SEEDS"),
			Topic: envOr("SIGEDE_KAFKA_AUDIT_TOPIC", "sigede.audit"),
		},
		Monitor: MonitorConfig{
			Interval:         envDuration("SIGEDE_MONITOR_INTERVAL", 30*time.Minute),
			FailureThreshold: envInt("SIGEDE_MONITOR_FAILURE_THRESHOLD", 20),
			Disabled:         os.Getenv("SIGEDE_MONITOR_DISABLED") == "true",
		},
		CacheDir:   os.Getenv("SIGEDE_CACHE_DIR"),
		AdminToken: os.Getenv("SIGEDE_ADMIN_TOKEN"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
