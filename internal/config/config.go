// Package config provides the environment-backed configuration loader used
// by the service bootstrap (cmd/pledge).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backend names accepted by PLEDGE_STORE.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds the runtime settings read by main. Zero values fall back to
// the defaults applied in LoadFromEnv.
type Config struct {
	ListenAddr string // PLEDGE_LISTEN_ADDR (default :8080)
	LogJSON    bool   // PLEDGE_LOG_JSON

	Store       string // PLEDGE_STORE: memory | redis | postgres (default memory)
	RedisAddr   string // PLEDGE_REDIS_ADDR (default localhost:6379)
	DatabaseURL string // DATABASE_URL (required when Store=postgres)

	KafkaBrokers []string // PLEDGE_KAFKA_BROKERS (comma-separated; empty disables broadcasts)
	KafkaTopic   string   // PLEDGE_KAFKA_TOPIC (default pledge.broadcasts)

	ArchiveBucket string // PLEDGE_ARCHIVE_BUCKET (S3; empty disables archiving)

	ProposalTTL   time.Duration // PLEDGE_TTL (default 5m)
	SweepInterval time.Duration // PLEDGE_SWEEP_INTERVAL (default 30s)
	Retention     time.Duration // PLEDGE_RETENTION (default 24h)

	CommandPrefix string // PLEDGE_PREFIX (default /)
	ApproverID    string // PLEDGE_APPROVER (who confirms broadcasts)
}

// LoadFromEnv reads configuration from environment variables, applying
// defaults where unset. Malformed optional values fall back to defaults
// rather than failing the boot.
func LoadFromEnv() *Config {
	cfg := &Config{
		ListenAddr:    envOr("PLEDGE_LISTEN_ADDR", ":8080"),
		Store:         envOr("PLEDGE_STORE", StoreMemory),
		RedisAddr:     envOr("PLEDGE_REDIS_ADDR", "localhost:6379"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		KafkaTopic:    envOr("PLEDGE_KAFKA_TOPIC", "pledge.broadcasts"),
		ArchiveBucket: os.Getenv("PLEDGE_ARCHIVE_BUCKET"),
		ProposalTTL:   envDuration("PLEDGE_TTL", 5*time.Minute),
		SweepInterval: envDuration("PLEDGE_SWEEP_INTERVAL", 30*time.Second),
		Retention:     envDuration("PLEDGE_RETENTION", 24*time.Hour),
		CommandPrefix: envOr("PLEDGE_PREFIX", "/"),
		ApproverID:    os.Getenv("PLEDGE_APPROVER"),
	}

	if v := os.Getenv("PLEDGE_KAFKA_BROKERS"); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	if v := os.Getenv("PLEDGE_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
