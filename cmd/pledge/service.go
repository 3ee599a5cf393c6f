package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/pledge"
	"github.com/aretw0/pledge/internal/accounts"
	"github.com/aretw0/pledge/internal/archive"
	"github.com/aretw0/pledge/internal/broadcast"
	"github.com/aretw0/pledge/internal/config"
	"github.com/aretw0/pledge/internal/logging"
	"github.com/aretw0/pledge/internal/outcomes"
	"github.com/aretw0/pledge/internal/telemetry"
	"github.com/aretw0/pledge/pkg/adapters/memory"
	"github.com/aretw0/pledge/pkg/adapters/postgres"
	redisstore "github.com/aretw0/pledge/pkg/adapters/redis"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/ports"
)

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return logging.NewJSON(slog.LevelInfo)
	}
	return logging.New(slog.LevelInfo)
}

// buildService assembles the full service from configuration: store backend,
// account store, outcome appliers, optional Kafka publisher and S3 archiver,
// and metrics hooks.
func buildService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pledge.Service, error) {
	var (
		store ports.ProposalStore
		accts accounts.Store
	)
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.NewStore()
		accts = accounts.NewMemoryStore()
	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		store = redisstore.NewFromClient(client)
		accts = accounts.NewRedisStore(client, "")
	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when PLEDGE_STORE=postgres")
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		if _, err := db.ExecContext(ctx, postgres.Schema); err != nil {
			return nil, fmt.Errorf("apply schema: %w", err)
		}
		store = postgres.NewStore(db)
		// Account records stay in memory for this backend; see the divorce
		// and marry appliers for what they hold.
		accts = accounts.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}

	opts := []pledge.Option{
		pledge.WithStore(store),
		pledge.WithLogger(logger),
		pledge.WithLifecycleHooks(telemetry.Hooks()),
		pledge.WithSweepInterval(cfg.SweepInterval),
		pledge.WithRetention(cfg.Retention),
		pledge.WithApplier(domain.KindMarriage, &outcomes.Marriage{Accounts: accts}),
		pledge.WithApplier(domain.KindConfirmAction, &outcomes.Divorce{Accounts: accts}),
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := broadcast.NewPublisher(broadcast.PublisherConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		opts = append(opts, pledge.WithApplier(domain.KindBroadcast, &outcomes.Broadcast{Publisher: publisher}))
		logger.Info("broadcast publishing enabled", "topic", cfg.KafkaTopic)
	}

	if cfg.ArchiveBucket != "" {
		archiver, err := archive.NewS3Archiver(ctx, cfg.ArchiveBucket, "proposals")
		if err != nil {
			return nil, fmt.Errorf("s3 archiver: %w", err)
		}
		opts = append(opts, pledge.WithArchiver(archiver))
		logger.Info("archiving enabled", "bucket", cfg.ArchiveBucket)
	}

	return pledge.New(opts...), nil
}
