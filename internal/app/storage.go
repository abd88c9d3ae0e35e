package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/touchdown-picks/internal/config"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/grading"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/domain/ingest"
	"github.com/riskibarqy/touchdown-picks/internal/domain/pick"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/user"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/progress"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/touchdown-picks/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/touchdown-picks/internal/platform/cache"
	"github.com/riskibarqy/touchdown-picks/internal/platform/id"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"
)

const startupPingTimeout = 5 * time.Second

// Repositories is the store surface the services depend on.
type Repositories struct {
	Games      game.Repository
	Users      user.Repository
	Players    player.Repository
	Picks      pick.Repository
	Grading    grading.Repository
	Ingest     ingest.Repository
	ImportJobs importjob.Repository
}

// openRepositories uses Postgres when DB_URL is set and the in-memory store
// otherwise.
func openRepositories(ctx context.Context, cfg config.Config, ids id.Generator, logger *logging.Logger) (Repositories, func() error, error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.Warn("DB_URL empty, using in-memory store")
		store := memory.NewStore(memory.SeedDev(), memory.WithIDGenerator(ids))
		return Repositories{
			Games:      store.Games(),
			Users:      store.Users(),
			Players:    store.Players(),
			Picks:      store.Picks(),
			Grading:    store.Grading(),
			Ingest:     store.Ingest(),
			ImportJobs: store.ImportJobs(),
		}, func() error { return nil }, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return Repositories{}, nil, err
	}
	if cfg.DBSeedEnabled {
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			_ = db.Close()
			return Repositories{}, nil, fmt.Errorf("bootstrap seed: %w", err)
		}
	}
	logger.Info("postgres store ready", "db_name", dbNameFromURL(cfg.DBURL), "max_open_conns", cfg.DBMaxOpenConns)

	return Repositories{
		Games:      postgres.NewGameRepository(db),
		Users:      postgres.NewUserRepository(db),
		Players:    postgres.NewPlayerRepository(db),
		Picks:      postgres.NewPickRepository(db),
		Grading:    postgres.NewGradingRepository(db),
		Ingest:     postgres.NewIngestRepository(db, ids),
		ImportJobs: postgres.NewImportJobRepository(db),
	}, db.Close, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// openProgressTracker mirrors job progress to Redis when REDIS_URL is set and
// to an in-process TTL cache otherwise.
func openProgressTracker(ctx context.Context, cfg config.Config, logger *logging.Logger) (*progress.Tracker, func() error, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		logger.Warn("REDIS_URL empty, keeping import progress in process")
		kv := progress.NewCacheStore(cache.NewStore(cfg.ProgressTTL))
		return progress.NewTracker(kv, logger, progress.WithTTL(cfg.ProgressTTL)), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("redis progress store ready", "addr", opts.Addr, "db", opts.DB)

	kv := progress.NewRedisStore(client)
	return progress.NewTracker(kv, logger, progress.WithTTL(cfg.ProgressTTL)), client.Close, nil
}
