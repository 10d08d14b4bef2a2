package fx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/sp3dr4/tern/config"
	"github.com/sp3dr4/tern/internal/application"
	"github.com/sp3dr4/tern/internal/coalesce"
	"github.com/sp3dr4/tern/internal/domain"
	cacheImpl "github.com/sp3dr4/tern/internal/infrastructure/cache"
	"github.com/sp3dr4/tern/internal/infrastructure/instrumented"
	"github.com/sp3dr4/tern/internal/infrastructure/kafka"
	memoryRepo "github.com/sp3dr4/tern/internal/infrastructure/memory"
	mongoRepo "github.com/sp3dr4/tern/internal/infrastructure/mongodb"
	postgresRepo "github.com/sp3dr4/tern/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/tern/internal/infrastructure/redis"
	sqliteRepo "github.com/sp3dr4/tern/internal/infrastructure/sqlite"
	"github.com/sp3dr4/tern/internal/lru"
	"github.com/sp3dr4/tern/internal/pkg/logging"
	"github.com/sp3dr4/tern/internal/pkg/metrics"
	"github.com/sp3dr4/tern/internal/shortcode"
	"github.com/sp3dr4/tern/migrations"
)

const connectTimeout = 10 * time.Second

// ProvideLogger creates and configures the application logger
func ProvideLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return logger
}

// ProvideRepository creates the appropriate repository based on configuration
func ProvideRepository(cfg *config.Config, logger *slog.Logger) (domain.MappingStore, error) {
	switch cfg.Database.Type {
	case "memory", "":
		logger.Info("Using in-memory repository")
		return memoryRepo.NewMappingRepository(), nil

	case "sqlite":
		dbPath := cfg.GetDatabaseURL()
		logger.Info("Using SQLite repository", "path", dbPath)

		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}

		db, err := sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
		}

		if err := migrations.Up(db.DB, "sqlite3"); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("Migrations completed successfully")

		return sqliteRepo.NewMappingRepository(db), nil

	case "postgres":
		logger.Info("Using PostgreSQL repository")

		db, err := sqlx.Connect("postgres", cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}

		if err := migrations.Up(db.DB, "postgres"); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("Migrations completed successfully")

		return postgresRepo.NewMappingRepository(db, logger), nil

	case "mongo":
		mongoCfg := cfg.Database.Mongo
		logger.Info("Using MongoDB repository", "database", mongoCfg.Database, "collection", mongoCfg.Collection)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		repo, err := mongoRepo.Connect(ctx, mongoCfg.URI, mongoCfg.Database, mongoCfg.Collection, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil

	default:
		return nil, &domain.ConfigError{Field: "database.type", Reason: fmt.Sprintf("unsupported value %q", cfg.Database.Type)}
	}
}

// ProvideRedisClient returns nil when the shared cache is disabled
func ProvideRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		logger.Info("Shared cache disabled")
		return nil
	}

	logger.Info("Using Redis shared cache", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func ProvideCache(client *redis.Client, logger *slog.Logger) domain.Cache {
	if client == nil {
		return cacheImpl.NewNoOpCache()
	}
	return redisCache.NewMappingCache(client, logger)
}

func ProvideEventPublisher(cfg *config.Config, logger *slog.Logger) (domain.EventPublisher, error) {
	if !cfg.Events.Enabled {
		return kafka.NewNoOpPublisher(), nil
	}

	logger.Info("Publishing mapping events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	publisher, err := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// ProvideLocalCache sizes the in-process LRU, sharding it when cache.shards > 1
func ProvideLocalCache(cfg *config.Config) (application.LocalCache, error) {
	if cfg.Cache.Shards > 1 {
		sharded, err := lru.NewSharded[domain.Mapping](cfg.Cache.Capacity, cfg.Cache.Shards)
		if err != nil {
			return nil, err
		}
		return sharded, nil
	}

	cache, err := lru.New[string, domain.Mapping](cfg.Cache.Capacity)
	if err != nil {
		return nil, err
	}
	return cache, nil
}

func ProvideCodeGenerator(cfg *config.Config) (*shortcode.Generator, error) {
	return shortcode.NewGenerator(cfg.App.ShortCodeLength, shortcode.Encoding(cfg.App.CodeEncoding))
}

func ProvideMetricsRegistry(cfg *config.Config) (metrics.Registry, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpRegistry(), nil
	}
	return metrics.NewPrometheusRegistry(cfg.Metrics)
}

// MappingServiceParams holds the dependencies of the mapping service
type MappingServiceParams struct {
	fx.In

	Config  *config.Config
	Store   domain.MappingStore
	Local   application.LocalCache
	Remote  domain.Cache
	Events  domain.EventPublisher
	Codes   *shortcode.Generator
	Metrics metrics.Registry
	Logger  *slog.Logger
}

func ProvideMappingService(params MappingServiceParams) (*application.MappingService, error) {
	store := params.Store
	if params.Config.Metrics.Enabled && params.Config.Metrics.CollectDatabase {
		store = instrumented.NewMappingStore(store, params.Metrics)
	}

	return application.NewMappingService(
		application.Config{
			BaseURL:   params.Config.App.BaseURL,
			MaxSalt:   params.Config.App.MaxSalt,
			RemoteTTL: params.Config.Redis.TTL,
			Coalesce: coalesce.Options{
				Shards:       params.Config.Cache.Shards,
				FetchTimeout: params.Config.Cache.FetchTimeout,
				WaitTimeout:  params.Config.Cache.WaitTimeout,
			},
		},
		application.Dependencies{
			Store:   store,
			Local:   params.Local,
			Remote:  params.Remote,
			Events:  params.Events,
			Codes:   params.Codes,
			Metrics: params.Metrics,
			Logger:  params.Logger,
		},
	)
}
