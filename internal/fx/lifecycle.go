package fx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/sp3dr4/tern/internal/domain"
)

// RepositoryParams holds the parameters needed for repository lifecycle management
type RepositoryParams struct {
	fx.In

	Repository domain.MappingStore
	Logger     *slog.Logger
}

// RegisterRepositoryHooks closes the backing store on shutdown
func RegisterRepositoryHooks(lc fx.Lifecycle, params RepositoryParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Repository.Close(); err != nil {
				params.Logger.Error("Failed to close repository resources", "error", err)
				return err
			}
			params.Logger.Info("Repository resources closed successfully")
			return nil
		},
	})
}

type CacheParams struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Logger *slog.Logger
}

// RegisterCacheHooks pings Redis on start and closes the client on shutdown
func RegisterCacheHooks(lc fx.Lifecycle, params CacheParams) {
	if params.Client == nil {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis unavailable: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := params.Client.Close(); err != nil {
				params.Logger.Error("Failed to close Redis client", "error", err)
				return err
			}
			return nil
		},
	})
}

type EventsParams struct {
	fx.In

	Publisher domain.EventPublisher
	Logger    *slog.Logger
}

// RegisterEventHooks flushes and closes the event producer on shutdown
func RegisterEventHooks(lc fx.Lifecycle, params EventsParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Publisher.Close(); err != nil {
				params.Logger.Error("Failed to close event publisher", "error", err)
				return err
			}
			return nil
		},
	})
}
