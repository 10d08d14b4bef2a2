package fx

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/sp3dr4/tern/config"
)

// ConfigModule provides configuration-related dependencies
var ConfigModule = fx.Module("config",
	fx.Provide(config.Load),
)

// InfrastructureModule provides infrastructure-related dependencies
var InfrastructureModule = fx.Module("infrastructure",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideRepository),
	fx.Provide(ProvideRedisClient),
	fx.Provide(ProvideCache),
	fx.Provide(ProvideEventPublisher),
	fx.Provide(ProvideLocalCache),
)

// ApplicationModule provides application service dependencies
var ApplicationModule = fx.Module("application",
	fx.Provide(ProvideCodeGenerator),
	fx.Provide(ProvideMappingService),
)

// MetricsModule provides metrics-related dependencies
var MetricsModule = fx.Module("metrics",
	fx.Provide(ProvideMetricsRegistry),
)

// CoreLifecycleModule provides core lifecycle management (shared by all entrypoints)
var CoreLifecycleModule = fx.Module("core-lifecycle",
	fx.Invoke(RegisterRepositoryHooks),
	fx.Invoke(RegisterCacheHooks),
	fx.Invoke(RegisterEventHooks),
)

// LoggerModule routes fx's own events through the application logger
var LoggerModule = fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: logger}
})

// CoreModules combines the core modules shared by all entrypoints
var CoreModules = fx.Options(
	ConfigModule,
	InfrastructureModule,
	ApplicationModule,
	MetricsModule,
	CoreLifecycleModule,
	LoggerModule,
)
