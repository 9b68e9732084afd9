package main

import (
	"context"
	"errors"

	"github.com/septivank/device-registry/internal/api"
	"github.com/septivank/device-registry/internal/config"
	"github.com/septivank/device-registry/internal/db"
	"github.com/septivank/device-registry/internal/mq"
	"github.com/septivank/device-registry/internal/repository"
	"github.com/septivank/device-registry/internal/service"
	"github.com/septivank/device-registry/internal/tsdb"
	"github.com/septivank/device-registry/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *zap.Logger,
	registry *service.RegistryService,
	repo *repository.Repository,
) *api.Server {
	router := api.NewRouter(registry, repo, logger)
	server := api.NewServer(cfg.ServicePort, cfg.HTTP, router, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down http server", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})

	return server
}

func startIngestConsumer(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	registry *service.RegistryService,
) error {
	if conn == nil {
		return nil
	}

	// Cancelled on shutdown so the delivery loop exits
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.IngestQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		RoutingKey:       cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: registry.ProcessIngestMessage,
	})
	if err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting ingest consumer",
				zap.String("queue", cfg.RabbitMQ.IngestQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("ingest consumer stopped gracefully")
			return nil
		},
	})

	return nil
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideValidator creates a new validator instance
func ProvideValidator() *validator.Validator {
	return validator.NewValidator(validator.MaxNameLength)
}

// ProvideMQConnection creates a new RabbitMQ connection instance, or nil
// when no broker is configured
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ)
}

// ProvideEventPublisher publishes to RabbitMQ when connected and drops
// events otherwise
func ProvideEventPublisher(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
) (service.EventPublisher, error) {
	if conn == nil {
		return mq.NewNopPublisher(logger), nil
	}

	publisher, err := mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})

	return publisher, nil
}

// ProvideReadingMirror connects to InfluxDB when configured. An unreachable
// server disables the mirror rather than failing startup.
func ProvideReadingMirror(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) service.ReadingMirror {
	client, err := tsdb.Connect(context.Background(), cfg.InfluxDB, logger)
	if errors.Is(err, tsdb.ErrDisabled) {
		logger.Info("INFLUXDB_URL not set, reading mirror is disabled")
		return tsdb.NopMirror{}
	}
	if err != nil {
		logger.Warn("influxdb unavailable, reading mirror is disabled", zap.Error(err))
		return tsdb.NopMirror{}
	}

	logger.Info("influxdb reading mirror enabled",
		zap.String("org", cfg.InfluxDB.Org),
		zap.String("bucket", cfg.InfluxDB.Bucket),
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

// ProvideRegistryService creates the registry service
func ProvideRegistryService(
	repo *repository.Repository,
	publisher service.EventPublisher,
	mirror service.ReadingMirror,
	validator *validator.Validator,
	logger *zap.Logger,
) *service.RegistryService {
	return service.NewRegistryService(repo, publisher, mirror, validator, logger)
}
