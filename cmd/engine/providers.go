package main

import (
	"context"

	"github.com/septivank/energy-insight-engine/internal/anomaly"
	"github.com/septivank/energy-insight-engine/internal/clock"
	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/db"
	"github.com/septivank/energy-insight-engine/internal/engine"
	"github.com/septivank/energy-insight-engine/internal/mq"
	"github.com/septivank/energy-insight-engine/internal/opsserver"
	"github.com/septivank/energy-insight-engine/internal/repository"
	"github.com/septivank/energy-insight-engine/internal/service"
	"github.com/septivank/energy-insight-engine/internal/sqlitestore"
	"github.com/septivank/energy-insight-engine/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Backend is a persistence implementation usable by both the engine and
// the ingest path
type Backend interface {
	engine.Store
	service.ReadingStore
	Migrate(ctx context.Context) error
}

// coreModule wires configuration, storage, messaging and the engine
func coreModule(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			ProvideBackend,
			func(b Backend) engine.Store { return b },
			func(b Backend) service.ReadingStore { return b },
			ProvideEngine,
		),
		messagingModule(cfg),
		fxLogger(),
	)
}

func messagingModule(cfg *config.Config) fx.Option {
	if !cfg.RabbitMQ.Enabled {
		return fx.Provide(
			func() engine.EventPublisher { return engine.NopPublisher{} },
			func() service.ReadingPublisher { return service.NopReadingPublisher{} },
		)
	}
	return fx.Provide(
		ProvideMQConnection,
		ProvidePublisher,
		func(p *mq.Publisher) engine.EventPublisher { return p },
		func(p *mq.Publisher) service.ReadingPublisher { return p },
	)
}

// ProvideBackend opens the configured store
func ProvideBackend(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (Backend, error) {
	if cfg.Database.Driver == config.DriverSQLite {
		store, err := sqlitestore.Open(cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.Database.SQLitePath))
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return store.Close()
			},
		})
		return store, nil
	}

	pool, err := db.NewPool(lc, logger, cfg.Database)
	if err != nil {
		return nil, err
	}
	return repository.NewRepository(pool), nil
}

// ProvideEngine creates the insight and credit engine
func ProvideEngine(store engine.Store, publisher engine.EventPublisher, cfg *config.Config, logger *zap.Logger) (*engine.Engine, error) {
	return engine.New(store, publisher, cfg.Engine, logger)
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) (*validator.Validator, error) {
	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}
	return validator.NewValidator(cfg.Validation.TimestampToleranceMinutes, loc), nil
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(lc fx.Lifecycle, conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
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

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(
	store service.ReadingStore,
	publisher service.ReadingPublisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.ProcessorService {
	return service.NewProcessorService(store, publisher, detector, validator, cfg, clock.SystemClock{}, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

type opsParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.Logger
	Store     engine.Store
	MQ        *mq.Connection `optional:"true"`
}

// ProvideOpsServer starts the health and metrics server
func ProvideOpsServer(p opsParams) *opsserver.Server {
	checks := map[string]opsserver.Check{
		"store": p.Store.Ping,
	}
	if p.MQ != nil {
		checks["rabbitmq"] = p.MQ.Healthy
	}

	srv := opsserver.NewServer(checks, p.Logger)
	srv.Register(p.Lifecycle, p.Config.ServicePort)
	return srv
}
