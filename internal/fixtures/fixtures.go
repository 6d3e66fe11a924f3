package fixtures

import (
	"context"
	"errors"
	"fmt"

	"mongo-fixtures/internal/fixtures/adapter/events"
	"mongo-fixtures/internal/fixtures/adapter/filesystem"
	fixtureshttp "mongo-fixtures/internal/fixtures/adapter/http"
	"mongo-fixtures/internal/fixtures/adapter/persistence/mongodb"
	"mongo-fixtures/internal/fixtures/config"
	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	"mongo-fixtures/internal/fixtures/usecase"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/eventbus"
	"mongo-fixtures/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FixturesModule wires a loader with its event bus, optional Redis sink and HTTP surface
type FixturesModule struct {
	config     *config.Config
	logger     logger.Logger
	bus        *eventbus.EventBus
	redis      *redis.Client
	sink       *events.RedisSink
	loader     *usecase.Loader
	handler    *fixtureshttp.FixturesHandler
	middleware *fixtureshttp.Middleware
}

// NewFixturesModule creates a module loading into the MongoDB database of cfg.Loader
func NewFixturesModule(cfg *config.Config, log logger.Logger, mods ...model.Modifier) (*FixturesModule, error) {
	connector, err := mongodb.NewConnector(cfg.Loader, log)
	if err != nil {
		return nil, err
	}
	return NewFixturesModuleWithConnector(cfg, connector, log, mods...)
}

// NewFixturesModuleWithConnector creates a module on top of an existing connector
func NewFixturesModuleWithConnector(cfg *config.Config, connector repository.Connector, log logger.Logger, mods ...model.Modifier) (*FixturesModule, error) {
	log = logger.OrNop(log)
	busConfig := eventbus.DefaultBusConfig()
	if cfg.Redis.Enabled() {
		busConfig.MaxRetries = cfg.Redis.PublishRetries
		busConfig.RetryDelay = cfg.Redis.RetryDelay
	}
	bus := eventbus.NewEventBusWithConfig(log, busConfig)

	m := &FixturesModule{
		config: cfg,
		logger: log.WithComponent("fixtures"),
		bus:    bus,
	}

	if cfg.Redis.Enabled() {
		m.redis = events.NewRedisClient(cfg.Redis)
		m.sink = events.NewRedisSink(m.redis, cfg.Redis.Stream, cfg.Redis.StreamMaxLen, log)
		m.sink.Register(bus)
		m.logger.Infof("Publishing loader events to Redis stream %s", cfg.Redis.Stream)
	}

	m.loader = usecase.NewLoader(connector, filesystem.NewResourceLoader(log),
		usecase.WithLogger(log),
		usecase.WithEvents(bus),
		usecase.WithBaseDir(cfg.Loader.BaseDir),
		usecase.WithModifiers(mods...),
	)

	var tokens *fixtureshttp.TokenService
	if cfg.Server.JWTSecret != "" {
		var err error
		tokens, err = fixtureshttp.NewTokenService(cfg.Server.JWTSecret, cfg.Server.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("failed to create token service: %w", err)
		}
	}
	m.middleware = fixtureshttp.NewMiddleware(tokens).
		WithRateLimit(cfg.Server.RateLimit).
		WithCORSOrigins(cfg.Server.CORSOrigins)

	var reader fixtureshttp.EventReader
	if m.sink != nil {
		reader = m.sink
	}
	m.handler = fixtureshttp.NewFixturesHandler(m.loader, reader, log,
		fixtureshttp.WithFixtureDir(cfg.Loader.BaseDir),
		fixtureshttp.WithHealthCheck(m),
	)

	return m, nil
}

// GetLoader returns the module loader
func (m *FixturesModule) GetLoader() usecase.LoaderInterface {
	return m.loader
}

// Events returns the bus loader events are published on
func (m *FixturesModule) Events() eventbus.EventBusInterface {
	return m.bus
}

// App builds the seeding HTTP application
func (m *FixturesModule) App() *fiber.App {
	return fixtureshttp.NewApp(m.handler, m.middleware, m.config.Server.ReadTimeout, m.config.Server.WriteTimeout)
}

// HealthCheck pings the Redis sink when one is configured
func (m *FixturesModule) HealthCheck(ctx context.Context) error {
	if m.sink == nil {
		return nil
	}
	if err := m.sink.Ping(ctx); err != nil {
		return fmt.Errorf("redis event sink: %w", err)
	}
	return nil
}

// Stop closes the loader connection, flushes pending events and closes Redis.
// A loader that never connected is not an error here.
func (m *FixturesModule) Stop(ctx context.Context) error {
	var errs []error
	if err := m.loader.Close(ctx); err != nil && !errors.Is(err, sharederrors.ErrNoActiveConnection) {
		errs = append(errs, err)
	}
	m.bus.Drain()
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
