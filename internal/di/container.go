package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mongo-fixtures/internal/fixtures"
	"mongo-fixtures/internal/fixtures/config"
	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	"mongo-fixtures/internal/shared/logger"
)

// Container holds the process configuration, logger and the fixtures module
type Container struct {
	mu sync.RWMutex
	// Module instances
	FixturesModule *fixtures.FixturesModule
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates an empty DI container
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	return &Container{
		Config: cfg,
		Logger: logger.OrNop(log),
	}
}

// InitializeFixtures builds the fixtures module against MongoDB
func (c *Container) InitializeFixtures(mods ...model.Modifier) error {
	return c.initializeFixtures(func() (*fixtures.FixturesModule, error) {
		return fixtures.NewFixturesModule(c.Config, c.Logger, mods...)
	})
}

// InitializeFixturesWithConnector builds the fixtures module on connector
func (c *Container) InitializeFixturesWithConnector(connector repository.Connector, mods ...model.Modifier) error {
	return c.initializeFixtures(func() (*fixtures.FixturesModule, error) {
		return fixtures.NewFixturesModuleWithConnector(c.Config, connector, c.Logger, mods...)
	})
}

func (c *Container) initializeFixtures(build func() (*fixtures.FixturesModule, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Config == nil {
		return fmt.Errorf("configuration must be loaded before the fixtures module")
	}
	if c.FixturesModule != nil {
		return fmt.Errorf("fixtures module already initialized")
	}

	module, err := build()
	if err != nil {
		return fmt.Errorf("failed to create fixtures module: %w", err)
	}
	c.FixturesModule = module
	return nil
}

// GetFixturesModule returns the fixtures module instance
func (c *Container) GetFixturesModule() *fixtures.FixturesModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.FixturesModule
}

// HealthCheck checks the dependencies of the fixtures module
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.FixturesModule != nil {
		if err := c.FixturesModule.HealthCheck(ctx); err != nil {
			return fmt.Errorf("fixtures module health check failed: %w", err)
		}
	}
	return nil
}

// Cleanup stops the fixtures module. The container can be initialized again afterwards.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FixturesModule == nil {
		return nil
	}
	err := c.FixturesModule.Stop(ctx)
	c.FixturesModule = nil
	if err != nil {
		return fmt.Errorf("failed to stop fixtures module: %w", err)
	}
	return nil
}

// Close shuts down all services with a 30 second budget
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		c.Logger.Warnf("Cleanup errors occurred: %v", err)
		return err
	}
	c.Logger.Debug("DI container resources closed")
	return nil
}
