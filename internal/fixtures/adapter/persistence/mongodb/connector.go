package mongodb

import (
	"context"
	"fmt"

	"mongo-fixtures/internal/fixtures/config"
	"mongo-fixtures/internal/fixtures/domain/repository"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Connector opens MongoDB connections for one LoaderConfig
type Connector struct {
	cfg    config.LoaderConfig
	logger logger.Logger
}

var _ repository.Connector = (*Connector)(nil)

// NewConnector validates cfg and returns a connector for it
func NewConnector(cfg config.LoaderConfig, log logger.Logger) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid loader configuration: %w", err)
	}
	return &Connector{
		cfg:    cfg,
		logger: logger.OrNop(log).WithComponent("mongodb"),
	}, nil
}

// Database returns the target database name
func (c *Connector) Database() string {
	return c.cfg.DatabaseName()
}

// ClientOptions builds the driver options. Every write is acknowledged.
func (c *Connector) ClientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(c.cfg.URI()).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetServerSelectionTimeout(c.cfg.ConnectTimeout).
		SetWriteConcern(writeconcern.W1()).
		SetAppName("mongo-fixtures")

	if c.cfg.HasCredentials() {
		opts.SetAuth(options.Credential{
			Username:   c.cfg.Username,
			Password:   c.cfg.Password,
			AuthSource: c.cfg.AuthSource,
		})
	}
	return opts
}

// Connect dials the server and pings it so authentication problems surface here.
func (c *Connector) Connect(ctx context.Context) (repository.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	c.logger.WithFields(map[string]interface{}{
		"uri":      c.cfg.Redacted(),
		"database": c.Database(),
	}).Debug("Connecting to MongoDB")

	client, err := mongo.Connect(ctx, c.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sharederrors.ErrConnection, c.cfg.Redacted(), err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: %s: %w", sharederrors.ErrConnection, c.cfg.Redacted(), err)
	}

	return NewStore(client, client.Database(c.Database()), c.cfg.ClearMode, c.logger), nil
}
