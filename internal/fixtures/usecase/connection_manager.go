package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mongo-fixtures/internal/fixtures/domain/repository"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/logger"
)

// ConnectionManager opens the loader's store on first use and keeps it until Close.
// Connect is attempted at most once; a failed attempt is remembered.
type ConnectionManager struct {
	connector repository.Connector
	logger    logger.Logger

	mu        sync.Mutex
	attempted bool
	store     repository.Store
	err       error
	closed    bool
}

// NewConnectionManager creates a manager for connector
func NewConnectionManager(connector repository.Connector, log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connector: connector,
		logger:    logger.OrNop(log).WithComponent("connection"),
	}
}

// Get returns the live store, connecting on the first call.
func (m *ConnectionManager) Get(ctx context.Context) (repository.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, sharederrors.ErrLoaderClosed
	}
	if m.attempted {
		return m.store, m.err
	}
	m.attempted = true

	store, err := m.connector.Connect(ctx)
	if err != nil {
		if !errors.Is(err, sharederrors.ErrConnection) {
			err = fmt.Errorf("%w: %w", sharederrors.ErrConnection, err)
		}
		m.err = err
		m.logger.WithContext(ctx).Errorf("Failed to connect to database %s: %v", m.connector.Database(), err)
		return nil, err
	}
	m.store = store
	m.logger.WithContext(ctx).Infof("Connected to database %s", m.connector.Database())
	return store, nil
}

// Connected reports whether a live store is held
func (m *ConnectionManager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store != nil && !m.closed
}

// Close releases the store. It fails with ErrNoActiveConnection when no store was ever
// opened; before any connect attempt the manager stays usable.
func (m *ConnectionManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.attempted {
		return sharederrors.ErrNoActiveConnection
	}
	if m.closed || m.store == nil {
		m.closed = true
		return sharederrors.ErrNoActiveConnection
	}
	m.closed = true
	store := m.store
	m.store = nil

	if err := store.Close(ctx); err != nil {
		return fmt.Errorf("%w: closing connection: %w", sharederrors.ErrConnection, err)
	}
	m.logger.WithContext(ctx).Infof("Closed connection to database %s", m.connector.Database())
	return nil
}
