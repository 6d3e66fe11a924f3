package usecase

import (
	"context"
	"fmt"
	"strings"

	"mongo-fixtures/internal/fixtures/domain/repository"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/eventbus"
	"mongo-fixtures/internal/shared/logger"
	"mongo-fixtures/internal/shared/utils"

	"golang.org/x/sync/errgroup"
)

// Clearer empties collections of the loader's database.
type Clearer struct {
	conn   *ConnectionManager
	events eventbus.Publisher
	logger logger.Logger
}

// NewClearer creates a clearer. events may be nil.
func NewClearer(conn *ConnectionManager, events eventbus.Publisher, log logger.Logger) *Clearer {
	return &Clearer{
		conn:   conn,
		events: events,
		logger: logger.OrNop(log).WithComponent("clearer"),
	}
}

// Clear empties the named collections, or every non-system collection when no name is given.
// Missing collections are not an error. Clears run concurrently; the first failure is returned
// once all of them have finished.
func (c *Clearer) Clear(ctx context.Context, names ...string) error {
	store, err := c.conn.Get(ctx)
	if err != nil {
		return err
	}
	_, err = c.clearStore(ctx, store, names)
	return err
}

// clearStore returns the names it cleared. An empty names slice means every user collection.
func (c *Clearer) clearStore(ctx context.Context, store repository.Store, names []string) ([]string, error) {
	targets, err := c.targets(ctx, store, names)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	for _, name := range targets {
		g.Go(func() error {
			collCtx := utils.WithCollection(ctx, name)
			if err := store.ClearCollection(collCtx, name); err != nil {
				c.logger.WithContext(collCtx).Errorf("Failed to clear collection: %v", err)
				return fmt.Errorf("%w: collection %q: %w", sharederrors.ErrClear, name, err)
			}
			c.logger.WithContext(collCtx).Debug("Collection cleared")
			if c.events != nil {
				c.events.PublishAndForget(collCtx, newLoaderEvent(collCtx, eventbus.EventTypeCollectionCleared, map[string]interface{}{
					"collection": name,
				}))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return targets, nil
}

func (c *Clearer) targets(ctx context.Context, store repository.Store, names []string) ([]string, error) {
	if len(names) > 0 {
		seen := make(map[string]bool, len(names))
		out := make([]string, 0, len(names))
		for _, name := range names {
			if name == "" {
				return nil, fmt.Errorf("%w: collection name must not be empty", sharederrors.ErrClear)
			}
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		return out, nil
	}

	all, err := store.ListCollectionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing collections: %w", sharederrors.ErrClear, err)
	}
	out := make([]string, 0, len(all))
	for _, name := range all {
		if strings.HasPrefix(name, repository.SystemCollectionPrefix) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}
