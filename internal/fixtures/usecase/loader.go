package usecase

import (
	"context"
	"fmt"
	"time"

	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	sharederrors "mongo-fixtures/internal/shared/errors"
	"mongo-fixtures/internal/shared/eventbus"
	"mongo-fixtures/internal/shared/logger"
	"mongo-fixtures/internal/shared/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Operation names used in logs and events
const (
	OperationLoad            = "load"
	OperationClearAndLoad    = "clear_and_load"
	OperationClearAllAndLoad = "clear_all_and_load"
	OperationClear           = "clear"
)

type clearScope int

const (
	clearNone clearScope = iota
	clearTargets
	clearAll
)

// LoaderInterface is the contract of a fixture loader
type LoaderInterface interface {
	Load(ctx context.Context, input interface{}) error
	ClearAndLoad(ctx context.Context, input interface{}) error
	ClearAllAndLoad(ctx context.Context, input interface{}) error
	Clear(ctx context.Context, names ...string) error
	Resolve(ctx context.Context, input interface{}) (model.FixtureSet, error)
	AddModifier(m model.Modifier)
	Close(ctx context.Context) error
}

// Loader clears collections and inserts fixtures into one database.
// It owns its connection, resolver and modifier chain; nothing is shared between loaders.
type Loader struct {
	connector repository.Connector
	resolver  *Resolver
	conn      *ConnectionManager
	clearer   *Clearer
	chain     *ModifierChain
	events    eventbus.Publisher
	logger    logger.Logger
	baseDir   string
}

var _ LoaderInterface = (*Loader)(nil)

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithLogger sets the loader logger
func WithLogger(log logger.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger.OrNop(log) }
}

// WithEvents publishes loader events to p
func WithEvents(p eventbus.Publisher) LoaderOption {
	return func(l *Loader) { l.events = p }
}

// WithBaseDir sets the directory relative fixture paths are resolved against
func WithBaseDir(dir string) LoaderOption {
	return func(l *Loader) { l.baseDir = dir }
}

// WithModifiers registers modifiers in order
func WithModifiers(mods ...model.Modifier) LoaderOption {
	return func(l *Loader) {
		for _, m := range mods {
			l.chain.Add(m)
		}
	}
}

// NewLoader creates a loader. No connection is made until the first operation.
func NewLoader(connector repository.Connector, resources repository.ResourceLoader, opts ...LoaderOption) *Loader {
	l := &Loader{
		connector: connector,
		chain:     NewModifierChain(),
		logger:    logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithComponent("loader")
	l.resolver = NewResolver(resources, l.baseDir, l.logger)
	l.conn = NewConnectionManager(connector, l.logger)
	l.clearer = NewClearer(l.conn, l.events, l.logger)
	return l
}

// Database returns the name of the target database
func (l *Loader) Database() string {
	return l.connector.Database()
}

// AddModifier registers m after the modifiers already registered
func (l *Loader) AddModifier(m model.Modifier) {
	l.chain.Add(m)
}

// Resolve returns the FixtureSet of input without touching the database
func (l *Loader) Resolve(ctx context.Context, input interface{}) (model.FixtureSet, error) {
	return l.resolver.Resolve(ctx, input)
}

// Load inserts the fixtures of input without clearing anything.
func (l *Loader) Load(ctx context.Context, input interface{}) error {
	return l.run(ctx, OperationLoad, input, clearNone)
}

// ClearAndLoad clears exactly the collections present in input, then loads it.
// input is resolved once.
func (l *Loader) ClearAndLoad(ctx context.Context, input interface{}) error {
	return l.run(ctx, OperationClearAndLoad, input, clearTargets)
}

// ClearAllAndLoad clears every non-system collection, then loads input.
func (l *Loader) ClearAllAndLoad(ctx context.Context, input interface{}) error {
	return l.run(ctx, OperationClearAllAndLoad, input, clearAll)
}

// Clear empties the named collections, or all non-system collections when names is empty.
func (l *Loader) Clear(ctx context.Context, names ...string) error {
	ctx = l.runContext(ctx, OperationClear)
	if err := l.clearer.Clear(ctx, names...); err != nil {
		l.logger.WithContext(ctx).Errorf("Clear failed: %v", err)
		return err
	}
	return nil
}

// Close releases the connection. The loader cannot be used afterwards.
func (l *Loader) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}

// runContext tags ctx with a fresh run id unless the caller supplied one
func (l *Loader) runContext(ctx context.Context, operation string) context.Context {
	if !utils.HasRunID(ctx) {
		ctx = utils.WithRunID(ctx, uuid.NewString())
	}
	ctx = utils.WithOperation(ctx, operation)
	return utils.WithDatabase(ctx, l.connector.Database())
}

func (l *Loader) run(ctx context.Context, operation string, input interface{}, scope clearScope) (err error) {
	ctx = l.runContext(ctx, operation)
	log := l.logger.WithContext(ctx)
	started := time.Now()

	var set model.FixtureSet
	defer func() {
		data := map[string]interface{}{
			"duration_ms": time.Since(started).Milliseconds(),
		}
		if err != nil {
			data["error"] = err.Error()
			log.Errorf("Fixture %s failed: %v", operation, err)
			l.publish(ctx, eventbus.EventTypeLoadFailed, data)
			return
		}
		data["collections"] = len(set)
		data["documents"] = set.DocumentCount()
		log.WithFields(data).Info("Fixtures loaded")
		l.publish(ctx, eventbus.EventTypeLoadCompleted, data)
	}()

	set, err = l.resolver.Resolve(ctx, input)
	if err != nil {
		return err
	}
	if len(set) == 0 && scope != clearAll {
		log.Debug("Empty fixture set, nothing to do")
		return nil
	}

	store, err := l.conn.Get(ctx)
	if err != nil {
		return err
	}

	switch scope {
	case clearTargets:
		if _, err = l.clearer.clearStore(ctx, store, set.Collections()); err != nil {
			return err
		}
	case clearAll:
		if _, err = l.clearer.clearStore(ctx, store, nil); err != nil {
			return err
		}
	}

	return l.insertAll(ctx, store, set)
}

// insertAll loads every collection concurrently. Siblings of a failed collection keep
// running; the first error is returned after all of them finish.
func (l *Loader) insertAll(ctx context.Context, store repository.Store, set model.FixtureSet) error {
	var g errgroup.Group
	for _, name := range set.Collections() {
		batch := set[name]
		g.Go(func() error {
			return l.loadCollection(utils.WithCollection(ctx, name), store, name, batch)
		})
	}
	return g.Wait()
}

func (l *Loader) loadCollection(ctx context.Context, store repository.Store, name string, batch model.DocumentBatch) error {
	if len(batch) == 0 {
		return nil
	}

	docs, err := l.chain.ApplyBatch(ctx, name, batch)
	if err != nil {
		return err
	}
	if err := store.InsertMany(ctx, name, docs); err != nil {
		return fmt.Errorf("%w: collection %q: %w", sharederrors.ErrInsert, name, err)
	}

	l.logger.WithContext(ctx).Debugf("Inserted %d documents", len(docs))
	l.publish(ctx, eventbus.EventTypeCollectionLoaded, map[string]interface{}{
		"collection": name,
		"documents":  len(docs),
	})
	return nil
}

func (l *Loader) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if l.events == nil {
		return
	}
	l.events.PublishAndForget(ctx, newLoaderEvent(ctx, eventType, data))
}
