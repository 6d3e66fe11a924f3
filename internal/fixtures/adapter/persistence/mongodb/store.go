package mongodb

import (
	"context"
	"errors"
	"fmt"

	"mongo-fixtures/internal/fixtures/config"
	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"
	"mongo-fixtures/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// codeNamespaceNotFound is the server error code for a missing collection
const codeNamespaceNotFound = 26

// Store is a repository.Store over one MongoDB database
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	clearMode config.ClearMode
	logger    logger.Logger
}

var _ repository.Store = (*Store)(nil)

// NewStore wraps db. client is disconnected by Close.
func NewStore(client *mongo.Client, db *mongo.Database, mode config.ClearMode, log logger.Logger) *Store {
	if mode == "" {
		mode = config.ClearModeRemove
	}
	return &Store{
		client:    client,
		db:        db,
		clearMode: mode,
		logger:    logger.OrNop(log),
	}
}

// Database returns the underlying database handle
func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections of %s: %w", s.db.Name(), err)
	}
	return names, nil
}

// ClearCollection deletes every document, or drops the collection in drop mode.
func (s *Store) ClearCollection(ctx context.Context, name string) error {
	coll := s.db.Collection(name)

	if s.clearMode == config.ClearModeDrop {
		if err := coll.Drop(ctx); err != nil && !isNamespaceNotFound(err) {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
		return nil
	}

	res, err := coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to remove documents: %w", err)
	}
	s.logger.WithContext(ctx).Debugf("Removed %d documents", res.DeletedCount)
	return nil
}

// InsertMany inserts docs in order; the first failing document stops the batch.
func (s *Store) InsertMany(ctx context.Context, name string, docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	payload := make([]interface{}, len(docs))
	for i, doc := range docs {
		payload[i] = doc.Ordered()
	}

	res, err := s.db.Collection(name).InsertMany(ctx, payload, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}
	s.logger.WithContext(ctx).Debugf("Inserted %d documents", len(res.InsertedIDs))
	return nil
}

// Ping checks the server is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func isNamespaceNotFound(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeNamespaceNotFound || cmdErr.Name == "NamespaceNotFound"
	}
	return false
}
