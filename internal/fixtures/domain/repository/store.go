package repository

import (
	"context"

	"mongo-fixtures/internal/fixtures/domain/model"
)

// SystemCollectionPrefix marks server-internal collections. They are never cleared.
const SystemCollectionPrefix = "system."

// Store is one live connection to the target database.
// Implementations must accept concurrent calls.
type Store interface {
	// ListCollectionNames returns every collection of the database, system ones included.
	ListCollectionNames(ctx context.Context) ([]string, error)
	// ClearCollection leaves the named collection with zero documents and ready for inserts.
	// A collection that does not exist is not an error.
	ClearCollection(ctx context.Context, name string) error
	// InsertMany inserts docs in order with an acknowledged write.
	InsertMany(ctx context.Context, name string, docs []model.Document) error
	// Close releases the connection.
	Close(ctx context.Context) error
}

// Connector opens Stores. It is called at most once per loader.
type Connector interface {
	Connect(ctx context.Context) (Store, error)
	// Database names the target database, for logs and events.
	Database() string
}
