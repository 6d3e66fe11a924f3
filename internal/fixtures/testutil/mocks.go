package testutil

import (
	"context"

	"mongo-fixtures/internal/fixtures/domain/model"
	"mongo-fixtures/internal/fixtures/domain/repository"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
)

// MockStore is a testify mock of repository.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListCollectionNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) ClearCollection(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockStore) InsertMany(ctx context.Context, name string, docs []model.Document) error {
	args := m.Called(ctx, name, docs)
	return args.Error(0)
}

func (m *MockStore) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockConnector is a testify mock of repository.Connector
type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) Connect(ctx context.Context) (repository.Store, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(repository.Store), args.Error(1)
}

func (m *MockConnector) Database() string {
	args := m.Called()
	return args.String(0)
}

// MockResourceLoader is a testify mock of repository.ResourceLoader
type MockResourceLoader struct {
	mock.Mock
}

func (m *MockResourceLoader) Stat(path string) (repository.ResourceInfo, error) {
	args := m.Called(path)
	return args.Get(0).(repository.ResourceInfo), args.Error(1)
}

func (m *MockResourceLoader) ListEntries(path string) ([]repository.ResourceEntry, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ResourceEntry), args.Error(1)
}

func (m *MockResourceLoader) Supports(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *MockResourceLoader) LoadExports(ctx context.Context, path string) (bson.D, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(bson.D), args.Error(1)
}
