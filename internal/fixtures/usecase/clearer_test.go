package usecase_test

import (
	"context"
	"errors"
	"testing"

	"mongo-fixtures/internal/fixtures/testutil"
	"mongo-fixtures/internal/fixtures/usecase"
	sharederrors "mongo-fixtures/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newClearer(store *testutil.MemoryStore) *usecase.Clearer {
	conn := usecase.NewConnectionManager(testutil.NewMemoryConnector(store), nil)
	return usecase.NewClearer(conn, nil, nil)
}

func TestClearer_ClearAll(t *testing.T) {
	store := testutil.SeedCartoons(testutil.NewMemoryStore())
	store.Seed("system.views", testutil.Docs("view", 1)...)

	require.NoError(t, newClearer(store).Clear(context.Background()))

	assert.Equal(t, 0, store.Count("archer"))
	assert.Equal(t, 0, store.Count("southpark"))
	assert.Equal(t, 1, store.Count("system.views"), "system collections are never cleared")
	assert.True(t, store.HasCollection("archer"), "remove keeps the collection")
}

func TestClearer_Selective(t *testing.T) {
	store := testutil.SeedCartoons(testutil.NewMemoryStore())

	require.NoError(t, newClearer(store).Clear(context.Background(), "archer"))

	assert.Equal(t, 0, store.Count("archer"))
	assert.Equal(t, 3, store.Count("southpark"))
	assert.Empty(t, store.OpsOf(testutil.OpList), "named clears do not list collections")
}

func TestClearer_MissingCollectionIsNoop(t *testing.T) {
	store := testutil.SeedCartoons(testutil.NewMemoryStore())

	require.NoError(t, newClearer(store).Clear(context.Background(), "doesNotExist"))
	assert.False(t, store.HasCollection("doesNotExist"))
	assert.Equal(t, 3, store.Count("archer"))
}

func TestClearer_DuplicateNamesClearOnce(t *testing.T) {
	store := testutil.SeedCartoons(testutil.NewMemoryStore())

	require.NoError(t, newClearer(store).Clear(context.Background(), "archer", "archer"))
	assert.Len(t, store.OpsOf(testutil.OpClear), 1)
}

func TestClearer_EmptyName(t *testing.T) {
	err := newClearer(testutil.NewMemoryStore()).Clear(context.Background(), "")
	assert.True(t, errors.Is(err, sharederrors.ErrClear))
}

func TestClearer_FirstErrorAfterAllFinish(t *testing.T) {
	store := testutil.SeedCartoons(testutil.NewMemoryStore())
	cause := errors.New("not authorized on archer")
	store.FailClear("archer", cause)

	err := newClearer(store).Clear(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sharederrors.ErrClear))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 0, store.Count("southpark"), "sibling clears are not cancelled")
}

func TestClearer_ListFailure(t *testing.T) {
	store := testutil.NewMemoryStore()
	store.FailList(errors.New("listCollections denied"))

	err := newClearer(store).Clear(context.Background())
	assert.True(t, errors.Is(err, sharederrors.ErrClear))
}

func TestClearer_ConnectionFailure(t *testing.T) {
	connector := &testutil.MockConnector{}
	connector.On("Connect", mock.Anything).Return(nil, errors.New("connection refused"))
	connector.On("Database").Return("fixtures_test")

	clearer := usecase.NewClearer(usecase.NewConnectionManager(connector, nil), nil, nil)
	err := clearer.Clear(context.Background(), "archer")
	assert.True(t, errors.Is(err, sharederrors.ErrConnection))
}
