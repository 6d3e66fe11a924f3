package di

import (
	"context"
	"testing"
	"time"

	"mongo-fixtures/internal/fixtures/config"
	"mongo-fixtures/internal/fixtures/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Loader: config.DefaultLoaderConfig("fixtures_test"),
		Server: config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
	}
}

func TestContainer_FixturesLifecycle(t *testing.T) {
	c := NewContainer(testConfig(), nil)
	store := testutil.NewMemoryStore()
	require.NoError(t, c.InitializeFixturesWithConnector(testutil.NewMemoryConnector(store)))
	assert.Error(t, c.InitializeFixturesWithConnector(testutil.NewMemoryConnector(store)))

	module := c.GetFixturesModule()
	require.NotNil(t, module)
	require.NoError(t, module.GetLoader().Load(context.Background(), map[string]interface{}{
		"archer": []interface{}{map[string]interface{}{"name": "Krieger"}},
	}))
	assert.NoError(t, c.HealthCheck(context.Background()))

	require.NoError(t, c.Close())
	assert.True(t, store.Closed())
	assert.Nil(t, c.GetFixturesModule())
}

func TestContainer_InitializeWithoutConfig(t *testing.T) {
	c := NewContainer(nil, nil)
	assert.Error(t, c.InitializeFixturesWithConnector(testutil.NewMemoryConnector(testutil.NewMemoryStore())))
}

func TestContainer_CleanupAllowsReinitialize(t *testing.T) {
	c := NewContainer(testConfig(), nil)
	require.NoError(t, c.Cleanup(context.Background()))

	first := testutil.NewMemoryStore()
	require.NoError(t, c.InitializeFixturesWithConnector(testutil.NewMemoryConnector(first)))
	require.NoError(t, c.GetFixturesModule().GetLoader().Clear(context.Background()))
	require.NoError(t, c.Cleanup(context.Background()))
	assert.True(t, first.Closed())

	second := testutil.NewMemoryStore()
	require.NoError(t, c.InitializeFixturesWithConnector(testutil.NewMemoryConnector(second)))
	assert.NotNil(t, c.GetFixturesModule())
	require.NoError(t, c.Close())
}

func TestContainer_HealthCheckReportsSink(t *testing.T) {
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Addr: "127.0.0.1:1", Stream: "fixtures:events"}
	c := NewContainer(cfg, nil)
	require.NoError(t, c.InitializeFixturesWithConnector(testutil.NewMemoryConnector(testutil.NewMemoryStore())))
	defer c.Close()

	err := c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis event sink")
}
