package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"mongo-fixtures/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("logrus", "info", "json")
	var _ Logger = NewLoggerWithConfig("zap", "debug", "json")
	var _ Logger = NewNopLogger()
}

func TestLogrusLogger_WithContextLiftsKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&buf, "debug")

	ctx := context.WithValue(context.Background(), contextkeys.RunIDKey, "run-1")
	ctx = context.WithValue(ctx, contextkeys.CollectionKey, "archer")
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "")

	log.WithContext(ctx).WithComponent("loader").Info("inserted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "archer", entry["collection"])
	assert.Equal(t, "loader", entry["component"])
	assert.NotContains(t, entry, "operation", "empty values are not logged")
}

func TestLogrusLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter(&buf, "info")

	log.WithFields(map[string]interface{}{"documents": 3}).Debug("hidden below level")
	assert.Zero(t, buf.Len())

	log.WithFields(map[string]interface{}{"documents": 3}).Info("visible")
	assert.Contains(t, buf.String(), `"documents":3`)
}

func TestZapLogger_WithContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapLoggerFrom(zap.New(core))

	ctx := context.WithValue(context.Background(), contextkeys.RunIDKey, "run-2")
	log.WithContext(ctx).WithComponent("clearer").Debugf("cleared %d collections", 2)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "cleared 2 collections", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "run-2", fields["run_id"])
	assert.Equal(t, "clearer", fields["component"])
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, NopLogger{}, OrNop(nil))
	l := NewLoggerWithConfig("logrus", "info", "text")
	assert.Same(t, l, OrNop(l))
}
