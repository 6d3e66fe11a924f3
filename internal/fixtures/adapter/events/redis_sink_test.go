package events

import (
	"context"
	"testing"
	"time"

	"mongo-fixtures/internal/shared/eventbus"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:6379",
		DB:           15,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func TestEventValues(t *testing.T) {
	event := eventbus.NewBasicEventWithSource(eventbus.EventTypeCollectionLoaded, map[string]interface{}{
		"collection": "archer",
		"documents":  3,
	}, "fixtures.loader")

	values, err := eventValues(event)
	require.NoError(t, err)
	assert.Equal(t, eventbus.EventTypeCollectionLoaded, values["type"])
	assert.Equal(t, "fixtures.loader", values["source"])
	assert.JSONEq(t, `{"collection":"archer","documents":3}`, values["data"].(string))
}

func TestParseMessage(t *testing.T) {
	event, err := parseMessage(redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"type":      eventbus.EventTypeLoadCompleted,
			"source":    "fixtures.loader",
			"timestamp": "1700000000000000000",
			"data":      `{"collections":2}`,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1-0", event.ID)
	assert.Equal(t, eventbus.EventTypeLoadCompleted, event.Type)
	assert.Equal(t, int64(1700000000), event.Timestamp.Unix())
	assert.Equal(t, float64(2), event.Data["collections"])

	_, err = parseMessage(redis.XMessage{ID: "2-0", Values: map[string]interface{}{"timestamp": "soon"}})
	assert.Error(t, err)
}

func TestRedisSink_StoresBusEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := createTestRedisClient()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available for testing:", err)
	}
	stream := "fixtures:events:test"
	client.Del(ctx, stream)
	defer func() {
		client.Del(context.Background(), stream)
		client.Close()
	}()

	sink := NewRedisSink(client, stream, 100, nil)
	bus := eventbus.NewEventBus(nil)
	sink.Register(bus)

	require.NoError(t, bus.Publish(ctx, eventbus.NewBasicEventWithSource(eventbus.EventTypeCollectionCleared,
		map[string]interface{}{"collection": "archer"}, "fixtures.loader")))
	require.NoError(t, bus.Publish(ctx, eventbus.NewBasicEventWithSource(eventbus.EventTypeLoadCompleted,
		map[string]interface{}{"collections": 1}, "fixtures.loader")))

	recent, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, eventbus.EventTypeLoadCompleted, recent[0].Type)
	assert.Equal(t, eventbus.EventTypeCollectionCleared, recent[1].Type)
	assert.Equal(t, "archer", recent[1].Data["collection"])
}
