package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"mongo-fixtures/internal/shared/eventbus"
	"mongo-fixtures/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// StoredEvent is a loader event read back from the stream
type StoredEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// RedisSink appends loader events to a Redis stream
type RedisSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
	logger logger.Logger
}

// NewRedisSink creates a sink writing to stream. maxLen <= 0 leaves the stream untrimmed.
func NewRedisSink(client redis.Cmdable, stream string, maxLen int64, log logger.Logger) *RedisSink {
	return &RedisSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger.OrNop(log).WithComponent("redis_sink"),
	}
}

// Register subscribes the sink to every event of bus
func (s *RedisSink) Register(bus eventbus.EventBusInterface) {
	bus.Subscribe(eventbus.AllEvents, s.Handle)
}

// Handle is an eventbus.Handler storing event in the stream
func (s *RedisSink) Handle(ctx context.Context, event eventbus.Event) error {
	values, err := eventValues(event)
	if err != nil {
		s.logger.Errorf("Failed to serialize event %s: %v", event.Type(), err)
		return err
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	id, err := s.client.XAdd(ctx, args).Result()
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"stream":     s.stream,
			"event_type": event.Type(),
		}).Errorf("Failed to store event in Redis: %v", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"stream":     s.stream,
		"event_type": event.Type(),
		"entry_id":   id,
	}).Debug("Event stored in Redis")
	return nil
}

// Recent returns up to count of the newest events, newest first
func (s *RedisSink) Recent(ctx context.Context, count int64) ([]StoredEvent, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		if err == redis.Nil {
			return []StoredEvent{}, nil
		}
		return nil, err
	}

	out := make([]StoredEvent, 0, len(msgs))
	for _, msg := range msgs {
		event, err := parseMessage(msg)
		if err != nil {
			s.logger.Warnf("Skipping unreadable stream entry %s: %v", msg.ID, err)
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

// Ping checks the Redis connection
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func eventValues(event eventbus.Event) (map[string]interface{}, error) {
	data, err := json.Marshal(event.Data())
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"type":      event.Type(),
		"source":    event.Source(),
		"timestamp": event.Timestamp().UnixNano(),
		"data":      string(data),
	}, nil
}

func parseMessage(msg redis.XMessage) (StoredEvent, error) {
	event := StoredEvent{ID: msg.ID}
	event.Type, _ = msg.Values["type"].(string)
	event.Source, _ = msg.Values["source"].(string)

	if ts, ok := msg.Values["timestamp"].(string); ok {
		nanos, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return StoredEvent{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		event.Timestamp = time.Unix(0, nanos).UTC()
	}
	if raw, ok := msg.Values["data"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &event.Data); err != nil {
			return StoredEvent{}, fmt.Errorf("invalid data: %w", err)
		}
	}
	return event, nil
}
