package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// RedisPublisher relays status events over a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher creates a new Redis event publisher
func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = "sentinel:events"
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// PublishStatus publishes one status transition. Failures are returned for
// the caller to log; they never block the pipeline.
func (p *RedisPublisher) PublishStatus(ctx context.Context, event core.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode status event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// RedisSubscriber receives status events from a Redis pub/sub channel and
// hands them to a sink, typically the API layer's broadcaster
type RedisSubscriber struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	stopCh  chan struct{}
}

// NewRedisSubscriber creates a new Redis event subscriber
func NewRedisSubscriber(client *redis.Client, channel string, logger *zap.Logger) *RedisSubscriber {
	if channel == "" {
		channel = "sentinel:events"
	}
	return &RedisSubscriber{
		client:  client,
		channel: channel,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Run consumes events until Stop is called, delivering each to the sink.
// Malformed payloads are dropped.
func (s *RedisSubscriber) Run(ctx context.Context, sink func(core.StatusEvent)) {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	messages := sub.Channel()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event core.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.Warn("Dropping malformed status event", zap.Error(err))
				continue
			}
			sink(event)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop terminates the Run loop
func (s *RedisSubscriber) Stop() {
	close(s.stopCh)
}
