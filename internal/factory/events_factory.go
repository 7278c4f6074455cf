package factory

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sentinelsec/sentinel/internal/adapters/events"
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// EventsFactory creates status event publishers and subscribers
type EventsFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEventsFactory creates a new events factory
func NewEventsFactory(cfg *config.Config, logger *zap.Logger) *EventsFactory {
	return &EventsFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreatePublisher creates a status event publisher based on the configured
// type. Events are advisory, so the noop publisher is a valid choice.
func (f *EventsFactory) CreatePublisher() (core.EventPublisher, error) {
	switch f.cfg.GetString("events.type") {
	case "redis":
		return events.NewRedisPublisher(f.redisClient(), f.cfg.GetString("events.channel"), f.logger), nil
	case "noop":
		return events.NewNoopPublisher(), nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s", f.cfg.GetString("events.type"))
	}
}

// CreateSubscriber creates a Redis status event subscriber, or nil when
// events are disabled
func (f *EventsFactory) CreateSubscriber() (*events.RedisSubscriber, error) {
	switch f.cfg.GetString("events.type") {
	case "redis":
		return events.NewRedisSubscriber(f.redisClient(), f.cfg.GetString("events.channel"), f.logger), nil
	case "noop":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s", f.cfg.GetString("events.type"))
	}
}

// redisClient builds a client for the pub/sub channel. It reuses the queue's
// connection settings so a single Redis serves both concerns.
func (f *EventsFactory) redisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     f.cfg.GetString("queue.redis_addr"),
		Password: f.cfg.GetString("queue.redis_password"),
		DB:       f.cfg.GetInt("queue.redis_db"),
	})
}
