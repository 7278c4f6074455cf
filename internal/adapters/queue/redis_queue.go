package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

const connectTimeout = 2 * time.Second

// RedisQueue is a Redis list implementation of the JobQueue interface.
// LPUSH/BRPOP gives FIFO, at-least-once delivery; the job driver's guarded
// status transition absorbs redeliveries.
type RedisQueue struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
	logger       *zap.Logger
}

// RedisConfig holds configuration for the Redis job queue
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	Key          string
	BlockTimeout time.Duration
}

// NewRedisQueue creates a new Redis-backed job queue
func NewRedisQueue(cfg RedisConfig, logger *zap.Logger) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = "sentinel:jobs"
	}
	blockTimeout := cfg.BlockTimeout
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}

	return &RedisQueue{
		client:       client,
		key:          key,
		blockTimeout: blockTimeout,
		logger:       logger,
	}, nil
}

// Enqueue submits a report id for analysis
func (q *RedisQueue) Enqueue(ctx context.Context, reportID string) error {
	if reportID == "" {
		return errors.New("report id cannot be empty")
	}
	if err := q.client.LPush(ctx, q.key, reportID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	q.logger.Debug("Job enqueued", zap.String("report_id", reportID))
	return nil
}

// Dequeue blocks for the configured timeout and returns the next report id,
// or ErrNoJob when the queue stayed empty
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	result, err := q.client.BRPop(ctx, q.blockTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNoJob
	}
	if err != nil {
		return "", fmt.Errorf("failed to dequeue job: %w", err)
	}
	// BRPOP returns [key, value]
	if len(result) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply of length %d", len(result))
	}
	return result[1], nil
}

// Close closes the underlying Redis client
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
