package factory

import (
	"fmt"

	"github.com/sentinelsec/sentinel/internal/adapters/queue"
	"github.com/sentinelsec/sentinel/internal/config"
	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

const memoryQueueCapacity = 1024

// QueueFactory creates job queues
type QueueFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewQueueFactory creates a new queue factory
func NewQueueFactory(cfg *config.Config, logger *zap.Logger) *QueueFactory {
	return &QueueFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateQueue creates a job queue based on the configured type. The memory
// queue only makes sense when the API and worker share a process; split
// deployments need Redis.
func (f *QueueFactory) CreateQueue() (core.JobQueue, error) {
	queueType := f.cfg.GetString("queue.type")

	blockTimeout, err := f.cfg.GetDuration("queue.block_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid queue block timeout: %w", err)
	}

	switch queueType {
	case "redis":
		return queue.NewRedisQueue(queue.RedisConfig{
			Addr:         f.cfg.GetString("queue.redis_addr"),
			Password:     f.cfg.GetString("queue.redis_password"),
			DB:           f.cfg.GetInt("queue.redis_db"),
			Key:          f.cfg.GetString("queue.key"),
			BlockTimeout: blockTimeout,
		}, f.logger)
	case "memory":
		return queue.NewMemoryQueue(memoryQueueCapacity, blockTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported queue type: %s", queueType)
	}
}
