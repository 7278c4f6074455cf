package queue

import (
	"context"
	"errors"
	"time"

	"github.com/sentinelsec/sentinel/internal/core"
)

// MemoryQueue is an in-process implementation of the JobQueue interface,
// used for development and tests
type MemoryQueue struct {
	jobs         chan string
	blockTimeout time.Duration
}

// NewMemoryQueue creates a new in-memory job queue
func NewMemoryQueue(capacity int, blockTimeout time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	return &MemoryQueue{
		jobs:         make(chan string, capacity),
		blockTimeout: blockTimeout,
	}
}

// Enqueue submits a report id for analysis
func (q *MemoryQueue) Enqueue(ctx context.Context, reportID string) error {
	if reportID == "" {
		return errors.New("report id cannot be empty")
	}
	select {
	case q.jobs <- reportID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks for the configured timeout and returns the next report id,
// or ErrNoJob when the queue stayed empty
func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	timer := time.NewTimer(q.blockTimeout)
	defer timer.Stop()

	select {
	case reportID := <-q.jobs:
		return reportID, nil
	case <-timer.C:
		return "", core.ErrNoJob
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
