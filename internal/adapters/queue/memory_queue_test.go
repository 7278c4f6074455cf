package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelsec/sentinel/internal/core"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(10, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))
	require.NoError(t, q.Enqueue(ctx, "job-2"))

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", first)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-2", second)
}

func TestMemoryQueueEmptyTimesOut(t *testing.T) {
	q := NewMemoryQueue(10, 20*time.Millisecond)

	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, core.ErrNoJob)
}

func TestMemoryQueueRejectsEmptyID(t *testing.T) {
	q := NewMemoryQueue(10, time.Second)
	assert.Error(t, q.Enqueue(context.Background(), ""))
}

func TestMemoryQueueDequeueHonorsContext(t *testing.T) {
	q := NewMemoryQueue(10, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after context cancellation")
	}
}
