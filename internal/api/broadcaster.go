package api

import (
	"sync"

	"github.com/sentinelsec/sentinel/internal/core"
	"go.uber.org/zap"
)

// listenerBuffer bounds how many undelivered events a slow listener may hold
const listenerBuffer = 16

// Broadcaster is an explicit registry of live listeners interested in report
// status transitions. It is owned by the API layer; the pipeline only emits
// domain events that get relayed here.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[int]chan core.StatusEvent
	nextID    int
	logger    *zap.Logger
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		listeners: make(map[int]chan core.StatusEvent),
		logger:    logger,
	}
}

// Subscribe registers a new listener and returns its handle and channel
func (b *Broadcaster) Subscribe() (int, <-chan core.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan core.StatusEvent, listenerBuffer)
	b.listeners[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.listeners[id]; ok {
		delete(b.listeners, id)
		close(ch)
	}
}

// Broadcast delivers an event to every listener. A listener whose buffer is
// full misses the event rather than blocking the others.
func (b *Broadcaster) Broadcast(event core.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.listeners {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Dropping event for slow listener",
				zap.Int("listener", id),
				zap.String("report_id", event.ReportID))
		}
	}
}

// Len returns the number of registered listeners
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
