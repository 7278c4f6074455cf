package events

import (
	"context"

	"github.com/sentinelsec/sentinel/internal/core"
)

// NoopPublisher discards status events. Used when no event transport is
// configured.
type NoopPublisher struct{}

// NewNoopPublisher creates a new no-op publisher
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// PublishStatus discards the event
func (p *NoopPublisher) PublishStatus(ctx context.Context, event core.StatusEvent) error {
	return nil
}
