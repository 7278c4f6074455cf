package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sentinelsec/sentinel/internal/core"
)

func TestBroadcasterDeliversToAllListeners(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())

	id1, ch1 := b.Subscribe()
	id2, ch2 := b.Subscribe()
	defer b.Unsubscribe(id1)
	defer b.Unsubscribe(id2)

	event := core.StatusEvent{ReportID: "r1", Status: core.StatusProcessing}
	b.Broadcast(event)

	assert.Equal(t, event, <-ch1)
	assert.Equal(t, event, <-ch2)
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())

	id, ch := b.Subscribe()
	require.Equal(t, 1, b.Len())

	b.Unsubscribe(id)
	assert.Equal(t, 0, b.Len())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe is harmless
	b.Unsubscribe(id)
}

func TestBroadcasterDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	// Overfill the listener buffer; Broadcast must not block
	for i := 0; i < listenerBuffer+5; i++ {
		b.Broadcast(core.StatusEvent{ReportID: "r1", Status: core.StatusProcessing})
	}

	delivered := 0
	for {
		select {
		case <-ch:
			delivered++
			continue
		default:
		}
		break
	}
	assert.Equal(t, listenerBuffer, delivered)
}

func TestBroadcasterNoListeners(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	// Broadcasting into the void is fine
	b.Broadcast(core.StatusEvent{ReportID: "r1", Status: core.StatusComplete})
	assert.Equal(t, 0, b.Len())
}
