package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventShape(t *testing.T) {
	event := NewEvent("document.created", "world-client", "w1", nil)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "document.created", event.EventType)
	assert.Equal(t, "w1", event.WorldID)
	assert.NotNil(t, event.Payload)
	assert.False(t, event.Timestamp.IsZero())
}

func TestPublishRejectsIncompleteEvent(t *testing.T) {
	m := NewMirror([]string{"localhost:9092"}, "w1", "world-client")
	defer m.Close()

	err := m.Publish(context.Background(), TopicDocumentEvents, Event{})
	require.Error(t, err)

	// unknown topics are rejected before any broker traffic
	err = m.Publish(context.Background(), "nope", NewEvent("x", "s", "w1", nil))
	assert.Error(t, err)
}
