// Package eventbus mirrors applied world mutations onto kafka topics so
// campaign tooling outside the client can follow the session.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"tabletop-core/internal/document"
	"tabletop-core/internal/protocol"
)

type Mirror struct {
	writers map[string]*kafka.Writer
	worldID string
	source  string
	timeout time.Duration
}

// NewMirror creates a mirror publishing to the given brokers. Callers
// construct one only when brokers are configured.
func NewMirror(brokers []string, worldID, source string) *Mirror {
	topics := []string{TopicDocumentEvents, TopicSessionEvents}
	writers := make(map[string]*kafka.Writer)
	for _, topic := range topics {
		writers[topic] = &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	return &Mirror{
		writers: writers,
		worldID: worldID,
		source:  source,
		timeout: 5 * time.Second,
	}
}

func (m *Mirror) Publish(ctx context.Context, topic string, event Event) error {
	if event.EventID == "" || event.EventType == "" || event.WorldID == "" {
		return fmt.Errorf("event missing required fields: event_id=%q, event_type=%q, world_id=%q",
			event.EventID, event.EventType, event.WorldID)
	}
	writer, ok := m.writers[topic]
	if !ok {
		return fmt.Errorf("unknown topic %q", topic)
	}
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.WorldID),
		Value: msg,
	})
}

// DocumentsModified implements the collection mutation sink. Publishing
// is best effort: a broker hiccup is logged, never surfaced to the
// dispatcher.
func (m *Mirror) DocumentsModified(action protocol.Action, documentType string, docs []*document.Document, userID string) {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	event := NewEvent("document."+string(action)+"d", m.source, m.worldID, nil)
	event.DocumentType = documentType
	event.DocumentIDs = ids
	event.UserID = userID

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.Publish(ctx, TopicDocumentEvents, event); err != nil {
		log.Printf("Event mirror publish failed for %s %s: %v", action, documentType, err)
	}
}

// PublishSessionEvent reports session lifecycle (init/teardown).
func (m *Mirror) PublishSessionEvent(ctx context.Context, eventType string) error {
	return m.Publish(ctx, TopicSessionEvents, NewEvent(eventType, m.source, m.worldID, nil))
}

func (m *Mirror) Close() error {
	var first error
	for topic, writer := range m.writers {
		if err := writer.Close(); err != nil {
			if first == nil {
				first = fmt.Errorf("close writer for topic %s: %w", topic, err)
			} else {
				log.Printf("Additional close error: %v", err)
			}
		}
	}
	return first
}
