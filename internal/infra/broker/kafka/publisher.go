package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"hostelmarket/internal/app/events"
)

// EventPublisher writes domain events to Kafka as CloudEvents JSON. Topics
// derive from the event name: the segment before the first dot plus an
// ".events.v1" suffix, e.g. chat.message.sent -> chat.events.v1.
type EventPublisher struct {
	Producer    *Producer
	TopicPrefix string
	Source      string
}

func (p *EventPublisher) Publish(ctx context.Context, event events.Event) error {
	if p.Producer == nil {
		return nil
	}
	envelope := map[string]any{
		"specversion":     "1.0",
		"id":              uuid.NewString(),
		"type":            event.Name() + ".v1",
		"source":          p.source(),
		"time":            time.Now().UTC(),
		"datacontenttype": "application/json",
		"data":            event.Payload(),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	return p.Producer.Publish(ctx, p.topicFor(event.Name()), event.Key(), payload, headers)
}

func (p *EventPublisher) topicFor(name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	topic := base + ".events.v1"
	if p.TopicPrefix != "" {
		topic = p.TopicPrefix + topic
	}
	return topic
}

func (p *EventPublisher) source() string {
	if p.Source != "" {
		return p.Source
	}
	return "app://hostelmarket"
}
