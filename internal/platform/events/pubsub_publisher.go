// Package events publishes booking lifecycle events to Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/menuslot/api/internal/services"
)

// PubSubBookingPublisher publishes booking events to a Pub/Sub topic.
type PubSubBookingPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.BookingEventPublisher = (*PubSubBookingPublisher)(nil)

// NewPubSubBookingPublisher constructs a Pub/Sub backed booking event publisher.
func NewPubSubBookingPublisher(topic *pubsub.Topic) (*PubSubBookingPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub booking publisher: topic is required")
	}
	return &PubSubBookingPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

type bookingEventPayload struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"bookingId"`
	ItemID     string    `json:"itemId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PublishBookingEvent sends the event and waits for the server acknowledgement.
// Events of one item share an ordering key when the topic has ordering enabled.
func (p *PubSubBookingPublisher) PublishBookingEvent(ctx context.Context, event services.BookingEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub booking publisher: not initialised")
	}

	data, err := p.marshal(bookingEventPayload{
		Type:       event.Type,
		BookingID:  event.BookingID,
		ItemID:     event.ItemID,
		StartTime:  event.StartTime.UTC(),
		EndTime:    event.EndTime.UTC(),
		Status:     string(event.Status),
		OccurredAt: event.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	attrs := make(map[string]string, 3)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "bookingId", event.BookingID)
	setAttr(attrs, "itemId", event.ItemID)

	msg := &pubsub.Message{Data: data, Attributes: attrs}
	if p.topic.EnableMessageOrdering {
		msg.OrderingKey = event.ItemID
	}

	if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
		if msg.OrderingKey != "" {
			p.topic.ResumePublish(msg.OrderingKey)
		}
		return fmt.Errorf("publish booking event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
