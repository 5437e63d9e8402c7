package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/propstack/maintenance/internal/services"
)

// PubSubPublisher publishes maintenance domain events to a Pub/Sub topic.
// Consumers (notification fan-out, analytics) subscribe downstream; the
// publisher never blocks a caller beyond the publish acknowledgement.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed maintenance event publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub event publisher: topic is required")
	}
	return &PubSubPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

type eventEnvelope struct {
	Type            string         `json:"type"`
	TenantID        string         `json:"tenantId"`
	WorkOrderID     string         `json:"workOrderId"`
	WorkOrderNumber string         `json:"workOrderNumber,omitempty"`
	PreviousStatus  string         `json:"previousStatus,omitempty"`
	CurrentStatus   string         `json:"currentStatus,omitempty"`
	BreachType      string         `json:"breachType,omitempty"`
	VendorID        string         `json:"vendorId,omitempty"`
	ActorID         string         `json:"actorId,omitempty"`
	CorrelationID   string         `json:"correlationId,omitempty"`
	OccurredAt      time.Time      `json:"occurredAt"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// PublishMaintenanceEvent enqueues one event message on the configured topic.
func (p *PubSubPublisher) PublishMaintenanceEvent(ctx context.Context, event services.MaintenanceEvent) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub event publisher: not initialised")
	}

	envelope := eventEnvelope{
		Type:            event.Type,
		TenantID:        string(event.TenantID),
		WorkOrderID:     string(event.WorkOrderID),
		WorkOrderNumber: event.WorkOrderNumber,
		PreviousStatus:  string(event.PreviousStatus),
		CurrentStatus:   string(event.CurrentStatus),
		BreachType:      event.BreachType,
		VendorID:        string(event.VendorID),
		ActorID:         string(event.ActorID),
		CorrelationID:   event.CorrelationID,
		OccurredAt:      event.OccurredAt.UTC(),
		Metadata:        event.Metadata,
	}

	data, err := p.marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal maintenance event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "tenantId", string(event.TenantID))
	setAttr(attrs, "workOrderId", string(event.WorkOrderID))
	setAttr(attrs, "vendorId", string(event.VendorID))
	setAttr(attrs, "correlationId", event.CorrelationID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish maintenance event: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
