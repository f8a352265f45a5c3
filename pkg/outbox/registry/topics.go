package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will fail the same way on every attempt.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

type route struct {
	topic      string
	aggregates []enums.OutboxAggregateType
}

// EventRegistry routes outbox rows to topics and checks their payloads
// decode before anything leaves the database.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]route
	decoders *DecoderRegistry
}

// NewEventRegistry wires every event type the services emit.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	for name, topic := range map[string]string{
		"requests":      cfg.RequestsTopic,
		"inventory":     cfg.InventoryTopic,
		"notifications": cfg.NotificationTopic,
	} {
		if topic == "" {
			missing = append(missing, fmt.Errorf("%s topic is required", name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	r := &EventRegistry{routes: map[enums.OutboxEventType]route{}, decoders: NewDecoderRegistry()}
	addRoute[payloads.RequestSubmittedEvent](r, enums.EventRequestSubmitted, cfg.RequestsTopic,
		enums.AggregateSupplyRequest, enums.AggregateRequestGroup)
	addRoute[payloads.RequestStatusChangedEvent](r, enums.EventRequestStatusChanged, cfg.RequestsTopic,
		enums.AggregateSupplyRequest)
	addRoute[payloads.InventoryLowStockEvent](r, enums.EventInventoryLowStock, cfg.InventoryTopic,
		enums.AggregateInventoryItem)
	addRoute[payloads.NotificationCreatedEvent](r, enums.EventNotificationCreated, cfg.NotificationTopic,
		enums.AggregateNotification)
	return r, nil
}

func addRoute[T any](r *EventRegistry, eventType enums.OutboxEventType, topic string, aggregates ...enums.OutboxAggregateType) {
	r.routes[eventType] = route{topic: topic, aggregates: aggregates}
	RegisterJSON[T](r.decoders, eventType, 1)
}

// Topic reports where eventType is published.
func (r *EventRegistry) Topic(eventType enums.OutboxEventType) (string, bool) {
	rt, ok := r.routes[eventType]
	return rt.topic, ok
}

// Resolve validates the row and decodes its payload. Every failure is
// non-retryable.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[row.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", row.EventType))
	}
	if !slices.Contains(rt.aggregates, row.AggregateType) {
		return nil, NewNonRetryableError(fmt.Errorf("%s cannot be emitted by aggregate %q", row.EventType, row.AggregateType))
	}
	if row.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(errors.New("aggregate id missing"))
	}

	envelope, err := outbox.OpenEnvelope(row.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload, err := r.decoders.Decode(row.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s: %w", row.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: EventDescriptor{EventType: row.EventType, AggregateType: row.AggregateType, Topic: rt.topic},
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
