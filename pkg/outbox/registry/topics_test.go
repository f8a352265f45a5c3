package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
)

var topics = config.PubSubConfig{
	RequestsTopic:     "req",
	InventoryTopic:    "inv",
	NotificationTopic: "notif",
}

func envelopeOf(t *testing.T, version int, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(outbox.PayloadEnvelope{Version: version, EventID: uuid.NewString(), OccurredAt: time.Now().UTC(), Data: raw})
	require.NoError(t, err)
	return out
}

func TestResolveDecodesStatusChange(t *testing.T) {
	reg, err := NewEventRegistry(topics)
	require.NoError(t, err)

	requestID := uuid.New()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventRequestStatusChanged,
		AggregateType: enums.AggregateSupplyRequest,
		AggregateID:   requestID,
		Payload: envelopeOf(t, 1, payloads.RequestStatusChangedEvent{
			RequestID:  requestID,
			Quantity:   2,
			Transition: enums.TransitionApprove,
			FromStatus: enums.RequestStatusPending,
			ToStatus:   enums.RequestStatusApproved,
		}),
	}

	resolved, err := reg.Resolve(row)
	require.NoError(t, err)
	assert.Equal(t, "req", resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	event, ok := resolved.Payload.(payloads.RequestStatusChangedEvent)
	require.True(t, ok, "payload is %T", resolved.Payload)
	assert.Equal(t, requestID, event.RequestID)
	assert.Equal(t, enums.RequestStatusApproved, event.ToStatus)
}

func TestResolveAcceptsGroupSubmission(t *testing.T) {
	reg, err := NewEventRegistry(topics)
	require.NoError(t, err)

	groupID := uuid.New()
	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventRequestSubmitted,
		AggregateType: enums.AggregateRequestGroup,
		AggregateID:   groupID,
		Payload:       envelopeOf(t, 1, payloads.RequestSubmittedEvent{RequestIDs: []uuid.UUID{uuid.New(), uuid.New()}, GroupID: &groupID}),
	})
	require.NoError(t, err)
	event := resolved.Payload.(payloads.RequestSubmittedEvent)
	assert.Len(t, event.RequestIDs, 2)
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg, err := NewEventRegistry(topics)
	require.NoError(t, err)
	lowStock := envelopeOf(t, 1, payloads.InventoryLowStockEvent{ItemID: uuid.New()})

	cases := map[string]models.OutboxEvent{
		"unknown type":     {EventType: "mystery", AggregateType: enums.AggregateInventoryItem, AggregateID: uuid.New(), Payload: lowStock},
		"wrong aggregate":  {EventType: enums.EventInventoryLowStock, AggregateType: enums.AggregateNotification, AggregateID: uuid.New(), Payload: lowStock},
		"nil aggregate id": {EventType: enums.EventInventoryLowStock, AggregateType: enums.AggregateInventoryItem, Payload: lowStock},
		"not json":         {EventType: enums.EventInventoryLowStock, AggregateType: enums.AggregateInventoryItem, AggregateID: uuid.New(), Payload: []byte("{")},
		"null data": {EventType: enums.EventInventoryLowStock, AggregateType: enums.AggregateInventoryItem, AggregateID: uuid.New(),
			Payload: []byte(`{"version":1,"eventId":"x","data":null}`)},
		"unknown version": {EventType: enums.EventInventoryLowStock, AggregateType: enums.AggregateInventoryItem, AggregateID: uuid.New(),
			Payload: envelopeOf(t, 2, payloads.InventoryLowStockEvent{ItemID: uuid.New()})},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			var permanent NonRetryableError
			assert.ErrorAs(t, err, &permanent)
		})
	}
}

func TestNewEventRegistryNeedsTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{RequestsTopic: "req"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory topic")
	assert.Contains(t, err.Error(), "notifications topic")

	reg, err := NewEventRegistry(topics)
	require.NoError(t, err)
	topic, ok := reg.Topic(enums.EventNotificationCreated)
	assert.True(t, ok)
	assert.Equal(t, "notif", topic)
}
