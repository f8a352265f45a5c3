package notifications

import (
	"context"
	"fmt"
	"strconv"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/registry"
)

const lowStockConsumer = "low-stock-notifications"

type adminNotifier interface {
	NotifyAdmins(ctx context.Context, draft Draft) (int, error)
}

type eventClaimer interface {
	Claim(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns inventory_low_stock events into notifications for admins.
type Consumer struct {
	notifier     adminNotifier
	subscription receiver
	idempotency  eventClaimer
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds a low-stock notification consumer.
func NewConsumer(notifier adminNotifier, subscription receiver, claims eventClaimer, logg *logger.Logger) (*Consumer, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("inventory subscription required")
	}
	if claims == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	registry.RegisterJSON[payloads.InventoryLowStockEvent](decoders, enums.EventInventoryLowStock, 1)

	return &Consumer{
		notifier:     notifier,
		subscription: subscription,
		idempotency:  claims,
		decoders:     decoders,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventInventoryLowStock) {
		c.logg.Debug(logCtx, "skipping non low-stock event")
		return processResult{ack: true}
	}

	envelope, err := outbox.OpenEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "dropping malformed envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	event, err := registry.DecodeAs[payloads.InventoryLowStockEvent](c.decoders, enums.EventInventoryLowStock, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	first, err := c.idempotency.Claim(ctx, lowStockConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !first {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithField(logCtx, "item_id", event.ItemID.String())
	itemID := event.ItemID
	sent, err := c.notifier.NotifyAdmins(ctx, Draft{
		Type:   enums.NotificationLowStock,
		ItemID: &itemID,
		Params: map[string]string{
			ParamItem:      event.ItemName,
			ParamAvailable: strconv.Itoa(event.Available),
			ParamMinimum:   strconv.Itoa(event.MinQuantity),
		},
	})
	if err != nil {
		c.logg.Error(logCtx, "low stock notification failed", err)
		_ = c.idempotency.Release(ctx, lowStockConsumer, envelope.EventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithField(logCtx, "admins_notified", sent), "admins notified of low stock")
	return processResult{ack: true}
}
