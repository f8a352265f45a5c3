// Package outbox writes domain events into outbox_events inside the caller's
// transaction. The relay in outbox/relay ships them to Pub/Sub afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	// Version defaults to 1.
	Version    int
	OccurredAt time.Time
}

// Emitter is implemented by Service and faked in service tests.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

type Service struct {
	rows inserter
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{rows: repo, logg: logg, now: time.Now}
}

// Emit stores event in tx. It never commits; the event becomes visible to
// the relay only if the caller's transaction does.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	switch {
	case tx == nil:
		return errors.New("outbox emit: transaction required")
	case !event.EventType.IsValid():
		return fmt.Errorf("outbox emit: unknown event type %q", event.EventType)
	case !event.AggregateType.IsValid():
		return fmt.Errorf("outbox emit: unknown aggregate type %q", event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return errors.New("outbox emit: aggregate id required")
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("outbox emit %s: encode data: %w", event.EventType, err)
	}
	id := uuid.New()
	env := PayloadEnvelope{
		Version:    max(event.Version, 1),
		EventID:    id.String(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = s.now()
	}
	env.OccurredAt = env.OccurredAt.UTC()

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("outbox emit %s: encode envelope: %w", event.EventType, err)
	}
	if err := s.rows.Insert(tx, models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("outbox emit %s: %w", event.EventType, err)
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       env.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}
