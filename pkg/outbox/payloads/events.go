package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// RequestSubmittedEvent is emitted once per submission, single or bulk.
type RequestSubmittedEvent struct {
	RequestIDs  []uuid.UUID `json:"request_ids"`
	GroupID     *uuid.UUID  `json:"group_id,omitempty"`
	EmployeeID  uuid.UUID   `json:"employee_id"`
	Department  string      `json:"department"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// RequestStatusChangedEvent records one lifecycle transition of a request.
type RequestStatusChangedEvent struct {
	RequestID  uuid.UUID               `json:"request_id"`
	GroupID    *uuid.UUID              `json:"group_id,omitempty"`
	EmployeeID uuid.UUID               `json:"employee_id"`
	ItemID     uuid.UUID               `json:"item_id"`
	Quantity   int                     `json:"quantity"`
	Transition enums.RequestTransition `json:"transition"`
	FromStatus enums.RequestStatus     `json:"from_status"`
	ToStatus   enums.RequestStatus     `json:"to_status"`
	ActorID    uuid.UUID               `json:"actor_id"`
}

// InventoryLowStockEvent fires when an item drops to or below its minimum.
type InventoryLowStockEvent struct {
	ItemID      uuid.UUID `json:"item_id"`
	ItemName    string    `json:"item_name"`
	Available   int       `json:"available"`
	MinQuantity int       `json:"min_quantity"`
	DetectedAt  time.Time `json:"detected_at"`
}

// NotificationCreatedEvent mirrors a stored notification for push delivery.
type NotificationCreatedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
}
