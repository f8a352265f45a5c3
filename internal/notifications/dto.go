package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// NotificationDTO exposes a notification in API responses.
type NotificationDTO struct {
	ID               uuid.UUID              `json:"id"`
	Type             enums.NotificationType `json:"type"`
	MessageKey       string                 `json:"message_key"`
	Title            string                 `json:"title"`
	Message          string                 `json:"message"`
	RequestID        *uuid.UUID             `json:"request_id,omitempty"`
	RequestGroupID   *uuid.UUID             `json:"request_group_id,omitempty"`
	ItemID           *uuid.UUID             `json:"item_id,omitempty"`
	NewItemRequestID *uuid.UUID             `json:"new_item_request_id,omitempty"`
	Count            int                    `json:"count"`
	Read             bool                   `json:"read"`
	ReadAt           *time.Time             `json:"read_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// FromModel maps the persisted notification into a DTO.
func FromModel(m *models.Notification) *NotificationDTO {
	if m == nil {
		return nil
	}
	return &NotificationDTO{
		ID:               m.ID,
		Type:             m.Type,
		MessageKey:       m.MessageKey,
		Title:            m.Title,
		Message:          m.Message,
		RequestID:        m.RequestID,
		RequestGroupID:   m.RequestGroupID,
		ItemID:           m.ItemID,
		NewItemRequestID: m.NewItemRequestID,
		Count:            m.Count,
		Read:             m.ReadAt != nil,
		ReadAt:           m.ReadAt,
		CreatedAt:        m.CreatedAt,
	}
}
