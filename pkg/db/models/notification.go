package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// Notification stores an in-app message addressed to one user.
type Notification struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	Type             enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	MessageKey       string                 `gorm:"column:message_key;not null"`
	Title            string                 `gorm:"column:title;not null"`
	Message          string                 `gorm:"column:message;not null"`
	RequestID        *uuid.UUID             `gorm:"column:request_id;type:uuid"`
	RequestGroupID   *uuid.UUID             `gorm:"column:request_group_id;type:uuid"`
	ItemID           *uuid.UUID             `gorm:"column:item_id;type:uuid"`
	NewItemRequestID *uuid.UUID             `gorm:"column:new_item_request_id;type:uuid"`
	Count            int                    `gorm:"column:count;not null"`
	ReadAt           *time.Time             `gorm:"column:read_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
