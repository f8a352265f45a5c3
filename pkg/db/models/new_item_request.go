package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// NewItemRequest is an employee suggestion for an item missing from the catalog.
type NewItemRequest struct {
	ID          uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID                  `gorm:"column:user_id;type:uuid;not null"`
	UserName    string                     `gorm:"column:user_name;not null"`
	Department  string                     `gorm:"column:department;not null"`
	ItemName    string                     `gorm:"column:item_name;not null"`
	Description string                     `gorm:"column:description;not null"`
	Reason      string                     `gorm:"column:reason;not null"`
	Quantity    int                        `gorm:"column:quantity;not null"`
	Status      enums.NewItemRequestStatus `gorm:"column:status;type:new_item_request_status;not null"`
	AdminNotes  *string                    `gorm:"column:admin_notes"`
	DecidedBy   *uuid.UUID                 `gorm:"column:decided_by;type:uuid"`
	DecidedAt   *time.Time                 `gorm:"column:decided_at"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *NewItemRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
