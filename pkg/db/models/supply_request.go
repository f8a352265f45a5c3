package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// SupplyRequest is a single-item request. Bulk submissions share a GroupID.
type SupplyRequest struct {
	ID           uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EmployeeID   uuid.UUID             `gorm:"column:employee_id;type:uuid;not null"`
	EmployeeName string                `gorm:"column:employee_name;not null"`
	Department   string                `gorm:"column:department;not null"`
	ItemID       uuid.UUID             `gorm:"column:item_id;type:uuid;not null"`
	ItemName     string                `gorm:"column:item_name;not null"`
	Quantity     int                   `gorm:"column:quantity;not null"`
	Notes        string                `gorm:"column:notes;not null"`
	Priority     enums.RequestPriority `gorm:"column:priority;type:request_priority;not null"`
	Status       enums.RequestStatus   `gorm:"column:status;type:request_status;not null"`
	GroupID      *uuid.UUID            `gorm:"column:group_id;type:uuid"`
	AdminNotes   *string               `gorm:"column:admin_notes"`
	ApprovedAt   *time.Time            `gorm:"column:approved_at"`
	ApprovedBy   *uuid.UUID            `gorm:"column:approved_by;type:uuid"`
	RejectedAt   *time.Time            `gorm:"column:rejected_at"`
	RejectedBy   *uuid.UUID            `gorm:"column:rejected_by;type:uuid"`
	FulfilledAt  *time.Time            `gorm:"column:fulfilled_at"`
	FulfilledBy  *uuid.UUID            `gorm:"column:fulfilled_by;type:uuid"`
	CancelledAt  *time.Time            `gorm:"column:cancelled_at"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *SupplyRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
