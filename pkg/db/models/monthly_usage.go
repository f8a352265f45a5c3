package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MonthlyUsage accumulates approved quantity per user, item and month.
type MonthlyUsage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	ItemName  string    `gorm:"column:item_name;not null"`
	Year      int       `gorm:"column:year;not null"`
	Month     int       `gorm:"column:month;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (MonthlyUsage) TableName() string {
	return "monthly_usage"
}

func (m *MonthlyUsage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// UsageRecord is the dedupe ledger for recorded usage. IdempotencyKey is
// unique, so replaying the same approval cannot count twice.
type UsageRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IdempotencyKey string    `gorm:"column:idempotency_key;not null;uniqueIndex"`
	RequestID      uuid.UUID `gorm:"column:request_id;type:uuid;not null"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ItemID         uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Year           int       `gorm:"column:year;not null"`
	Month          int       `gorm:"column:month;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *UsageRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
