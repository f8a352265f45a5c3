package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemLimitation caps how many units of an item a position may request per
// calendar month.
type ItemLimitation struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID       uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_item_limitations_item_position"`
	ItemName     string    `gorm:"column:item_name;not null"`
	Position     string    `gorm:"column:position;not null;uniqueIndex:ux_item_limitations_item_position"`
	MonthlyLimit int       `gorm:"column:monthly_limit;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *ItemLimitation) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
