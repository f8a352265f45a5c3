package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryItem is a catalog entry with its stock counters.
type InventoryItem struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string     `gorm:"column:name;not null"`
	Category        string     `gorm:"column:category;not null"`
	Description     string     `gorm:"column:description;not null"`
	ImageURL        *string    `gorm:"column:image_url"`
	Unit            string     `gorm:"column:unit;not null"`
	Available       int        `gorm:"column:available;not null"`
	TotalStock      int        `gorm:"column:total_stock;not null"`
	Reserved        int        `gorm:"column:reserved;not null"`
	MinQuantity     int        `gorm:"column:min_quantity;not null"`
	LastRestockedAt *time.Time `gorm:"column:last_restocked_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *InventoryItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// IsLowStock reports whether available units are at or below the threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.Available <= i.MinQuantity
}
