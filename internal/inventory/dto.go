package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
)

// ItemDTO exposes an inventory item in API responses.
type ItemDTO struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Description     string     `json:"description"`
	ImageURL        *string    `json:"image_url,omitempty"`
	Unit            string     `json:"unit"`
	Available       int        `json:"available"`
	TotalStock      int        `json:"total_stock"`
	Reserved        int        `json:"reserved"`
	MinQuantity     int        `json:"min_quantity"`
	LowStock        bool       `json:"low_stock"`
	LastRestockedAt *time.Time `json:"last_restocked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// FromModel maps the persisted item into a DTO.
func FromModel(m *models.InventoryItem) *ItemDTO {
	if m == nil {
		return nil
	}
	return &ItemDTO{
		ID:              m.ID,
		Name:            m.Name,
		Category:        m.Category,
		Description:     m.Description,
		ImageURL:        m.ImageURL,
		Unit:            m.Unit,
		Available:       m.Available,
		TotalStock:      m.TotalStock,
		Reserved:        m.Reserved,
		MinQuantity:     m.MinQuantity,
		LowStock:        m.IsLowStock(),
		LastRestockedAt: m.LastRestockedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromModels maps a slice of items.
func FromModels(rows []models.InventoryItem) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// CreateInput carries a new catalog entry.
type CreateInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Category    string  `json:"category" validate:"omitempty,max=100"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	Unit        string  `json:"unit" validate:"omitempty,max=50"`
	Available   int     `json:"available" validate:"gte=0"`
	TotalStock  int     `json:"total_stock" validate:"gte=0"`
	MinQuantity int     `json:"min_quantity" validate:"gte=0"`
}

// UpdateInput changes catalog fields. Nil fields are left untouched.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
	Unit        *string `json:"unit" validate:"omitempty,max=50"`
	TotalStock  *int    `json:"total_stock" validate:"omitempty,gte=0"`
	MinQuantity *int    `json:"min_quantity" validate:"omitempty,gte=0"`
}

// AdjustInput sets stock counters directly.
type AdjustInput struct {
	Available  *int `json:"available" validate:"omitempty,gte=0"`
	TotalStock *int `json:"total_stock" validate:"omitempty,gte=0"`
}
