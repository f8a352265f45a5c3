package limitations

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
)

// LimitationDTO is a monthly quota for one item and position.
type LimitationDTO struct {
	ID           uuid.UUID `json:"id"`
	ItemID       uuid.UUID `json:"item_id"`
	ItemName     string    `json:"item_name"`
	Position     string    `json:"position"`
	MonthlyLimit int       `json:"monthly_limit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromModel(m *models.ItemLimitation) *LimitationDTO {
	if m == nil {
		return nil
	}
	return &LimitationDTO{
		ID:           m.ID,
		ItemID:       m.ItemID,
		ItemName:     m.ItemName,
		Position:     m.Position,
		MonthlyLimit: m.MonthlyLimit,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// CreateInput configures a new quota.
type CreateInput struct {
	ItemID       uuid.UUID `json:"item_id" validate:"required"`
	Position     string    `json:"position" validate:"required,max=100"`
	MonthlyLimit int       `json:"monthly_limit" validate:"required,min=1"`
}

// UpdateInput changes a quota. Nil fields are left untouched.
type UpdateInput struct {
	Position     *string `json:"position" validate:"omitempty,min=1,max=100"`
	MonthlyLimit *int    `json:"monthly_limit" validate:"omitempty,min=1"`
}
