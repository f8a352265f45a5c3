package newitems

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// NewItemRequestDTO is an employee suggestion for the catalog.
type NewItemRequestDTO struct {
	ID          uuid.UUID                  `json:"id"`
	UserID      uuid.UUID                  `json:"user_id"`
	UserName    string                     `json:"user_name"`
	Department  string                     `json:"department"`
	ItemName    string                     `json:"item_name"`
	Description string                     `json:"description"`
	Reason      string                     `json:"reason"`
	Quantity    int                        `json:"quantity"`
	Status      enums.NewItemRequestStatus `json:"status"`
	AdminNotes  *string                    `json:"admin_notes,omitempty"`
	DecidedBy   *uuid.UUID                 `json:"decided_by,omitempty"`
	DecidedAt   *time.Time                 `json:"decided_at,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

func FromModel(m *models.NewItemRequest) *NewItemRequestDTO {
	if m == nil {
		return nil
	}
	return &NewItemRequestDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		Department:  m.Department,
		ItemName:    m.ItemName,
		Description: m.Description,
		Reason:      m.Reason,
		Quantity:    m.Quantity,
		Status:      m.Status,
		AdminNotes:  m.AdminNotes,
		DecidedBy:   m.DecidedBy,
		DecidedAt:   m.DecidedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// SubmitInput suggests a new catalog item.
type SubmitInput struct {
	ItemName    string `json:"item_name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Reason      string `json:"reason" validate:"max=2000"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
}

// DecisionInput carries the admin's optional notes.
type DecisionInput struct {
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}
