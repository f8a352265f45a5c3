package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// RequestDTO exposes a supply request in API responses.
type RequestDTO struct {
	ID           uuid.UUID             `json:"id"`
	EmployeeID   uuid.UUID             `json:"employee_id"`
	EmployeeName string                `json:"employee_name"`
	Department   string                `json:"department"`
	ItemID       uuid.UUID             `json:"item_id"`
	ItemName     string                `json:"item_name"`
	Quantity     int                   `json:"quantity"`
	Notes        string                `json:"notes"`
	Priority     enums.RequestPriority `json:"priority"`
	Status       enums.RequestStatus   `json:"status"`
	GroupID      *uuid.UUID            `json:"group_id,omitempty"`
	AdminNotes   *string               `json:"admin_notes,omitempty"`
	ApprovedAt   *time.Time            `json:"approved_at,omitempty"`
	ApprovedBy   *uuid.UUID            `json:"approved_by,omitempty"`
	RejectedAt   *time.Time            `json:"rejected_at,omitempty"`
	RejectedBy   *uuid.UUID            `json:"rejected_by,omitempty"`
	FulfilledAt  *time.Time            `json:"fulfilled_at,omitempty"`
	FulfilledBy  *uuid.UUID            `json:"fulfilled_by,omitempty"`
	CancelledAt  *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// FromModel maps a persisted request into its DTO.
func FromModel(m *models.SupplyRequest) *RequestDTO {
	if m == nil {
		return nil
	}
	return &RequestDTO{
		ID:           m.ID,
		EmployeeID:   m.EmployeeID,
		EmployeeName: m.EmployeeName,
		Department:   m.Department,
		ItemID:       m.ItemID,
		ItemName:     m.ItemName,
		Quantity:     m.Quantity,
		Notes:        m.Notes,
		Priority:     m.Priority,
		Status:       m.Status,
		GroupID:      m.GroupID,
		AdminNotes:   m.AdminNotes,
		ApprovedAt:   m.ApprovedAt,
		ApprovedBy:   m.ApprovedBy,
		RejectedAt:   m.RejectedAt,
		RejectedBy:   m.RejectedBy,
		FulfilledAt:  m.FulfilledAt,
		FulfilledBy:  m.FulfilledBy,
		CancelledAt:  m.CancelledAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromModels maps a slice of requests.
func FromModels(rows []models.SupplyRequest) []RequestDTO {
	out := make([]RequestDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// SubmitInput creates a single request.
type SubmitInput struct {
	ItemID   uuid.UUID             `json:"item_id" validate:"required"`
	Quantity int                   `json:"quantity" validate:"required,min=1"`
	Notes    string                `json:"notes" validate:"max=1000"`
	Priority enums.RequestPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// BulkLine is one cart line of a bulk submission.
type BulkLine struct {
	ItemID   uuid.UUID `json:"item_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
	Notes    string    `json:"notes" validate:"max=1000"`
}

// SubmitBulkInput checks out a cart as one request group.
type SubmitBulkInput struct {
	Items    []BulkLine            `json:"items" validate:"required,min=1,max=50,dive"`
	Notes    string                `json:"notes" validate:"max=1000"`
	Priority enums.RequestPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// RejectInput carries the optional reason shown to the requester.
type RejectInput struct {
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

// BulkResult is returned by SubmitBulk.
type BulkResult struct {
	GroupID  uuid.UUID    `json:"group_id"`
	Requests []RequestDTO `json:"requests"`
}

// GroupResult reports a group transition: how many siblings moved and the
// group's state afterwards.
type GroupResult struct {
	GroupID      uuid.UUID    `json:"group_id"`
	Transitioned int          `json:"transitioned"`
	Requests     []RequestDTO `json:"requests"`
}
