package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Name         string         `json:"name"`
	Department   string         `json:"department"`
	Position     string         `json:"position"`
	Role         enums.UserRole `json:"role"`
	IsActive     bool           `json:"is_active"`
	HasPushToken bool           `json:"has_push_token"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateInput is the admin payload for a new account. A temporary password is
// generated when Password is empty.
type CreateInput struct {
	Email      string         `json:"email" validate:"required,email,max=254"`
	Password   string         `json:"password" validate:"omitempty,min=8,max=128"`
	FirstName  string         `json:"first_name" validate:"required,max=100"`
	LastName   string         `json:"last_name" validate:"required,max=100"`
	Department string         `json:"department" validate:"required,max=100"`
	Position   string         `json:"position" validate:"required,max=100"`
	Role       enums.UserRole `json:"role" validate:"omitempty,oneof=employee admin"`
}

// UpdateInput changes profile fields. Nil fields are left untouched.
type UpdateInput struct {
	FirstName  *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName   *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Department *string `json:"department" validate:"omitempty,min=1,max=100"`
	Position   *string `json:"position" validate:"omitempty,min=1,max=100"`
	IsActive   *bool   `json:"is_active"`
}

// SetRoleInput carries a role change.
type SetRoleInput struct {
	Role enums.UserRole `json:"role" validate:"required,oneof=employee admin"`
}

// ChangePasswordInput is the self-service password change payload.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// PushTokenInput registers the device token used for push delivery. An empty
// token clears it.
type PushTokenInput struct {
	Token string `json:"token" validate:"max=512"`
}

// CreatedUser is returned once after account creation.
type CreatedUser struct {
	User              *UserDTO `json:"user"`
	TemporaryPassword string   `json:"temporary_password,omitempty"`
}

// PasswordReset carries the temporary password issued by an admin reset.
type PasswordReset struct {
	TemporaryPassword string `json:"temporary_password"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Name:         u.DisplayName(),
		Department:   u.Department,
		Position:     u.Position,
		Role:         u.Role,
		IsActive:     u.IsActive,
		HasPushToken: u.PushToken != nil && *u.PushToken != "",
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
