package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/config"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
	"github.com/angelmondragon/supplydesk-backend/pkg/security"
)

const tempPasswordLength = 12

// Service covers admin account management and self-service profile calls.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreatedUser, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*UserDTO, error)
	SetRole(ctx context.Context, actorID, id uuid.UUID, role enums.UserRole) (*UserDTO, error)
	ResetPassword(ctx context.Context, id uuid.UUID) (*PasswordReset, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)

	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
	RegisterPushToken(ctx context.Context, userID uuid.UUID, token string) error
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, params listUsersParams) ([]models.User, *pagination.Cursor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type sessionRevoker interface {
	RevokeUser(ctx context.Context, userID uuid.UUID) error
}

// ListParams filters the user directory.
type ListParams struct {
	Role       enums.UserRole
	Department string
	Search     string
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult wraps returned users and the cursor for the next page.
type ListResult struct {
	Items  []UserDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo           userRepository
	Sessions       sessionRevoker
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	repo     userRepository
	sessions sessionRevoker
	password config.PasswordConfig
	logg     *logger.Logger
}

// NewService constructs the users service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session manager required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     params.Repo,
		sessions: params.Sessions,
		password: params.PasswordConfig,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreatedUser, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	role := input.Role
	if role == "" {
		role = enums.UserRoleEmployee
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	user := &models.User{
		Email:      email,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Department: strings.TrimSpace(input.Department),
		Position:   strings.TrimSpace(input.Position),
		Role:       role,
		IsActive:   true,
	}
	if user.FirstName == "" || user.LastName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	password := input.Password
	temporary := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
		}
		password = generated
		temporary = generated
	}
	hash, err := security.HashPassword(password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user.PasswordHash = hash

	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "role": string(role)}), "user created")
	return &CreatedUser{User: FromModel(user), TemporaryPassword: temporary}, nil
}

func (s *service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	updates := map[string]any{}
	setTrimmed := func(column string, value *string) error {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, column+" cannot be empty")
		}
		updates[column] = trimmed
		return nil
	}
	for column, value := range map[string]*string{
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"department": input.Department,
		"position":   input.Position,
	} {
		if err := setTrimmed(column, value); err != nil {
			return nil, err
		}
	}
	deactivating := input.IsActive != nil && !*input.IsActive
	if input.IsActive != nil {
		if deactivating && actorID == id {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot deactivate your own account")
		}
		updates["is_active"] = *input.IsActive
	}

	if len(updates) > 0 {
		found, err := s.repo.Update(ctx, id, updates)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
	}
	if deactivating {
		if err := s.sessions.RevokeUser(ctx, id); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
	}
	return s.Get(ctx, id)
}

func (s *service) SetRole(ctx context.Context, actorID, id uuid.UUID, role enums.UserRole) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if actorID == id && !role.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot remove your own admin role")
	}
	found, err := s.repo.Update(ctx, id, map[string]any{"role": role})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	// Existing tokens still carry the previous role.
	if err := s.sessions.RevokeUser(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"user_id": id.String(), "role": string(role)}), "user role changed")
	return s.Get(ctx, id)
}

func (s *service) ResetPassword(ctx context.Context, id uuid.UUID) (*PasswordReset, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	temporary, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temporary password")
	}
	hash, err := security.HashPassword(temporary, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	found, err := s.repo.Update(ctx, id, map[string]any{"password_hash": hash})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset password")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err := s.sessions.RevokeUser(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", id.String()), "password reset")
	return &PasswordReset{TemporaryPassword: temporary}, nil
}

func (s *service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cannot delete your own account")
	}
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "user has request history; deactivate instead")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err := s.sessions.RevokeUser(ctx, id); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "user_id", id.String()), "revoke sessions after delete", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Role != "" && !params.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
	}
	query := listUsersParams{
		Role:       params.Role,
		Department: strings.TrimSpace(params.Department),
		Search:     params.Search,
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	return s.Get(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	valid, err := security.VerifyPassword(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect")
	}
	if input.NewPassword == input.CurrentPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must differ from the current one")
	}
	hash, err := security.HashPassword(input.NewPassword, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if _, err := s.repo.Update(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	return nil
}

func (s *service) RegisterPushToken(ctx context.Context, userID uuid.UUID, token string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	var value any
	if trimmed := strings.TrimSpace(token); trimmed != "" {
		value = trimmed
	}
	found, err := s.repo.Update(ctx, userID, map[string]any{"push_token": value})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register push token")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
