package newitems

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/internal/notifications"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Service handles catalog suggestions from employees.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*NewItemRequestDTO, error)
	List(ctx context.Context, viewer Viewer, params ListParams) (*ListResult, error)
	Approve(ctx context.Context, adminID, id uuid.UUID, input DecisionInput) (*NewItemRequestDTO, error)
	Reject(ctx context.Context, adminID, id uuid.UUID, input DecisionInput) (*NewItemRequestDTO, error)
	PendingCount(ctx context.Context) (int64, error)
}

// Viewer scopes List: employees only see their own suggestions.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ListParams filters and paginates suggestions.
type ListParams struct {
	Status enums.NewItemRequestStatus
	Limit  int
	Cursor string
}

// ListResult wraps suggestions and the cursor for the next page.
type ListResult struct {
	Items  []NewItemRequestDTO `json:"items"`
	Cursor string              `json:"cursor"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userDirectory interface {
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error)
}

type notifier interface {
	NotifyTx(ctx context.Context, tx *gorm.DB, draft notifications.Draft) (*notifications.NotificationDTO, error)
	NotifyAdminsTx(ctx context.Context, tx *gorm.DB, draft notifications.Draft) (int, error)
}

// ServiceParams bundles the new item request dependencies.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Directory     userDirectory
	Notifications notifier
	Logger        *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	directory userDirectory
	notify    notifier
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "new item repository required")
	case params.TxRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Directory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	case params.Notifications == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification service required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		directory: params.Directory,
		notify:    params.Notifications,
		logg:      params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*NewItemRequestDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	itemName := strings.TrimSpace(input.ItemName)
	if itemName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item_name is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var row *models.NewItemRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := s.directory.FindByIDTx(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		row = &models.NewItemRequest{
			UserID:      user.ID,
			UserName:    user.DisplayName(),
			Department:  user.Department,
			ItemName:    itemName,
			Description: strings.TrimSpace(input.Description),
			Reason:      strings.TrimSpace(input.Reason),
			Quantity:    input.Quantity,
			Status:      enums.NewItemRequestPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create new item request")
		}

		requestID := row.ID
		_, err = s.notify.NotifyAdminsTx(ctx, tx, notifications.Draft{
			Type:             enums.NotificationNewItemRequest,
			NewItemRequestID: &requestID,
			Params: map[string]string{
				notifications.ParamItem:      row.ItemName,
				notifications.ParamRequester: row.UserName,
				notifications.ParamQuantity:  strconv.Itoa(row.Quantity),
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"new_item_request_id": row.ID.String(),
			"user_id":             userID.String(),
		}), "new item suggested")
	}
	return FromModel(row), nil
}

func (s *service) List(ctx context.Context, viewer Viewer, params ListParams) (*ListResult, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	query := listParams{Status: params.Status, Limit: params.Limit}
	if !viewer.Role.IsAdmin() {
		self := viewer.UserID
		query.UserID = &self
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list new item requests")
	}
	items := make([]NewItemRequestDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

func (s *service) Approve(ctx context.Context, adminID, id uuid.UUID, input DecisionInput) (*NewItemRequestDTO, error) {
	return s.decide(ctx, adminID, id, enums.NewItemRequestApproved, input.Notes)
}

func (s *service) Reject(ctx context.Context, adminID, id uuid.UUID, input DecisionInput) (*NewItemRequestDTO, error) {
	return s.decide(ctx, adminID, id, enums.NewItemRequestRejected, input.Notes)
}

var decisionNotifications = map[enums.NewItemRequestStatus]enums.NotificationType{
	enums.NewItemRequestApproved: enums.NotificationNewItemApproved,
	enums.NewItemRequestRejected: enums.NotificationNewItemRejected,
}

func (s *service) decide(ctx context.Context, adminID, id uuid.UUID, status enums.NewItemRequestStatus, notes *string) (*NewItemRequestDTO, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new item request id required")
	}

	var row *models.NewItemRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := loadRequest(ctx, repo, id)
		if err != nil {
			return err
		}
		if current.Status != enums.NewItemRequestPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "new item request already decided").WithDetails(map[string]any{
				"status": current.Status,
			})
		}

		now := s.now()
		updates := map[string]any{
			"status":     status,
			"decided_by": adminID,
			"decided_at": now,
		}
		var trimmed *string
		if notes != nil {
			if value := strings.TrimSpace(*notes); value != "" {
				trimmed = &value
				updates["admin_notes"] = value
			}
		}
		ok, err := repo.Decide(ctx, id, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide new item request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "new item request already decided")
		}

		current.Status, current.DecidedBy, current.DecidedAt = status, &adminID, &now
		if trimmed != nil {
			current.AdminNotes = trimmed
		}
		row = current

		params := map[string]string{notifications.ParamItem: row.ItemName}
		if trimmed != nil {
			params[notifications.ParamReason] = *trimmed
		}
		requestID := row.ID
		_, err = s.notify.NotifyTx(ctx, tx, notifications.Draft{
			UserID:           row.UserID,
			Type:             decisionNotifications[status],
			NewItemRequestID: &requestID,
			Params:           params,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"new_item_request_id": id.String(),
			"status":              string(status),
			"actor_id":            adminID.String(),
		}), "new item request decided")
	}
	return FromModel(row), nil
}

func (s *service) PendingCount(ctx context.Context) (int64, error) {
	count, err := s.repo.CountByStatus(ctx, enums.NewItemRequestPending)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending new item requests")
	}
	return count, nil
}

func loadRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.NewItemRequest, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "new item request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load new item request")
	}
	return row, nil
}
