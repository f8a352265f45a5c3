package requests

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/internal/notifications"
	"github.com/angelmondragon/supplydesk-backend/internal/usage"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Service runs the supply request lifecycle.
type Service interface {
	Submit(ctx context.Context, actor Actor, input SubmitInput) (*RequestDTO, error)
	SubmitBulk(ctx context.Context, actor Actor, input SubmitBulkInput) (*BulkResult, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	ListGroup(ctx context.Context, actor Actor, groupID uuid.UUID) ([]RequestDTO, error)

	Approve(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	Reject(ctx context.Context, actor Actor, id uuid.UUID, reason *string) (*RequestDTO, error)
	Fulfill(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error

	ApproveGroup(ctx context.Context, actor Actor, groupID uuid.UUID) (*GroupResult, error)
	RejectGroup(ctx context.Context, actor Actor, groupID uuid.UUID, reason *string) (*GroupResult, error)
	FulfillGroup(ctx context.Context, actor Actor, groupID uuid.UUID) (*GroupResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type inventoryGateway interface {
	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.InventoryItem, error)
	DecrementAvailableTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryItem, error)
}

type usageGateway interface {
	CheckLimitTx(ctx context.Context, tx *gorm.DB, input usage.CheckInput) (usage.Result, error)
	RecordUsageTx(ctx context.Context, tx *gorm.DB, record usage.Usage) (bool, error)
}

type notifier interface {
	NotifyTx(ctx context.Context, tx *gorm.DB, draft notifications.Draft) (*notifications.NotificationDTO, error)
}

type employeeDirectory interface {
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.User, error)
}

type transitionObserver interface {
	ObserveTransition(transition, outcome string)
}

// ListParams filters the request list. EmployeeID is forced to the caller
// for non-admins.
type ListParams struct {
	Status     enums.RequestStatus
	Department string
	EmployeeID *uuid.UUID
	ItemID     *uuid.UUID
	GroupID    *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Cursor     string
}

// ListResult wraps returned requests and the cursor for the next page.
type ListResult struct {
	Items  []RequestDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

// ServiceParams bundles the request service dependencies.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Inventory     inventoryGateway
	Usage         usageGateway
	Notifications notifier
	Directory     employeeDirectory
	Outbox        outbox.Emitter
	Metrics       transitionObserver
	Logger        *logger.Logger
	Clock         func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventoryGateway
	usage     usageGateway
	notify    notifier
	directory employeeDirectory
	outbox    outbox.Emitter
	metrics   transitionObserver
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the request lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests repository required")
	case params.TxRunner == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Inventory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory service required")
	case params.Usage == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "usage service required")
	case params.Notifications == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification service required")
	case params.Directory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "employee directory required")
	case params.Outbox == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		inventory: params.Inventory,
		usage:     params.Usage,
		notify:    params.Notifications,
		directory: params.Directory,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	row, err := loadRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && row.EmployeeID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	return FromModel(row), nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}

	query := listRequestsParams{
		Status:     params.Status,
		Department: strings.TrimSpace(params.Department),
		EmployeeID: params.EmployeeID,
		ItemID:     params.ItemID,
		GroupID:    params.GroupID,
		From:       params.From,
		To:         params.To,
		Limit:      params.Limit,
	}
	if !actor.IsAdmin() {
		self := actor.UserID
		query.EmployeeID = &self
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: FromModels(rows), Cursor: cursor}, nil
}

func (s *service) ListGroup(ctx context.Context, actor Actor, groupID uuid.UUID) ([]RequestDTO, error) {
	if groupID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	rows, err := s.repo.ListByGroup(ctx, groupID, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list request group")
	}
	if len(rows) == 0 || (!actor.IsAdmin() && rows[0].EmployeeID != actor.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request group not found")
	}
	return FromModels(rows), nil
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"request_id": id.String(),
		"actor_id":   actor.UserID.String(),
	}), "supply request deleted")
	return nil
}

func loadRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.SupplyRequest, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return row, nil
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func requestParams(row *models.SupplyRequest) map[string]string {
	return map[string]string{
		notifications.ParamItem:     row.ItemName,
		notifications.ParamQuantity: strconv.Itoa(row.Quantity),
	}
}

func trimmedReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *service) observe(transition string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTransition(transition, outcomeOf(err))
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "error"
}
