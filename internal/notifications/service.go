package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Service defines notification list/read operations and the write path used
// by other domain services.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	NotifyTx(ctx context.Context, tx *gorm.DB, draft Draft) (*NotificationDTO, error)
	NotifyAdminsTx(ctx context.Context, tx *gorm.DB, draft Draft) (int, error)
	NotifyAdmins(ctx context.Context, draft Draft) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdminDirectory lists the users that receive administrative notifications.
type AdminDirectory interface {
	ListActiveAdminIDs(ctx context.Context, tx *gorm.DB) ([]uuid.UUID, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	admins AdminDirectory
	now    func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []NotificationDTO `json:"items"`
	Cursor string            `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, admins AdminDirectory) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if admins == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin directory required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, admins: admins, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	query := listQuery{
		UserID:     params.UserID,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.After = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return &ListResult{
		Items:  items,
		Cursor: cursor,
	}, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	found, err := s.repo.MarkRead(ctx, userID, notificationID, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

// NotifyTx stores the notification and queues its push intent in the same
// transaction.
func (s *service) NotifyTx(ctx context.Context, tx *gorm.DB, draft Draft) (*NotificationDTO, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	notification, err := Compose(draft)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "compose notification")
	}
	if err := s.repo.WithTx(tx).Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationCreated,
		AggregateType: enums.AggregateNotification,
		AggregateID:   notification.ID,
		Data: payloads.NotificationCreatedEvent{
			NotificationID: notification.ID,
			UserID:         notification.UserID,
			Type:           notification.Type,
			Title:          notification.Title,
			Message:        notification.Message,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification push")
	}
	return FromModel(notification), nil
}

// NotifyAdminsTx sends a copy of the draft to every active admin. The draft's
// UserID is ignored.
func (s *service) NotifyAdminsTx(ctx context.Context, tx *gorm.DB, draft Draft) (int, error) {
	adminIDs, err := s.admins.ListActiveAdminIDs(ctx, tx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	for _, adminID := range adminIDs {
		addressed := draft
		addressed.UserID = adminID
		if _, err := s.NotifyTx(ctx, tx, addressed); err != nil {
			return 0, err
		}
	}
	return len(adminIDs), nil
}

func (s *service) NotifyAdmins(ctx context.Context, draft Draft) (int, error) {
	var sent int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		sent, err = s.NotifyAdminsTx(ctx, tx, draft)
		return err
	})
	return sent, err
}
