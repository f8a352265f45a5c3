package usage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// Service answers quota questions and records approved usage.
type Service interface {
	CheckLimit(ctx context.Context, input CheckInput) (Result, error)
	CheckLimitTx(ctx context.Context, tx *gorm.DB, input CheckInput) (Result, error)
	RecordUsage(ctx context.Context, usage Usage) (bool, error)
	RecordUsageTx(ctx context.Context, tx *gorm.DB, usage Usage) (bool, error)
	ListMonthly(ctx context.Context, input MonthlyInput) (*MonthlyResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type quotaObserver interface {
	ObserveQuotaCheck(allowed bool)
}

// CheckInput identifies who wants how many units of which item.
type CheckInput struct {
	UserID   uuid.UUID
	ItemID   uuid.UUID
	Position string
	Quantity int
}

// Usage is one approved quantity to add to the monthly totals.
type Usage struct {
	Key       string
	RequestID uuid.UUID
	UserID    uuid.UUID
	ItemID    uuid.UUID
	ItemName  string
	Quantity  int
	At        time.Time
}

// MonthlyInput selects a user's month. A zero period means the current month.
type MonthlyInput struct {
	UserID   uuid.UUID
	Position string
	Period   Period
}

// MonthlyItem is one line of the "my usage" view.
type MonthlyItem struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Quantity  int       `json:"quantity"`
	Limit     *int      `json:"limit,omitempty"`
	Remaining *int      `json:"remaining,omitempty"`
}

// MonthlyResult groups the month's usage lines.
type MonthlyResult struct {
	Period Period        `json:"period"`
	Items  []MonthlyItem `json:"items"`
}

// ServiceParams bundles the usage service dependencies.
type ServiceParams struct {
	Repo         Repository
	TxRunner     txRunner
	CountingMode enums.UsageCountingMode
	Location     *time.Location
	Metrics      quotaObserver
	Logger       *logger.Logger
	Clock        func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	mode    enums.UsageCountingMode
	loc     *time.Location
	metrics quotaObserver
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the usage service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "usage repository required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	mode := params.CountingMode
	if mode == "" {
		mode = enums.UsageCountingInflight
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TxRunner,
		mode:    mode,
		loc:     loc,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     clock,
	}, nil
}

func (s *service) CheckLimit(ctx context.Context, input CheckInput) (Result, error) {
	return s.CheckLimitTx(ctx, nil, input)
}

// CheckLimitTx evaluates the quota using tx when provided, so callers that
// insert requests can check and write in one transaction.
func (s *service) CheckLimitTx(ctx context.Context, tx *gorm.DB, input CheckInput) (Result, error) {
	if input.UserID == uuid.Nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ItemID == uuid.Nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Quantity < 1 {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	repo := s.repo.WithTx(tx)
	position := strings.TrimSpace(input.Position)
	if position == "" {
		return Evaluate(Inputs{Requested: input.Quantity}), nil
	}

	limitation, err := repo.FindLimitation(ctx, input.ItemID, position)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Evaluate(Inputs{Requested: input.Quantity}), nil
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item limitation")
	}

	period := PeriodOf(s.now(), s.loc)
	base, err := repo.MonthlyQuantity(ctx, input.UserID, input.ItemID, period)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load monthly usage")
	}
	pending, err := repo.SumRequestedSince(ctx, input.UserID, input.ItemID, period.Start(s.loc), s.mode.CountedStatuses())
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum in-flight requests")
	}

	result := Evaluate(Inputs{
		Limited:      true,
		MonthlyLimit: limitation.MonthlyLimit,
		BaseUsage:    base,
		PendingUsage: pending,
		Requested:    input.Quantity,
	})
	if s.metrics != nil {
		s.metrics.ObserveQuotaCheck(result.Allowed)
	}
	return result, nil
}

func (s *service) RecordUsage(ctx context.Context, usage Usage) (bool, error) {
	var recorded bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		recorded, err = s.RecordUsageTx(ctx, tx, usage)
		return err
	})
	return recorded, err
}

// RecordUsageTx adds the quantity to the monthly total once per key. It
// reports false when the key had already been recorded.
func (s *service) RecordUsageTx(ctx context.Context, tx *gorm.DB, usage Usage) (bool, error) {
	if strings.TrimSpace(usage.Key) == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "usage idempotency key required")
	}
	if usage.UserID == uuid.Nil || usage.ItemID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user and item required")
	}
	if usage.Quantity < 1 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	at := usage.At
	if at.IsZero() {
		at = s.now()
	}
	period := PeriodOf(at, s.loc)
	repo := s.repo.WithTx(tx)

	inserted, err := repo.InsertRecord(ctx, &models.UsageRecord{
		IdempotencyKey: usage.Key,
		RequestID:      usage.RequestID,
		UserID:         usage.UserID,
		ItemID:         usage.ItemID,
		Year:           period.Year,
		Month:          period.Month,
		Quantity:       usage.Quantity,
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert usage record")
	}
	if !inserted {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "usage_key", usage.Key), "usage already recorded")
		}
		return false, nil
	}

	if err := repo.UpsertMonthly(ctx, &models.MonthlyUsage{
		UserID:   usage.UserID,
		ItemID:   usage.ItemID,
		ItemName: usage.ItemName,
		Year:     period.Year,
		Month:    period.Month,
		Quantity: usage.Quantity,
	}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert monthly usage")
	}
	return true, nil
}

func (s *service) ListMonthly(ctx context.Context, input MonthlyInput) (*MonthlyResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	period := input.Period
	if period == (Period{}) {
		period = PeriodOf(s.now(), s.loc)
	}
	if !period.Valid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid period %d-%02d", period.Year, period.Month)
	}

	rows, err := s.repo.ListMonthly(ctx, input.UserID, period)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list monthly usage")
	}

	var limitations []models.ItemLimitation
	if position := strings.TrimSpace(input.Position); position != "" {
		limitations, err = s.repo.ListLimitationsForPosition(ctx, position)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list limitations")
		}
	}

	return &MonthlyResult{Period: period, Items: mergeMonthly(rows, limitations)}, nil
}

// mergeMonthly joins usage rows with limitations. Limited items without usage
// appear with zero quantity.
func mergeMonthly(rows []models.MonthlyUsage, limitations []models.ItemLimitation) []MonthlyItem {
	byItem := make(map[uuid.UUID]models.ItemLimitation, len(limitations))
	for _, limitation := range limitations {
		byItem[limitation.ItemID] = limitation
	}

	items := make([]MonthlyItem, 0, len(rows)+len(limitations))
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		item := MonthlyItem{ItemID: row.ItemID, ItemName: row.ItemName, Quantity: row.Quantity}
		if limitation, ok := byItem[row.ItemID]; ok {
			applyLimit(&item, limitation.MonthlyLimit)
		}
		seen[row.ItemID] = struct{}{}
		items = append(items, item)
	}
	for _, limitation := range limitations {
		if _, ok := seen[limitation.ItemID]; ok {
			continue
		}
		item := MonthlyItem{ItemID: limitation.ItemID, ItemName: limitation.ItemName}
		applyLimit(&item, limitation.MonthlyLimit)
		items = append(items, item)
	}
	return items
}

func applyLimit(item *MonthlyItem, limit int) {
	remaining := limit - item.Quantity
	if remaining < 0 {
		remaining = 0
	}
	item.Limit = &limit
	item.Remaining = &remaining
}
