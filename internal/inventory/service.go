package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Service manages the catalog and its stock counters.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ItemDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ItemDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	AdjustStock(ctx context.Context, id uuid.UUID, input AdjustInput) (*ItemDTO, error)
	LowStock(ctx context.Context) ([]ItemDTO, error)

	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.InventoryItem, error)
	DecrementAvailableTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListParams filters and paginates the catalog.
type ListParams struct {
	Category     string
	Search       string
	LowStockOnly bool
	Limit        int
	Cursor       string
}

// ListResult wraps returned items and the cursor for the next page.
type ListResult struct {
	Items  []ItemDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires inventory dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ItemDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := validateStock(input.Available, input.TotalStock); err != nil {
		return nil, err
	}
	if input.MinQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_quantity cannot be negative")
	}

	item := &models.InventoryItem{
		Name:        name,
		Category:    strings.TrimSpace(input.Category),
		Description: strings.TrimSpace(input.Description),
		ImageURL:    trimmedPtr(input.ImageURL),
		Unit:        strings.TrimSpace(input.Unit),
		Available:   input.Available,
		TotalStock:  input.TotalStock,
		MinQuantity: input.MinQuantity,
	}
	if input.Available > 0 {
		at := s.now()
		item.LastRestockedAt = &at
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	return FromModel(item), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ItemDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	var updated *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := loadItem(ctx, repo, id, true)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			updates["name"] = name
			item.Name = name
		}
		if input.Category != nil {
			item.Category = strings.TrimSpace(*input.Category)
			updates["category"] = item.Category
		}
		if input.Description != nil {
			item.Description = strings.TrimSpace(*input.Description)
			updates["description"] = item.Description
		}
		if input.ImageURL != nil {
			item.ImageURL = trimmedPtr(input.ImageURL)
			updates["image_url"] = item.ImageURL
		}
		if input.Unit != nil {
			item.Unit = strings.TrimSpace(*input.Unit)
			updates["unit"] = item.Unit
		}
		if input.TotalStock != nil {
			if err := validateStock(item.Available, *input.TotalStock); err != nil {
				return err
			}
			item.TotalStock = *input.TotalStock
			updates["total_stock"] = item.TotalStock
		}
		if input.MinQuantity != nil {
			if *input.MinQuantity < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "min_quantity cannot be negative")
			}
			item.MinQuantity = *input.MinQuantity
			updates["min_quantity"] = item.MinQuantity
		}
		if len(updates) == 0 {
			updated = item
			return nil
		}

		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
		}
		updated, err = loadItem(ctx, repo, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.repo.WithTx(tx).Delete(ctx, id)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "inventory item has supply requests")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
		}
		if !found {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ItemDTO, error) {
	item, err := s.GetTx(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return FromModel(item), nil
}

func (s *service) GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return loadItem(ctx, s.repo.WithTx(tx), id, false)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listItemsParams{
		Category:     strings.TrimSpace(params.Category),
		Search:       params.Search,
		LowStockOnly: params.LowStockOnly,
		Limit:        params.Limit,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: FromModels(rows), Cursor: cursor}, nil
}

// AdjustStock overwrites the stock counters after a recount or restock.
func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, input AdjustInput) (*ItemDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Available == nil && input.TotalStock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available or total_stock required")
	}

	var updated *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		before, err := loadItem(ctx, repo, id, true)
		if err != nil {
			return err
		}

		available, total := before.Available, before.TotalStock
		if input.Available != nil {
			available = *input.Available
		}
		if input.TotalStock != nil {
			total = *input.TotalStock
		}
		if err := validateStock(available, total); err != nil {
			return err
		}

		updates := map[string]any{
			"available":   available,
			"total_stock": total,
		}
		if available > before.Available {
			updates["last_restocked_at"] = s.now()
		}
		if err := repo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
		}

		updated, err = loadItem(ctx, repo, id, false)
		if err != nil {
			return err
		}
		return s.emitLowStockIfCrossed(ctx, tx, before.Available, updated)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":   id.String(),
			"available": updated.Available,
		})
		s.logg.Info(logCtx, "inventory stock adjusted")
	}
	return FromModel(updated), nil
}

func (s *service) LowStock(ctx context.Context) ([]ItemDTO, error) {
	rows, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return FromModels(rows), nil
}

// DecrementAvailableTx removes qty units inside the caller's transaction.
// Insufficient stock fails with STATE_CONFLICT and leaves the row untouched.
func (s *service) DecrementAvailableTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, qty int) (*models.InventoryItem, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.DecrementAvailable(ctx, id, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	if !ok {
		item, err := loadItem(ctx, repo, id, false)
		if err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{
			"item_id":   id,
			"available": item.Available,
			"requested": qty,
		})
	}

	item, err := loadItem(ctx, repo, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.emitLowStockIfCrossed(ctx, tx, item.Available+qty, item); err != nil {
		return nil, err
	}
	return item, nil
}

// emitLowStockIfCrossed queues an inventory_low_stock event when the item
// moved from above its threshold to at or below it.
func (s *service) emitLowStockIfCrossed(ctx context.Context, tx *gorm.DB, previousAvailable int, item *models.InventoryItem) error {
	if previousAvailable <= item.MinQuantity || !item.IsLowStock() {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventInventoryLowStock,
		AggregateType: enums.AggregateInventoryItem,
		AggregateID:   item.ID,
		Data: payloads.InventoryLowStockEvent{
			ItemID:      item.ID,
			ItemName:    item.Name,
			Available:   item.Available,
			MinQuantity: item.MinQuantity,
			DetectedAt:  s.now(),
		},
	})
}

func loadItem(ctx context.Context, repo Repository, id uuid.UUID, lock bool) (*models.InventoryItem, error) {
	var (
		item *models.InventoryItem
		err  error
	)
	if lock {
		item, err = repo.FindByIDForUpdate(ctx, id)
	} else {
		item, err = repo.FindByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func validateStock(available, total int) error {
	if available < 0 || total < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if available > total {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "available (%d) cannot exceed total_stock (%d)", available, total)
	}
	return nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
