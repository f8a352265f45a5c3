package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Repository exposes persistence helpers for inventory items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, params listItemsParams) ([]models.InventoryItem, *pagination.Cursor, error)
	ListLowStock(ctx context.Context) ([]models.InventoryItem, error)
	DecrementAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
	RenameCategory(ctx context.Context, from, to string) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listItemsParams struct {
	Category     string
	Search       string
	LowStockOnly bool
	Limit        int
	Cursor       *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate row-locks the item on Postgres for read-modify-write flows.
func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.InventoryItem
	if err := query.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the item together with its quota limitations.
func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := r.db.WithContext(ctx).Where("item_id = ?", id).Delete(&models.ItemLimitation{}).Error; err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.InventoryItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listItemsParams) ([]models.InventoryItem, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if search := strings.ToLower(strings.TrimSpace(params.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if params.LowStockOnly {
		query = query.Where("available <= min_quantity")
	}

	var items []models.InventoryItem
	if err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&items).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(items, params.Limit, func(m models.InventoryItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

func (r *repositoryImpl) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("available <= min_quantity").
		Order("available ASC, name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementAvailable subtracts qty only while enough stock remains. It
// reports false when the guard rejected the update.
func (r *repositoryImpl) DecrementAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ? AND available >= ?", id, qty).
		Updates(map[string]any{
			"available": gorm.Expr("available - ?", qty),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountByCategory(ctx context.Context, category string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("category = ?", category).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) RenameCategory(ctx context.Context, from, to string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("category = ?", from).
		Update("category", to)
	return result.RowsAffected, result.Error
}
