package newitems

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Repository persists new item requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, row *models.NewItemRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.NewItemRequest, error)
	List(ctx context.Context, params listParams) ([]models.NewItemRequest, *pagination.Cursor, error)
	Decide(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	CountByStatus(ctx context.Context, status enums.NewItemRequestStatus) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	UserID *uuid.UUID
	Status enums.NewItemRequestStatus
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, row *models.NewItemRequest) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.NewItemRequest, error) {
	var row models.NewItemRequest
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.NewItemRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.NewItemRequest{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var rows []models.NewItemRequest
	if err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(m models.NewItemRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

// Decide applies updates only while the suggestion is still pending.
func (r *repositoryImpl) Decide(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.NewItemRequest{}).
		Where("id = ? AND status = ?", id, enums.NewItemRequestPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, status enums.NewItemRequestStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NewItemRequest{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
