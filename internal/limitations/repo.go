package limitations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
)

// Repository exposes persistence helpers for item limitations.
type Repository interface {
	Create(ctx context.Context, limitation *models.ItemLimitation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ItemLimitation, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, params listParams) ([]models.ItemLimitation, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a limitations repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	ItemID   *uuid.UUID
	Position string
}

func (r *repositoryImpl) Create(ctx context.Context, limitation *models.ItemLimitation) error {
	return r.db.WithContext(ctx).Create(limitation).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemLimitation, error) {
	var limitation models.ItemLimitation
	if err := r.db.WithContext(ctx).First(&limitation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &limitation, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ItemLimitation{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.ItemLimitation{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.ItemLimitation, error) {
	query := r.db.WithContext(ctx).Model(&models.ItemLimitation{})
	if params.ItemID != nil {
		query = query.Where("item_id = ?", *params.ItemID)
	}
	if params.Position != "" {
		query = query.Where("LOWER(position) = LOWER(?)", params.Position)
	}

	var rows []models.ItemLimitation
	if err := query.Order("item_name ASC, position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
