package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	"github.com/angelmondragon/supplydesk-backend/pkg/pagination"
)

// Repository exposes persistence helpers for supply requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, rows []*models.SupplyRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID, lock bool) ([]models.SupplyRequest, error)
	List(ctx context.Context, params listRequestsParams) ([]models.SupplyRequest, *pagination.Cursor, error)
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from enums.RequestStatus, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a supply request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listRequestsParams struct {
	Status     enums.RequestStatus
	Department string
	EmployeeID *uuid.UUID
	ItemID     *uuid.UUID
	GroupID    *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
	Cursor     *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, rows []*models.SupplyRequest) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error) {
	var row models.SupplyRequest
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByGroup returns the siblings of a bulk submission in creation order.
// With lock set the rows are held FOR UPDATE on Postgres.
func (r *repositoryImpl) ListByGroup(ctx context.Context, groupID uuid.UUID, lock bool) ([]models.SupplyRequest, error) {
	query := r.db.WithContext(ctx)
	if lock && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var rows []models.SupplyRequest
	if err := query.Where("group_id = ?", groupID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listRequestsParams) ([]models.SupplyRequest, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.SupplyRequest{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Department != "" {
		query = query.Where("department = ?", params.Department)
	}
	if params.EmployeeID != nil {
		query = query.Where("employee_id = ?", *params.EmployeeID)
	}
	if params.ItemID != nil {
		query = query.Where("item_id = ?", *params.ItemID)
	}
	if params.GroupID != nil {
		query = query.Where("group_id = ?", *params.GroupID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("created_at < ?", params.To.UTC())
	}

	var rows []models.SupplyRequest
	if err := pagination.Keyset(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Page(rows, params.Limit, func(m models.SupplyRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return page, next, nil
}

// CompareAndSetStatus applies updates only while the row is still in from.
// It reports false when another writer moved the request first.
func (r *repositoryImpl) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from enums.RequestStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SupplyRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SupplyRequest{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
