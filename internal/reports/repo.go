package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// Repository runs the aggregate queries behind reports and dashboards.
type Repository interface {
	StatusCounts(ctx context.Context, filter Filter, employeeID *uuid.UUID) (map[enums.RequestStatus]int64, error)
	DepartmentCounts(ctx context.Context, filter Filter) ([]LabelValue, error)
	TopItems(ctx context.Context, filter Filter, limit int) ([]ItemTotal, error)
	CreatedTimes(ctx context.Context, filter Filter) ([]time.Time, error)
	CountRequestsSince(ctx context.Context, since time.Time) (int64, error)
	CountInventory(ctx context.Context) (total int64, lowStock int64, err error)
	CountPendingNewItems(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) requests(ctx context.Context, filter Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.SupplyRequest{})
	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", filter.To.UTC())
	}
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	return query
}

func (r *repositoryImpl) StatusCounts(ctx context.Context, filter Filter, employeeID *uuid.UUID) (map[enums.RequestStatus]int64, error) {
	query := r.requests(ctx, filter)
	if employeeID != nil {
		query = query.Where("employee_id = ?", *employeeID)
	}
	var rows []struct {
		Status enums.RequestStatus
		Count  int64
	}
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.RequestStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repositoryImpl) DepartmentCounts(ctx context.Context, filter Filter) ([]LabelValue, error) {
	var rows []LabelValue
	err := r.requests(ctx, filter).
		Select("department AS label, COUNT(*) AS value").
		Group("department").
		Order("value DESC, label ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) TopItems(ctx context.Context, filter Filter, limit int) ([]ItemTotal, error) {
	var rows []ItemTotal
	err := r.requests(ctx, filter).
		Select("item_id, item_name, SUM(quantity) AS quantity, COUNT(*) AS requests").
		Group("item_id, item_name").
		Order("quantity DESC, item_name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CreatedTimes(ctx context.Context, filter Filter) ([]time.Time, error) {
	var times []time.Time
	err := r.requests(ctx, filter).Order("created_at ASC").Pluck("created_at", &times).Error
	return times, err
}

func (r *repositoryImpl) CountRequestsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SupplyRequest{}).
		Where("created_at >= ?", since.UTC()).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountInventory(ctx context.Context) (int64, int64, error) {
	var total, low int64
	if err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("available <= min_quantity").Count(&low).Error; err != nil {
		return 0, 0, err
	}
	return total, low, nil
}

func (r *repositoryImpl) CountPendingNewItems(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NewItemRequest{}).
		Where("status = ?", enums.NewItemRequestPending).
		Count(&count).Error
	return count, err
}
