package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// Repository exposes the persistence needed by quota checks and usage recording.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLimitation(ctx context.Context, itemID uuid.UUID, position string) (*models.ItemLimitation, error)
	MonthlyQuantity(ctx context.Context, userID, itemID uuid.UUID, period Period) (int, error)
	SumRequestedSince(ctx context.Context, userID, itemID uuid.UUID, since time.Time, statuses []enums.RequestStatus) (int, error)
	InsertRecord(ctx context.Context, record *models.UsageRecord) (bool, error)
	UpsertMonthly(ctx context.Context, usage *models.MonthlyUsage) error
	ListMonthly(ctx context.Context, userID uuid.UUID, period Period) ([]models.MonthlyUsage, error)
	ListLimitationsForPosition(ctx context.Context, position string) ([]models.ItemLimitation, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a usage repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindLimitation(ctx context.Context, itemID uuid.UUID, position string) (*models.ItemLimitation, error) {
	var limitation models.ItemLimitation
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND position = ?", itemID, position).
		First(&limitation).Error
	if err != nil {
		return nil, err
	}
	return &limitation, nil
}

func (r *repositoryImpl) MonthlyQuantity(ctx context.Context, userID, itemID uuid.UUID, period Period) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.MonthlyUsage{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("user_id = ? AND item_id = ? AND year = ? AND month = ?", userID, itemID, period.Year, period.Month).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repositoryImpl) SumRequestedSince(ctx context.Context, userID, itemID uuid.UUID, since time.Time, statuses []enums.RequestStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.SupplyRequest{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("employee_id = ? AND item_id = ? AND created_at >= ?", userID, itemID, since.UTC()).
		Where("status IN ?", statuses).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// InsertRecord stores the dedupe row. It reports false when the key was
// already recorded.
func (r *repositoryImpl) InsertRecord(ctx context.Context, record *models.UsageRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UpsertMonthly(ctx context.Context, usage *models.MonthlyUsage) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}, {Name: "year"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("monthly_usage.quantity + excluded.quantity"),
				"item_name":  gorm.Expr("excluded.item_name"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(usage).Error
}

func (r *repositoryImpl) ListMonthly(ctx context.Context, userID uuid.UUID, period Period) ([]models.MonthlyUsage, error) {
	var rows []models.MonthlyUsage
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, period.Year, period.Month).
		Order("item_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) ListLimitationsForPosition(ctx context.Context, position string) ([]models.ItemLimitation, error) {
	var rows []models.ItemLimitation
	err := r.db.WithContext(ctx).
		Where("position = ?", position).
		Order("item_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
