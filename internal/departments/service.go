package departments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

// DepartmentDTO is an organisational unit used on users and in reports.
type DepartmentDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput adds a department.
type CreateInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type Service interface {
	List(ctx context.Context) ([]DepartmentDTO, error)
	Create(ctx context.Context, input CreateInput) (*DepartmentDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	db *gorm.DB
}

// NewService returns the departments service. The table is a flat list, so
// the service queries it directly.
func NewService(conn *gorm.DB) (Service, error) {
	if conn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database required")
	}
	return &service{db: conn}, nil
}

func (s *service) List(ctx context.Context) ([]DepartmentDTO, error) {
	var rows []models.Department
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list departments")
	}
	out := make([]DepartmentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, DepartmentDTO{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*DepartmentDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	row := &models.Department{Name: name}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "department already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create department")
	}
	return &DepartmentDTO{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "department id required")
	}
	result := s.db.WithContext(ctx).Delete(&models.Department{}, "id = ?", id)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "delete department")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "department not found")
	}
	return nil
}
