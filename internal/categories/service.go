package categories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/internal/inventory"
	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// CategoryDTO is a catalog category.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateInput adds a category.
type CreateInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateInput renames or re-describes a category.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// Service manages inventory categories. Items reference categories by name,
// so renames are carried to the items in the same transaction.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Create(ctx context.Context, input CreateInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo  Repository
	items inventory.Repository
	tx    txRunner
	logg  *logger.Logger
}

func NewService(repo Repository, items inventory.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "categories repository required")
	}
	if items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, items: items, tx: tx, logg: logg}, nil
}

func fromModel(m *models.Category) *CategoryDTO {
	return &CategoryDTO{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := &models.Category{Name: name, Description: strings.TrimSpace(input.Description)}
	if err := s.repo.Create(ctx, category); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return fromModel(category), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CategoryDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}

	var (
		updated *models.Category
		moved   int64
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := loadCategory(ctx, repo, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if input.Description != nil {
			updates["description"] = strings.TrimSpace(*input.Description)
		}
		rename := ""
		if input.Name != nil {
			rename = strings.TrimSpace(*input.Name)
			if rename == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			if rename != current.Name {
				updates["name"] = rename
			}
		}
		if len(updates) == 0 {
			updated = current
			return nil
		}

		if err := repo.Update(ctx, id, updates); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "category already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
		}
		if _, renamed := updates["name"]; renamed {
			moved, err = s.items.WithTx(tx).RenameCategory(ctx, current.Name, rename)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename item categories")
			}
		}
		updated, err = loadCategory(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && moved > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"category_id": id.String(),
			"items_moved": moved,
		}), "category renamed")
	}
	return fromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		category, err := loadCategory(ctx, repo, id)
		if err != nil {
			return err
		}
		inUse, err := s.items.WithTx(tx).CountByCategory(ctx, category.Name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category items")
		}
		if inUse > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category is used by inventory items").WithDetails(map[string]any{
				"items": inUse,
			})
		}
		if _, err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
		}
		return nil
	})
}

func loadCategory(ctx context.Context, repo Repository, id uuid.UUID) (*models.Category, error) {
	category, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}
