package limitations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/pkg/db"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

// Service manages per-position monthly quotas.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*LimitationDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*LimitationDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params ListParams) ([]LimitationDTO, error)
}

type itemLookup interface {
	GetTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.InventoryItem, error)
}

// ListParams filters limitations by item and position.
type ListParams struct {
	ItemID   *uuid.UUID
	Position string
}

type service struct {
	repo  Repository
	items itemLookup
	logg  *logger.Logger
}

// NewService wires the limitations service.
func NewService(repo Repository, items itemLookup, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "limitations repository required")
	}
	if items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory lookup required")
	}
	return &service{repo: repo, items: items, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*LimitationDTO, error) {
	position := strings.TrimSpace(input.Position)
	if position == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position is required")
	}
	if input.MonthlyLimit < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly_limit must be at least 1")
	}
	item, err := s.items.GetTx(ctx, nil, input.ItemID)
	if err != nil {
		return nil, err
	}

	limitation := &models.ItemLimitation{
		ItemID:       item.ID,
		ItemName:     item.Name,
		Position:     position,
		MonthlyLimit: input.MonthlyLimit,
	}
	if err := s.repo.Create(ctx, limitation); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a limitation for this item and position already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create limitation")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"limitation_id": limitation.ID.String(),
			"item_id":       item.ID.String(),
			"position":      position,
		}), "item limitation created")
	}
	return FromModel(limitation), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*LimitationDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limitation id required")
	}
	updates := map[string]any{}
	if input.Position != nil {
		position := strings.TrimSpace(*input.Position)
		if position == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "position cannot be empty")
		}
		updates["position"] = position
	}
	if input.MonthlyLimit != nil {
		if *input.MonthlyLimit < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "monthly_limit must be at least 1")
		}
		updates["monthly_limit"] = *input.MonthlyLimit
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	found, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a limitation for this item and position already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update limitation")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "limitation not found")
	}

	limitation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "limitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load limitation")
	}
	return FromModel(limitation), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "limitation id required")
	}
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete limitation")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "limitation not found")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]LimitationDTO, error) {
	rows, err := s.repo.List(ctx, listParams{
		ItemID:   params.ItemID,
		Position: strings.TrimSpace(params.Position),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list limitations")
	}
	out := make([]LimitationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}
