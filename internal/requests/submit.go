package requests

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/internal/usage"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
)

type submitLine struct {
	itemID   uuid.UUID
	quantity int
	notes    string
}

func (s *service) Submit(ctx context.Context, actor Actor, input SubmitInput) (*RequestDTO, error) {
	rows, err := s.submit(ctx, actor, []submitLine{{
		itemID:   input.ItemID,
		quantity: input.Quantity,
		notes:    input.Notes,
	}}, input.Priority, nil)
	if err != nil {
		return nil, err
	}
	return FromModel(rows[0]), nil
}

// SubmitBulk checks out a cart: every line becomes a pending request sharing
// one group id, inserted in a single transaction.
func (s *service) SubmitBulk(ctx context.Context, actor Actor, input SubmitBulkInput) (*BulkResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	lines := make([]submitLine, 0, len(input.Items))
	for _, item := range input.Items {
		notes := item.Notes
		if strings.TrimSpace(notes) == "" {
			notes = input.Notes
		}
		lines = append(lines, submitLine{itemID: item.ItemID, quantity: item.Quantity, notes: notes})
	}

	groupID := uuid.New()
	rows, err := s.submit(ctx, actor, lines, input.Priority, &groupID)
	if err != nil {
		return nil, err
	}
	out := make([]RequestDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *FromModel(row))
	}
	return &BulkResult{GroupID: groupID, Requests: out}, nil
}

func (s *service) submit(ctx context.Context, actor Actor, lines []submitLine, priority enums.RequestPriority, groupID *uuid.UUID) ([]*models.SupplyRequest, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	parsedPriority, err := enums.ParseRequestPriority(string(priority))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
	}

	// Lines for the same item are checked against stock and quota as one sum.
	totals := make(map[uuid.UUID]int, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.itemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
		}
		if line.quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if _, seen := totals[line.itemID]; !seen {
			order = append(order, line.itemID)
		}
		totals[line.itemID] += line.quantity
	}

	var rows []*models.SupplyRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		employee, err := s.directory.FindByIDTx(ctx, tx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
		}
		if !employee.IsActive {
			return pkgerrors.New(pkgerrors.CodeForbidden, "account is inactive")
		}

		items := make(map[uuid.UUID]*models.InventoryItem, len(order))
		for _, itemID := range order {
			item, err := s.inventory.GetTx(ctx, tx, itemID)
			if err != nil {
				return err
			}
			requested := totals[itemID]
			if requested > item.Available {
				return pkgerrors.New(pkgerrors.CodeValidation, "requested quantity exceeds available stock").WithDetails(map[string]any{
					"item_id":   item.ID,
					"item_name": item.Name,
					"available": item.Available,
					"requested": requested,
				})
			}

			quota, err := s.usage.CheckLimitTx(ctx, tx, usage.CheckInput{
				UserID:   employee.ID,
				ItemID:   item.ID,
				Position: employee.Position,
				Quantity: requested,
			})
			if err != nil {
				return err
			}
			if !quota.Allowed {
				return pkgerrors.New(pkgerrors.CodeValidation, "monthly limit exceeded").WithDetails(map[string]any{
					"item_id":       item.ID,
					"item_name":     item.Name,
					"current_usage": quota.CurrentUsage,
					"limit":         quota.Limit,
					"remaining":     quota.Remaining,
					"requested":     requested,
				})
			}
			items[itemID] = item
		}

		rows = make([]*models.SupplyRequest, 0, len(lines))
		for _, line := range lines {
			rows = append(rows, &models.SupplyRequest{
				EmployeeID:   employee.ID,
				EmployeeName: employee.DisplayName(),
				Department:   employee.Department,
				ItemID:       line.itemID,
				ItemName:     items[line.itemID].Name,
				Quantity:     line.quantity,
				Notes:        strings.TrimSpace(line.notes),
				Priority:     parsedPriority,
				Status:       enums.RequestStatusPending,
				GroupID:      groupID,
			})
		}
		if err := s.repo.WithTx(tx).CreateBatch(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create requests")
		}

		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		aggregateType, aggregateID := enums.AggregateSupplyRequest, rows[0].ID
		if groupID != nil {
			aggregateType, aggregateID = enums.AggregateRequestGroup, *groupID
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestSubmitted,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Actor:         actorRef(actor),
			Data: payloads.RequestSubmittedEvent{
				RequestIDs:  ids,
				GroupID:     groupID,
				EmployeeID:  employee.ID,
				Department:  employee.Department,
				SubmittedAt: s.now(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"employee_id": actor.UserID.String(),
		"requests":    len(rows),
	}
	if groupID != nil {
		fields["group_id"] = groupID.String()
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "supply requests submitted")
	return rows, nil
}
