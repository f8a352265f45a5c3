package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplydesk-backend/internal/notifications"
	"github.com/angelmondragon/supplydesk-backend/internal/usage"
	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox"
	"github.com/angelmondragon/supplydesk-backend/pkg/outbox/payloads"
)

func (s *service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, actor, id, enums.TransitionApprove, nil)
}

func (s *service) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason *string) (*RequestDTO, error) {
	return s.transition(ctx, actor, id, enums.TransitionReject, trimmedReason(reason))
}

func (s *service) Fulfill(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, actor, id, enums.TransitionFulfill, nil)
}

func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, actor, id, enums.TransitionCancel, nil)
}

func (s *service) ApproveGroup(ctx context.Context, actor Actor, groupID uuid.UUID) (*GroupResult, error) {
	return s.transitionGroup(ctx, actor, groupID, enums.TransitionApprove, nil)
}

func (s *service) RejectGroup(ctx context.Context, actor Actor, groupID uuid.UUID, reason *string) (*GroupResult, error) {
	return s.transitionGroup(ctx, actor, groupID, enums.TransitionReject, trimmedReason(reason))
}

func (s *service) FulfillGroup(ctx context.Context, actor Actor, groupID uuid.UUID) (*GroupResult, error) {
	return s.transitionGroup(ctx, actor, groupID, enums.TransitionFulfill, nil)
}

func (s *service) transition(ctx context.Context, actor Actor, id uuid.UUID, transition enums.RequestTransition, reason *string) (result *RequestDTO, err error) {
	defer func() { s.observe(string(transition), err) }()

	rule, err := ruleFor(transition)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, rule); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var row *models.SupplyRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		row, err = loadRequest(ctx, s.repo.WithTx(tx), id)
		if err != nil {
			return err
		}
		if rule.ownerOnly && row.EmployeeID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can "+string(transition)+" this request")
		}
		if _, err := NextStatus(row.Status, transition); err != nil {
			return err
		}

		if err := s.apply(ctx, tx, actor, row, transition, reason); err != nil {
			return err
		}
		if rule.notification == "" {
			return nil
		}
		params := requestParams(row)
		if reason != nil {
			params[notifications.ParamReason] = *reason
		}
		requestID, itemID := row.ID, row.ItemID
		_, err = s.notify.NotifyTx(ctx, tx, notifications.Draft{
			UserID:    row.EmployeeID,
			Type:      rule.notification,
			RequestID: &requestID,
			GroupID:   row.GroupID,
			ItemID:    &itemID,
			Params:    params,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"request_id": id.String(),
		"transition": string(transition),
		"status":     string(row.Status),
		"actor_id":   actor.UserID.String(),
	}), "supply request transitioned")
	return FromModel(row), nil
}

// transitionGroup moves every sibling currently in the transition's source
// status. Siblings in other statuses are left alone; any failure rolls back
// the whole group.
func (s *service) transitionGroup(ctx context.Context, actor Actor, groupID uuid.UUID, transition enums.RequestTransition, reason *string) (result *GroupResult, err error) {
	defer func() { s.observe("group_"+string(transition), err) }()

	rule, err := ruleFor(transition)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, rule); err != nil {
		return nil, err
	}
	if groupID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}

	var (
		siblings     []models.SupplyRequest
		transitioned int
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		siblings, err = s.repo.WithTx(tx).ListByGroup(ctx, groupID, true)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request group")
		}
		if len(siblings) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "request group not found")
		}

		for i := range siblings {
			if siblings[i].Status != rule.from {
				continue
			}
			if err := s.apply(ctx, tx, actor, &siblings[i], transition, reason); err != nil {
				return err
			}
			transitioned++
		}
		if transitioned == 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "no request in the group can be "+string(rule.to)).WithDetails(map[string]any{
				"group_id":   groupID,
				"transition": transition,
				"required":   rule.from,
			})
		}

		if rule.groupNotification == "" {
			return nil
		}
		params := map[string]string{}
		if reason != nil {
			params[notifications.ParamReason] = *reason
		}
		gid := groupID
		_, err = s.notify.NotifyTx(ctx, tx, notifications.Draft{
			UserID:  siblings[0].EmployeeID,
			Type:    rule.groupNotification,
			GroupID: &gid,
			Count:   transitioned,
			Params:  params,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"group_id":     groupID.String(),
		"transition":   string(transition),
		"transitioned": transitioned,
		"actor_id":     actor.UserID.String(),
	}), "request group transitioned")
	return &GroupResult{GroupID: groupID, Transitioned: transitioned, Requests: FromModels(siblings)}, nil
}

// apply performs one transition inside tx: the compare-and-set status write,
// its side effect on usage or stock, and the status-changed event. row is
// updated in place.
func (s *service) apply(ctx context.Context, tx *gorm.DB, actor Actor, row *models.SupplyRequest, transition enums.RequestTransition, reason *string) error {
	rule := transitionRules[transition]
	from := row.Status
	now := s.now()

	updates := stamp(row, transition, actor.UserID, now, reason)
	ok, err := s.repo.WithTx(tx).CompareAndSetStatus(ctx, row.ID, from, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update request status")
	}
	if !ok {
		return staleTransition(transition)
	}
	row.Status = rule.to
	row.UpdatedAt = now

	switch transition {
	case enums.TransitionApprove:
		if _, err := s.usage.RecordUsageTx(ctx, tx, usage.Usage{
			Key:       usage.IdempotencyKey(row.ID, transition),
			RequestID: row.ID,
			UserID:    row.EmployeeID,
			ItemID:    row.ItemID,
			ItemName:  row.ItemName,
			Quantity:  row.Quantity,
			At:        now,
		}); err != nil {
			return err
		}
	case enums.TransitionFulfill:
		if _, err := s.inventory.DecrementAvailableTx(ctx, tx, row.ItemID, row.Quantity); err != nil {
			return err
		}
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRequestStatusChanged,
		AggregateType: enums.AggregateSupplyRequest,
		AggregateID:   row.ID,
		Actor:         actorRef(actor),
		OccurredAt:    now,
		Data: payloads.RequestStatusChangedEvent{
			RequestID:  row.ID,
			GroupID:    row.GroupID,
			EmployeeID: row.EmployeeID,
			ItemID:     row.ItemID,
			Quantity:   row.Quantity,
			Transition: transition,
			FromStatus: from,
			ToStatus:   rule.to,
			ActorID:    actor.UserID,
		},
	})
}

// stamp sets the transition's audit columns on row and returns them as a
// column update map.
func stamp(row *models.SupplyRequest, transition enums.RequestTransition, actorID uuid.UUID, now time.Time, reason *string) map[string]any {
	rule := transitionRules[transition]
	at := now
	by := actorID
	updates := map[string]any{"status": rule.to}
	switch transition {
	case enums.TransitionApprove:
		row.ApprovedAt, row.ApprovedBy = &at, &by
		updates["approved_at"], updates["approved_by"] = at, by
	case enums.TransitionReject:
		row.RejectedAt, row.RejectedBy, row.AdminNotes = &at, &by, reason
		updates["rejected_at"], updates["rejected_by"], updates["admin_notes"] = at, by, reason
	case enums.TransitionFulfill:
		row.FulfilledAt, row.FulfilledBy = &at, &by
		updates["fulfilled_at"], updates["fulfilled_by"] = at, by
	case enums.TransitionCancel:
		row.CancelledAt = &at
		updates["cancelled_at"] = at
	}
	return updates
}

func authorize(actor Actor, rule transitionRule) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if rule.adminOnly && !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
