package requests

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

// Actor is the authenticated caller of a request operation.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	Name       string
	Position   string
	Department string
}

// IsAdmin reports whether the actor may run admin-only transitions.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

type transitionRule struct {
	from              enums.RequestStatus
	to                enums.RequestStatus
	adminOnly         bool
	ownerOnly         bool
	notification      enums.NotificationType
	groupNotification enums.NotificationType
}

// Cancel sends no notification: the requester is the one acting.
var transitionRules = map[enums.RequestTransition]transitionRule{
	enums.TransitionApprove: {
		from:              enums.RequestStatusPending,
		to:                enums.RequestStatusApproved,
		adminOnly:         true,
		notification:      enums.NotificationRequestApproved,
		groupNotification: enums.NotificationRequestGroupApproved,
	},
	enums.TransitionReject: {
		from:              enums.RequestStatusPending,
		to:                enums.RequestStatusRejected,
		adminOnly:         true,
		notification:      enums.NotificationRequestRejected,
		groupNotification: enums.NotificationRequestGroupRejected,
	},
	enums.TransitionFulfill: {
		from:              enums.RequestStatusApproved,
		to:                enums.RequestStatusFulfilled,
		adminOnly:         true,
		notification:      enums.NotificationRequestFulfilled,
		groupNotification: enums.NotificationRequestGroupFulfilled,
	},
	enums.TransitionCancel: {
		from:      enums.RequestStatusPending,
		to:        enums.RequestStatusCancelled,
		ownerOnly: true,
	},
}

func ruleFor(transition enums.RequestTransition) (transitionRule, error) {
	rule, ok := transitionRules[transition]
	if !ok {
		return transitionRule{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown transition %q", transition)
	}
	return rule, nil
}

// NextStatus returns the status a request in current moves to under
// transition, or INVALID_TRANSITION when the move is not allowed.
func NextStatus(current enums.RequestStatus, transition enums.RequestTransition) (enums.RequestStatus, error) {
	rule, err := ruleFor(transition)
	if err != nil {
		return "", err
	}
	if current != rule.from {
		return "", invalidTransition(current, transition)
	}
	return rule.to, nil
}

func invalidTransition(current enums.RequestStatus, transition enums.RequestTransition) error {
	return pkgerrors.New(
		pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot %s a %s request", transition, current),
	).WithDetails(map[string]any{
		"status":     current,
		"transition": transition,
	})
}

// staleTransition reports a compare-and-set that lost to another writer. The
// status read earlier is no longer current, so it is not repeated.
func staleTransition(transition enums.RequestTransition) error {
	return pkgerrors.Newf(
		pkgerrors.CodeInvalidTransition,
		"request changed concurrently, cannot %s it",
		transition,
	).WithDetails(map[string]any{
		"transition": transition,
		"reason":     "concurrent_update",
	})
}
