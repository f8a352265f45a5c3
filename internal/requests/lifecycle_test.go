package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

func TestNextStatus(t *testing.T) {
	statuses := []enums.RequestStatus{
		enums.RequestStatusPending,
		enums.RequestStatusApproved,
		enums.RequestStatusRejected,
		enums.RequestStatusFulfilled,
		enums.RequestStatusCancelled,
	}
	allowed := map[enums.RequestTransition]map[enums.RequestStatus]enums.RequestStatus{
		enums.TransitionApprove: {enums.RequestStatusPending: enums.RequestStatusApproved},
		enums.TransitionReject:  {enums.RequestStatusPending: enums.RequestStatusRejected},
		enums.TransitionFulfill: {enums.RequestStatusApproved: enums.RequestStatusFulfilled},
		enums.TransitionCancel:  {enums.RequestStatusPending: enums.RequestStatusCancelled},
	}

	for transition, moves := range allowed {
		for _, from := range statuses {
			next, err := NextStatus(from, transition)
			want, ok := moves[from]
			if ok {
				require.NoError(t, err, "%s from %s", transition, from)
				assert.Equal(t, want, next)
				continue
			}
			require.Error(t, err, "%s from %s", transition, from)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
		}
	}
}

func TestTerminalStatusesAcceptNoTransition(t *testing.T) {
	for _, status := range []enums.RequestStatus{enums.RequestStatusRejected, enums.RequestStatusFulfilled, enums.RequestStatusCancelled} {
		require.True(t, status.IsTerminal())
		for transition := range transitionRules {
			_, err := NextStatus(status, transition)
			assert.Error(t, err)
		}
	}
}

func TestNextStatusUnknownTransition(t *testing.T) {
	_, err := NextStatus(enums.RequestStatusPending, enums.RequestTransition("archive"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransitionRulesMapNotifications(t *testing.T) {
	assert.Equal(t, enums.NotificationRequestApproved, transitionRules[enums.TransitionApprove].notification)
	assert.Equal(t, enums.NotificationRequestGroupRejected, transitionRules[enums.TransitionReject].groupNotification)
	assert.Equal(t, enums.NotificationRequestFulfilled, transitionRules[enums.TransitionFulfill].notification)
	assert.Empty(t, transitionRules[enums.TransitionCancel].notification)
	assert.True(t, transitionRules[enums.TransitionCancel].ownerOnly)
}
