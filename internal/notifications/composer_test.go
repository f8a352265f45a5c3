package notifications

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

func TestComposeCoversEveryType(t *testing.T) {
	for _, typ := range []enums.NotificationType{
		enums.NotificationRequestApproved,
		enums.NotificationRequestRejected,
		enums.NotificationRequestFulfilled,
		enums.NotificationRequestGroupApproved,
		enums.NotificationRequestGroupRejected,
		enums.NotificationRequestGroupFulfilled,
		enums.NotificationNewItemRequest,
		enums.NotificationNewItemApproved,
		enums.NotificationNewItemRejected,
		enums.NotificationLowStock,
	} {
		n, err := Compose(Draft{UserID: uuid.New(), Type: typ})
		require.NoError(t, err, typ)
		assert.NotEmpty(t, n.MessageKey)
		assert.NotEmpty(t, n.Title)
		assert.Equal(t, typ, n.Type)
	}
}

func TestComposeRendersParams(t *testing.T) {
	requestID := uuid.New()
	n, err := Compose(Draft{
		UserID:    uuid.New(),
		Type:      enums.NotificationRequestRejected,
		RequestID: &requestID,
		Params: map[string]string{
			ParamItem:     "Paper A4",
			ParamQuantity: "3",
			ParamReason:   " over budget ",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your request for 3 x Paper A4 was rejected. Reason: over budget", n.Message)
	assert.Equal(t, "notifications.request.rejected", n.MessageKey)
	assert.Equal(t, &requestID, n.RequestID)
	assert.Equal(t, 1, n.Count)
}

func TestComposeGroupedCount(t *testing.T) {
	groupID := uuid.New()
	n, err := Compose(Draft{UserID: uuid.New(), Type: enums.NotificationRequestGroupApproved, GroupID: &groupID, Count: 4})
	require.NoError(t, err)
	assert.Equal(t, "4 items from your bulk request were approved.", n.Message)
	assert.Equal(t, 4, n.Count)
	assert.Equal(t, &groupID, n.RequestGroupID)
}

func TestComposeRejectsUnknownTypeAndMissingRecipient(t *testing.T) {
	_, err := Compose(Draft{UserID: uuid.New(), Type: "mystery"})
	require.Error(t, err)

	_, err = Compose(Draft{Type: enums.NotificationLowStock})
	require.Error(t, err)
}
