package notifications

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/db/models"
	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// Draft describes a notification before it is rendered and stored.
type Draft struct {
	UserID           uuid.UUID
	Type             enums.NotificationType
	RequestID        *uuid.UUID
	GroupID          *uuid.UUID
	ItemID           *uuid.UUID
	NewItemRequestID *uuid.UUID
	Count            int
	Params           map[string]string
}

// Param names understood by the templates.
const (
	ParamItem      = "item"
	ParamQuantity  = "quantity"
	ParamReason    = "reason"
	ParamRequester = "requester"
	ParamAvailable = "available"
	ParamMinimum   = "minimum"
)

type messageTemplate struct {
	key     string
	title   string
	message string
}

// Clients localise by key; title and message are the English fallback.
var messageTemplates = map[enums.NotificationType]messageTemplate{
	enums.NotificationRequestApproved: {
		key:     "notifications.request.approved",
		title:   "Request approved",
		message: "Your request for {quantity} x {item} was approved.",
	},
	enums.NotificationRequestRejected: {
		key:     "notifications.request.rejected",
		title:   "Request rejected",
		message: "Your request for {quantity} x {item} was rejected.",
	},
	enums.NotificationRequestFulfilled: {
		key:     "notifications.request.fulfilled",
		title:   "Request fulfilled",
		message: "Your request for {quantity} x {item} has been fulfilled.",
	},
	enums.NotificationRequestGroupApproved: {
		key:     "notifications.request_group.approved",
		title:   "Bulk request approved",
		message: "{count} items from your bulk request were approved.",
	},
	enums.NotificationRequestGroupRejected: {
		key:     "notifications.request_group.rejected",
		title:   "Bulk request rejected",
		message: "{count} items from your bulk request were rejected.",
	},
	enums.NotificationRequestGroupFulfilled: {
		key:     "notifications.request_group.fulfilled",
		title:   "Bulk request fulfilled",
		message: "{count} items from your bulk request have been fulfilled.",
	},
	enums.NotificationNewItemRequest: {
		key:     "notifications.new_item.submitted",
		title:   "New item suggested",
		message: "{requester} suggested adding {item} to the catalog.",
	},
	enums.NotificationNewItemApproved: {
		key:     "notifications.new_item.approved",
		title:   "Suggestion approved",
		message: "Your suggestion to add {item} was approved.",
	},
	enums.NotificationNewItemRejected: {
		key:     "notifications.new_item.rejected",
		title:   "Suggestion rejected",
		message: "Your suggestion to add {item} was rejected.",
	},
	enums.NotificationLowStock: {
		key:     "notifications.inventory.low_stock",
		title:   "Low stock",
		message: "{item} is running low: {available} left (minimum {minimum}).",
	},
}

// Compose renders a draft into a storable notification.
func Compose(draft Draft) (*models.Notification, error) {
	if draft.UserID == uuid.Nil {
		return nil, fmt.Errorf("notification recipient required")
	}
	tmpl, ok := messageTemplates[draft.Type]
	if !ok {
		return nil, fmt.Errorf("no template for notification type %q", draft.Type)
	}

	count := draft.Count
	if count < 1 {
		count = 1
	}
	pairs := []string{"{count}", strconv.Itoa(count)}
	for key, value := range draft.Params {
		pairs = append(pairs, "{"+key+"}", value)
	}
	message := strings.NewReplacer(pairs...).Replace(tmpl.message)
	if reason := strings.TrimSpace(draft.Params[ParamReason]); reason != "" {
		message += " Reason: " + reason
	}

	return &models.Notification{
		UserID:           draft.UserID,
		Type:             draft.Type,
		MessageKey:       tmpl.key,
		Title:            tmpl.title,
		Message:          message,
		RequestID:        draft.RequestID,
		RequestGroupID:   draft.GroupID,
		ItemID:           draft.ItemID,
		NewItemRequestID: draft.NewItemRequestID,
		Count:            count,
	}, nil
}
