package enums

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationRequestApproved       NotificationType = "request_approved"
	NotificationRequestRejected       NotificationType = "request_rejected"
	NotificationRequestFulfilled      NotificationType = "request_fulfilled"
	NotificationRequestGroupApproved  NotificationType = "request_group_approved"
	NotificationRequestGroupRejected  NotificationType = "request_group_rejected"
	NotificationRequestGroupFulfilled NotificationType = "request_group_fulfilled"
	NotificationNewItemRequest        NotificationType = "new_item_request"
	NotificationNewItemApproved       NotificationType = "new_item_request_approved"
	NotificationNewItemRejected       NotificationType = "new_item_request_rejected"
	NotificationLowStock              NotificationType = "low_stock"
)

var validNotificationTypes = []NotificationType{
	NotificationRequestApproved,
	NotificationRequestRejected,
	NotificationRequestFulfilled,
	NotificationRequestGroupApproved,
	NotificationRequestGroupRejected,
	NotificationRequestGroupFulfilled,
	NotificationNewItemRequest,
	NotificationNewItemApproved,
	NotificationNewItemRejected,
	NotificationLowStock,
}

func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return oneOf(n, validNotificationTypes)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse(value, validNotificationTypes, "notification type")
}
