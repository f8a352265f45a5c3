package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSupplyRequest  OutboxAggregateType = "supply_request"
	AggregateRequestGroup   OutboxAggregateType = "request_group"
	AggregateInventoryItem  OutboxAggregateType = "inventory_item"
	AggregateNotification   OutboxAggregateType = "notification"
	AggregateNewItemRequest OutboxAggregateType = "new_item_request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSupplyRequest,
	AggregateRequestGroup,
	AggregateInventoryItem,
	AggregateNotification,
	AggregateNewItemRequest,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return oneOf(a, validAggregateTypes)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(value, validAggregateTypes, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventRequestSubmitted     OutboxEventType = "request_submitted"
	EventRequestStatusChanged OutboxEventType = "request_status_changed"
	EventInventoryLowStock    OutboxEventType = "inventory_low_stock"
	EventNotificationCreated  OutboxEventType = "notification_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventRequestSubmitted,
	EventRequestStatusChanged,
	EventInventoryLowStock,
	EventNotificationCreated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return oneOf(e, validOutboxEventTypes)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(value, validOutboxEventTypes, "event type")
}

// OutboxDLQErrorReason records why the relay dead-lettered a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return oneOf(r, []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable})
}
