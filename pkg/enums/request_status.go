package enums

// RequestStatus tracks the lifecycle of a supply request.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusApproved,
	RequestStatusFulfilled,
	RequestStatusRejected,
	RequestStatusCancelled,
}

// String implements fmt.Stringer.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known RequestStatus.
func (s RequestStatus) IsValid() bool {
	return oneOf(s, validRequestStatuses)
}

// IsTerminal reports whether no further transition may leave this status.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusFulfilled, RequestStatusRejected, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseRequestStatus converts raw input into a RequestStatus.
func ParseRequestStatus(value string) (RequestStatus, error) {
	return parse(value, validRequestStatuses, "request status")
}

// RequestStatuses lists every status in lifecycle order.
func RequestStatuses() []RequestStatus {
	out := make([]RequestStatus, len(validRequestStatuses))
	copy(out, validRequestStatuses)
	return out
}
