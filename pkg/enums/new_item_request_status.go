package enums

// NewItemRequestStatus tracks an employee suggestion for a new catalog item.
type NewItemRequestStatus string

const (
	NewItemRequestPending  NewItemRequestStatus = "pending"
	NewItemRequestApproved NewItemRequestStatus = "approved"
	NewItemRequestRejected NewItemRequestStatus = "rejected"
)

var validNewItemRequestStatuses = []NewItemRequestStatus{
	NewItemRequestPending,
	NewItemRequestApproved,
	NewItemRequestRejected,
}

func (s NewItemRequestStatus) String() string {
	return string(s)
}

func (s NewItemRequestStatus) IsValid() bool {
	return oneOf(s, validNewItemRequestStatuses)
}

func ParseNewItemRequestStatus(value string) (NewItemRequestStatus, error) {
	return parse(value, validNewItemRequestStatuses, "new item request status")
}
