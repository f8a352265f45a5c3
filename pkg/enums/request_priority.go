package enums

import "strings"

// RequestPriority is the urgency an employee attaches to a request.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "low"
	RequestPriorityMedium RequestPriority = "medium"
	RequestPriorityHigh   RequestPriority = "high"
)

var validRequestPriorities = []RequestPriority{
	RequestPriorityLow,
	RequestPriorityMedium,
	RequestPriorityHigh,
}

func (p RequestPriority) String() string {
	return string(p)
}

func (p RequestPriority) IsValid() bool {
	return oneOf(p, validRequestPriorities)
}

// ParseRequestPriority converts raw input into a RequestPriority. Empty input
// yields the medium default.
func ParseRequestPriority(value string) (RequestPriority, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return RequestPriorityMedium, nil
	}
	return parse(value, validRequestPriorities, "request priority")
}
