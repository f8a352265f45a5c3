package enums

// RequestTransition names an action that moves a request between statuses.
type RequestTransition string

const (
	TransitionApprove RequestTransition = "approve"
	TransitionReject  RequestTransition = "reject"
	TransitionFulfill RequestTransition = "fulfill"
	TransitionCancel  RequestTransition = "cancel"
)

var validRequestTransitions = []RequestTransition{
	TransitionApprove,
	TransitionReject,
	TransitionFulfill,
	TransitionCancel,
}

func (t RequestTransition) String() string {
	return string(t)
}

func (t RequestTransition) IsValid() bool {
	return oneOf(t, validRequestTransitions)
}

// ParseRequestTransition converts raw input into a RequestTransition.
func ParseRequestTransition(value string) (RequestTransition, error) {
	return parse(value, validRequestTransitions, "request transition")
}
