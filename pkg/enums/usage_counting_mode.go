package enums

import (
	"fmt"
	"strings"
)

// UsageCountingMode selects which request statuses the monthly quota check
// adds on top of the recorded monthly usage.
type UsageCountingMode string

const (
	// UsageCountingInflight counts pending, approved and fulfilled requests.
	UsageCountingInflight UsageCountingMode = "inflight"
	// UsageCountingPendingOnly counts only pending requests, since approved
	// ones are already part of the recorded monthly usage.
	UsageCountingPendingOnly UsageCountingMode = "pending_only"
)

// CountedStatuses returns the request statuses aggregated as in-flight usage.
func (m UsageCountingMode) CountedStatuses() []RequestStatus {
	if m == UsageCountingPendingOnly {
		return []RequestStatus{RequestStatusPending}
	}
	return []RequestStatus{
		RequestStatusPending,
		RequestStatusApproved,
		RequestStatusFulfilled,
	}
}

// ParseUsageCountingMode converts raw input, defaulting to inflight.
func ParseUsageCountingMode(value string) (UsageCountingMode, error) {
	switch UsageCountingMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", UsageCountingInflight:
		return UsageCountingInflight, nil
	case UsageCountingPendingOnly:
		return UsageCountingPendingOnly, nil
	default:
		return "", fmt.Errorf("invalid usage counting mode %q", value)
	}
}
