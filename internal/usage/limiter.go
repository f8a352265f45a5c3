package usage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// Inputs are the already-loaded figures a quota decision is made from.
type Inputs struct {
	// Limited is false when no limitation exists for the item and position.
	Limited      bool
	MonthlyLimit int
	BaseUsage    int
	PendingUsage int
	Requested    int
}

// Result reports whether a requested quantity fits the monthly quota.
type Result struct {
	Allowed      bool `json:"allowed"`
	Limited      bool `json:"limited"`
	CurrentUsage int  `json:"current_usage"`
	Limit        int  `json:"limit"`
	Remaining    int  `json:"remaining"`
}

// Evaluate applies the monthly quota rule. Without a limitation every
// quantity is allowed and the quota fields stay zero.
func Evaluate(in Inputs) Result {
	if !in.Limited {
		return Result{Allowed: true}
	}

	current := in.BaseUsage + in.PendingUsage
	remaining := in.MonthlyLimit - current
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:      current+in.Requested <= in.MonthlyLimit,
		Limited:      true,
		CurrentUsage: current,
		Limit:        in.MonthlyLimit,
		Remaining:    remaining,
	}
}

// Period is a calendar month in the configured time zone.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodOf returns the month containing t as seen from loc.
func PeriodOf(t time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Period{Year: local.Year(), Month: int(local.Month())}
}

// Start returns the first instant of the month, in UTC.
func (p Period) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc).UTC()
}

// Valid reports whether the period names a real month.
func (p Period) Valid() bool {
	return p.Year >= 1970 && p.Month >= 1 && p.Month <= 12
}

// IdempotencyKey identifies one recorded usage: the request plus the
// transition that produced it.
func IdempotencyKey(requestID uuid.UUID, transition enums.RequestTransition) string {
	return fmt.Sprintf("%s:%s", requestID, transition)
}
