package reports

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

const topItemsLimit = 10

var hundred = decimal.NewFromInt(100)

// Service computes request statistics for reports and dashboards.
type Service interface {
	Summary(ctx context.Context, filter Filter) (*Summary, error)
	AdminDashboard(ctx context.Context) (*AdminDashboard, error)
	EmployeeDashboard(ctx context.Context, userID uuid.UUID) (*EmployeeDashboard, error)
}

type service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the reports service. Days are bucketed in loc.
func NewService(repo Repository, loc *time.Location) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reports repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, loc: loc, now: time.Now}, nil
}

func (s *service) Summary(ctx context.Context, filter Filter) (*Summary, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	filter.Department = strings.TrimSpace(filter.Department)

	counts, err := s.repo.StatusCounts(ctx, filter, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count requests by status")
	}
	departments, err := s.repo.DepartmentCounts(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count requests by department")
	}
	items, err := s.repo.TopItems(ctx, filter, topItemsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top items")
	}
	created, err := s.repo.CreatedTimes(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request dates")
	}

	summary := &Summary{
		Pending:     counts[enums.RequestStatusPending],
		Fulfilled:   counts[enums.RequestStatusFulfilled],
		Rejected:    counts[enums.RequestStatusRejected],
		Cancelled:   counts[enums.RequestStatusCancelled],
		Daily:       s.daily(created),
		Departments: nonNil(departments),
		TopItems:    items,
	}
	// Fulfilled requests were approved first, so both count as approved.
	summary.Approved = counts[enums.RequestStatusApproved] + summary.Fulfilled
	for _, count := range counts {
		summary.Total += count
	}
	summary.ApprovalRate = ApprovalRate(summary.Approved, summary.Total)
	if summary.TopItems == nil {
		summary.TopItems = []ItemTotal{}
	}
	return summary, nil
}

// ApprovalRate is approved/total as a percentage with two decimals, or zero
// for an empty set.
func ApprovalRate(approved, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(approved).Mul(hundred).Div(decimal.NewFromInt(total)).Round(2)
}

func (s *service) daily(created []time.Time) []TimeSeriesPoint {
	points := []TimeSeriesPoint{}
	for _, at := range created {
		day := at.In(s.loc).Format("2006-01-02")
		if n := len(points); n > 0 && points[n-1].Date == day {
			points[n-1].Value++
			continue
		}
		points = append(points, TimeSeriesPoint{Date: day, Value: 1})
	}
	return points
}

func (s *service) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	now := s.now().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	today, err := s.repo.CountRequestsSince(ctx, startOfDay)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count requests today")
	}
	week, err := s.repo.CountRequestsSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count requests this week")
	}
	counts, err := s.repo.StatusCounts(ctx, Filter{}, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending requests")
	}
	items, lowStock, err := s.repo.CountInventory(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count inventory")
	}
	newItems, err := s.repo.CountPendingNewItems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count new item requests")
	}

	return &AdminDashboard{
		RequestsToday:    today,
		RequestsThisWeek: week,
		PendingRequests:  counts[enums.RequestStatusPending],
		LowStockItems:    lowStock,
		InventoryItems:   items,
		PendingNewItems:  newItems,
	}, nil
}

func (s *service) EmployeeDashboard(ctx context.Context, userID uuid.UUID) (*EmployeeDashboard, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	counts, err := s.repo.StatusCounts(ctx, Filter{}, &userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count own requests")
	}
	dashboard := &EmployeeDashboard{ByStatus: make(map[enums.RequestStatus]int64, len(counts))}
	for _, status := range enums.RequestStatuses() {
		dashboard.ByStatus[status] = counts[status]
		dashboard.Total += counts[status]
	}
	return dashboard, nil
}

func nonNil(values []LabelValue) []LabelValue {
	if values == nil {
		return []LabelValue{}
	}
	return values
}
