package reports

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplydesk-backend/pkg/enums"
)

// Filter narrows the request set a summary is computed over. From is
// inclusive, To exclusive; zero values leave that side open.
type Filter struct {
	From       time.Time
	To         time.Time
	Department string
}

// TimeSeriesPoint is the number of requests created on one day.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// LabelValue is a top-N entry such as a department.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// ItemTotal is the requested quantity of one item over the filter.
type ItemTotal struct {
	ItemID   uuid.UUID `json:"item_id"`
	ItemName string    `json:"item_name"`
	Quantity int64     `json:"quantity"`
	Requests int64     `json:"requests"`
}

// Summary is the admin report over a date range.
type Summary struct {
	Total        int64             `json:"total"`
	Pending      int64             `json:"pending"`
	Approved     int64             `json:"approved"`
	Fulfilled    int64             `json:"fulfilled"`
	Rejected     int64             `json:"rejected"`
	Cancelled    int64             `json:"cancelled"`
	ApprovalRate decimal.Decimal   `json:"approval_rate"`
	Daily        []TimeSeriesPoint `json:"daily"`
	Departments  []LabelValue      `json:"departments"`
	TopItems     []ItemTotal       `json:"top_items"`
}

// AdminDashboard holds the counters on the admin landing page.
type AdminDashboard struct {
	RequestsToday    int64 `json:"requests_today"`
	RequestsThisWeek int64 `json:"requests_this_week"`
	PendingRequests  int64 `json:"pending_requests"`
	LowStockItems    int64 `json:"low_stock_items"`
	InventoryItems   int64 `json:"inventory_items"`
	PendingNewItems  int64 `json:"pending_new_items"`
}

// EmployeeDashboard counts one employee's requests by status.
type EmployeeDashboard struct {
	Total    int64                         `json:"total"`
	ByStatus map[enums.RequestStatus]int64 `json:"by_status"`
}
