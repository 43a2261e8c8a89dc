// File: internal/analytics/model.go
package analytics

import (
	"time"

	"ordena_backend/internal/shared"

	"github.com/google/uuid"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 50
	defaultMonths   = 6
	maxMonths       = 24
)

// Summary holds the dashboard counters.
type Summary struct {
	ActiveProducts      int64 `json:"active_products"`
	LowStockProducts    int64 `json:"low_stock_products"`
	PendingRequests     int64 `json:"pending_requests"`
	PendingTransfers    int64 `json:"pending_transfers"`
	UnreadNotifications int64 `json:"unread_notifications"`
}

type ApprovalRate struct {
	Approved int64 `json:"approved"`
	Denied   int64 `json:"denied"`
	Pending  int64 `json:"pending"`
	// Rate is approved over decided requests, 0 when none was decided.
	Rate float64 `json:"approval_rate"`
}

type BranchOrders struct {
	BranchID   uuid.UUID `json:"branch_id"`
	BranchName string    `json:"branch_name"`
	Orders     int64     `json:"orders"`
}

type TopProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Requests  int64     `json:"requests"`
}

// MonthlyPoint counts requests and orders created in one month ("2006-01").
type MonthlyPoint struct {
	Month    string `json:"month"`
	Requests int64  `json:"requests"`
	Orders   int64  `json:"orders"`
}

type BranchProducts struct {
	BranchID   uuid.UUID `json:"branch_id"`
	BranchName string    `json:"branch_name"`
	Products   int64     `json:"products"`
	Units      int64     `json:"units"`
}

// Query narrows a dashboard figure to a location and a creation window.
type Query struct {
	shared.LocationFilter
	From  *time.Time
	To    *time.Time
	Limit int
}

type statusCount struct {
	Status string
	Total  int64
}
