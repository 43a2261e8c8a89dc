// File: internal/analytics/repository.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"ordena_backend/internal/order"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/requisition"
	"ordena_backend/internal/shared"

	"gorm.io/gorm"
)

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository interface {
	CountProducts(ctx context.Context, loc shared.LocationFilter, lowStockOnly bool) (int64, error)
	CountPendingRequests(ctx context.Context, loc shared.LocationFilter) (int64, error)
	CountOpenTransfers(ctx context.Context, loc shared.LocationFilter) (int64, error)
	RequestStatusCounts(ctx context.Context, q Query) ([]statusCount, error)
	OrdersByBranch(ctx context.Context, q Query) ([]BranchOrders, error)
	TopProducts(ctx context.Context, q Query) ([]TopProduct, error)
	RequestDates(ctx context.Context, loc shared.LocationFilter, since time.Time) ([]time.Time, error)
	OrderDates(ctx context.Context, loc shared.LocationFilter, since time.Time) ([]time.Time, error)
	ProductsByBranch(ctx context.Context, loc shared.LocationFilter) ([]BranchProducts, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// located filters table by the warehouse_id or branch_id column it shares
// with the other located tables.
func located(db *gorm.DB, table string, loc shared.LocationFilter) *gorm.DB {
	if loc.WarehouseID != nil {
		db = db.Where(table+".warehouse_id = ?", *loc.WarehouseID)
	}
	if loc.BranchID != nil {
		db = db.Where(table+".branch_id = ?", *loc.BranchID)
	}
	return db
}

func window(db *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		db = db.Where(column+" >= ?", *from)
	}
	if to != nil {
		db = db.Where(column+" <= ?", *to)
	}
	return db
}

func (r *gormRepository) CountProducts(ctx context.Context, loc shared.LocationFilter, lowStockOnly bool) (int64, error) {
	query := located(database.Conn(ctx, r.db).Table("products"), "products", loc).
		Where("products.active = ?", true)
	if lowStockOnly {
		query = query.Where("products.min_stock > 0 AND products.stock <= products.min_stock")
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return n, nil
}

func (r *gormRepository) CountPendingRequests(ctx context.Context, loc shared.LocationFilter) (int64, error) {
	var n int64
	err := located(database.Conn(ctx, r.db).Table("requests"), "requests", loc).
		Where("requests.status = ? AND requests.archived = ?", requisition.StatusPending, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting pending requests: %w", err)
	}
	return n, nil
}

func (r *gormRepository) CountOpenTransfers(ctx context.Context, loc shared.LocationFilter) (int64, error) {
	var n int64
	err := located(database.Conn(ctx, r.db).Table("orders"), "orders", loc).
		Where("orders.kind = ? AND orders.status IN ?", order.KindTransfer, order.OpenStatuses).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting open transfers: %w", err)
	}
	return n, nil
}

func (r *gormRepository) RequestStatusCounts(ctx context.Context, q Query) ([]statusCount, error) {
	var rows []statusCount
	query := located(database.Conn(ctx, r.db).Table("requests"), "requests", q.LocationFilter)
	err := window(query, "requests.created_at", q.From, q.To).
		Select("requests.status AS status, COUNT(*) AS total").
		Group("requests.status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting requests by status: %w", err)
	}
	return rows, nil
}

func (r *gormRepository) OrdersByBranch(ctx context.Context, q Query) ([]BranchOrders, error) {
	var rows []BranchOrders
	query := located(database.Conn(ctx, r.db).Table("orders"), "orders", q.LocationFilter).
		Joins("JOIN branches ON branches.id = orders.branch_id").
		Where("orders.kind = ?", order.KindTransfer)
	err := window(query, "orders.created_at", q.From, q.To).
		Select("orders.branch_id AS branch_id, branches.name AS branch_name, COUNT(*) AS orders").
		Group("orders.branch_id, branches.name").
		Order("COUNT(*) DESC, branches.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting orders by branch: %w", err)
	}
	return rows, nil
}

func (r *gormRepository) TopProducts(ctx context.Context, q Query) ([]TopProduct, error) {
	var rows []TopProduct
	query := located(database.Conn(ctx, r.db).Table("request_items"), "requests", q.LocationFilter).
		Joins("JOIN requests ON requests.id = request_items.request_id").
		Joins("JOIN products ON products.id = request_items.product_id")
	err := window(query, "requests.created_at", q.From, q.To).
		Select("request_items.product_id AS product_id, products.internal_code AS code, products.name AS name, " +
			"SUM(request_items.quantity) AS quantity, COUNT(DISTINCT request_items.request_id) AS requests").
		Group("request_items.product_id, products.internal_code, products.name").
		Order("SUM(request_items.quantity) DESC, products.name ASC").
		Limit(q.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ranking requested products: %w", err)
	}
	return rows, nil
}

func (r *gormRepository) RequestDates(ctx context.Context, loc shared.LocationFilter, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := located(database.Conn(ctx, r.db).Table("requests"), "requests", loc).
		Where("requests.created_at >= ?", since).
		Pluck("requests.created_at", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("loading request dates: %w", err)
	}
	return dates, nil
}

func (r *gormRepository) OrderDates(ctx context.Context, loc shared.LocationFilter, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := located(database.Conn(ctx, r.db).Table("orders"), "orders", loc).
		Where("orders.kind = ? AND orders.created_at >= ?", order.KindTransfer, since).
		Pluck("orders.created_at", &dates).Error
	if err != nil {
		return nil, fmt.Errorf("loading order dates: %w", err)
	}
	return dates, nil
}

func (r *gormRepository) ProductsByBranch(ctx context.Context, loc shared.LocationFilter) ([]BranchProducts, error) {
	var rows []BranchProducts
	query := database.Conn(ctx, r.db).Table("branches").
		Joins("LEFT JOIN products ON products.branch_id = branches.id AND products.active = ?", true)
	if loc.WarehouseID != nil {
		query = query.Where("branches.warehouse_id = ?", *loc.WarehouseID)
	}
	if loc.BranchID != nil {
		query = query.Where("branches.id = ?", *loc.BranchID)
	}
	err := query.
		Select("branches.id AS branch_id, branches.name AS branch_name, " +
			"COUNT(products.id) AS products, COALESCE(SUM(products.stock), 0) AS units").
		Group("branches.id, branches.name").
		Order("branches.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("counting products by branch: %w", err)
	}
	return rows, nil
}
