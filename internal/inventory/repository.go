// File: internal/inventory/repository.go
package inventory

import (
	"context"
	"fmt"
	"time"

	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for inventory movements.
type Repository interface {
	Create(ctx context.Context, m *Movement) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Movement, error)
	List(ctx context.Context, q MovementQuery) ([]Movement, int64, error)
	Stats(ctx context.Context, q MovementQuery) (*Statistics, error)
	// Since returns the movements of products held by loc created at or after since, newest first.
	Since(ctx context.Context, loc shared.LocationFilter, since time.Time) ([]Movement, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM movement repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, m *Movement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := database.Conn(ctx, r.db).Omit("Product").Create(m).Error; err != nil {
		return fmt.Errorf("creating movement: %w", err)
	}
	return nil
}

func (r *gormRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]Movement, error) {
	var movements []Movement
	err := database.Conn(ctx, r.db).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("listing product movements: %w", err)
	}
	return movements, nil
}

// filtered joins products so location filters apply to the product's holder.
func (r *gormRepository) filtered(ctx context.Context, q MovementQuery) *gorm.DB {
	query := database.Conn(ctx, r.db).Model(&Movement{}).
		Joins("JOIN products ON products.id = inventory_movements.product_id")
	switch {
	case q.WarehouseID != nil:
		query = query.Where("products.warehouse_id = ?", *q.WarehouseID)
	case q.BranchID != nil:
		query = query.Where("products.branch_id = ?", *q.BranchID)
	}
	if q.ProductID != nil {
		query = query.Where("inventory_movements.product_id = ?", *q.ProductID)
	}
	if q.Type != "" {
		query = query.Where("inventory_movements.type = ?", q.Type)
	}
	if q.From != nil {
		query = query.Where("inventory_movements.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("inventory_movements.created_at <= ?", *q.To)
	}
	return query
}

func (r *gormRepository) List(ctx context.Context, q MovementQuery) ([]Movement, int64, error) {
	var movements []Movement
	var total int64

	query := r.filtered(ctx, q)
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting movements: %w", err)
	}
	err := query.Preload("Product").
		Select("inventory_movements.*").
		Order("inventory_movements.created_at DESC").
		Offset(q.Offset()).Limit(q.Limit()).
		Find(&movements).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing movements: %w", err)
	}
	return movements, total, nil
}

type typeTotals struct {
	Type  MovementType
	Count int64
	Units int64
}

func (r *gormRepository) Stats(ctx context.Context, q MovementQuery) (*Statistics, error) {
	var rows []typeTotals
	err := r.filtered(ctx, q).
		Select("inventory_movements.type AS type, COUNT(*) AS count, COALESCE(SUM(inventory_movements.quantity), 0) AS units").
		Group("inventory_movements.type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating movements: %w", err)
	}

	stats := &Statistics{}
	for _, row := range rows {
		stats.add(row.Type, row.Count, row.Units)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	var first Movement
	err = r.filtered(ctx, q).Select("inventory_movements.created_at").
		Order("inventory_movements.created_at ASC").Limit(1).Scan(&first).Error
	if err != nil {
		return nil, fmt.Errorf("finding first movement: %w", err)
	}
	stats.AvgMovementsPerMonth = perMonth(stats.Total, first.CreatedAt, time.Now())
	return stats, nil
}

func (r *gormRepository) Since(ctx context.Context, loc shared.LocationFilter, since time.Time) ([]Movement, error) {
	var movements []Movement
	err := r.filtered(ctx, MovementQuery{LocationFilter: loc, From: &since}).
		Select("inventory_movements.*").
		Order("inventory_movements.created_at DESC").
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("listing recent movements: %w", err)
	}
	return movements, nil
}
