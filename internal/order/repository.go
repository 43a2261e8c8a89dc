// File: internal/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error)
	List(ctx context.Context, q ListQuery) ([]Order, int64, error)
	Update(ctx context.Context, o *Order) error
	// Transition moves the order from one status to another and applies
	// fields in the same statement. It reports false when the order was no
	// longer in from.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, fields map[string]interface{}) (bool, error)
	AddHistory(ctx context.Context, change *StatusChange) error
	History(ctx context.Context, id uuid.UUID) ([]StatusChange, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM order repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails("Order not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails("An order already exists for this request or document number.")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrConflict.WithDetails("Order references a missing location, courier, supplier or product.")
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, o *Order) error {
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
	}
	for i := range o.History {
		if o.History[i].ID == uuid.Nil {
			o.History[i].ID = uuid.New()
		}
	}
	err := database.Conn(ctx, r.db).
		Omit("Warehouse", "Branch", "Courier", "Supplier", "Items.Product").
		Create(o).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := database.Conn(ctx, r.db).
		Preload("Warehouse").
		Preload("Branch").
		Preload("Courier").
		Preload("Supplier").
		Preload("Items.Product").
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at ASC") }).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *gormRepository) ExistsForRequest(ctx context.Context, requestID uuid.UUID) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&Order{}).Where("request_id = ?", requestID).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking request order: %w", err)
	}
	return n > 0, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Order, int64, error) {
	var orders []Order
	var total int64

	query := database.Conn(ctx, r.db).Model(&Order{})
	if q.Status != "" {
		query = query.Where("orders.status = ?", q.Status)
	}
	if q.Kind != "" {
		query = query.Where("orders.kind = ?", q.Kind)
	}
	if q.BranchID != nil {
		query = query.Where("orders.branch_id = ?", *q.BranchID)
	}
	if q.WarehouseID != nil {
		query = query.Where("orders.warehouse_id = ?", *q.WarehouseID)
	}
	if q.CourierID != nil {
		query = query.Where("orders.courier_id = ?", *q.CourierID)
	}
	if q.CourierUserID != nil {
		query = query.Where("orders.courier_id IN (?)",
			database.Conn(ctx, r.db).Table("couriers").Select("id").Where("user_id = ?", *q.CourierUserID))
	}
	if q.From != nil {
		query = query.Where("orders.created_at >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("orders.created_at <= ?", *q.To)
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}
	err := query.
		Preload("Branch").
		Preload("Warehouse").
		Preload("Courier").
		Preload("Supplier").
		Preload("Items.Product").
		Order("orders.created_at DESC").
		Offset(q.Offset()).Limit(q.Limit()).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

func (r *gormRepository) Update(ctx context.Context, o *Order) error {
	err := database.Conn(ctx, r.db).
		Omit("Warehouse", "Branch", "Courier", "Supplier", "Items", "History").
		Save(o).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) Transition(ctx context.Context, id uuid.UUID, from, to Status, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	result := database.Conn(ctx, r.db).Model(&Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) AddHistory(ctx context.Context, change *StatusChange) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	if err := database.Conn(ctx, r.db).Create(change).Error; err != nil {
		return fmt.Errorf("recording status change: %w", err)
	}
	return nil
}

func (r *gormRepository) History(ctx context.Context, id uuid.UUID) ([]StatusChange, error) {
	var history []StatusChange
	err := database.Conn(ctx, r.db).
		Where("order_id = ?", id).
		Order("changed_at ASC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("listing status history: %w", err)
	}
	return history, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&StatusChange{}).Error; err != nil {
			return fmt.Errorf("deleting order history: %w", err)
		}
		if err := tx.Where("order_id = ?", id).Delete(&Item{}).Error; err != nil {
			return fmt.Errorf("deleting order items: %w", err)
		}
		result := tx.Delete(&Order{}, "id = ?", id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return common.ErrNotFound.WithDetails("Order not found.")
		}
		return nil
	})
}
