// File: internal/requisition/repository.go
package requisition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Request, error)
	List(ctx context.Context, q ListQuery) ([]Request, int64, error)
	// Decide moves a pending request to status. It reports false when the
	// request was no longer pending.
	Decide(ctx context.Context, id uuid.UUID, status Status, number *string, note *string, decidedBy uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM request repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails("Request not found.")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrConflict.WithDetails("Request references a missing branch or product.")
	}
	return err
}

func (r *gormRepository) preloaded(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).
		Preload("Branch").
		Preload("Warehouse").
		Preload("Items.Product")
}

func (r *gormRepository) Create(ctx context.Context, req *Request) error {
	for i := range req.Items {
		if req.Items[i].ID == uuid.Nil {
			req.Items[i].ID = uuid.New()
		}
	}
	err := database.Conn(ctx, r.db).
		Omit("Branch", "Warehouse", "Items.Product").
		Create(req).Error
	if err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	var req Request
	if err := r.preloaded(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Request, error) {
	var reqs []Request
	if len(ids) == 0 {
		return reqs, nil
	}
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("finding requests: %w", err)
	}
	return reqs, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Request, int64, error) {
	var reqs []Request
	var total int64

	query := database.Conn(ctx, r.db).Model(&Request{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.BranchID != nil {
		query = query.Where("branch_id = ?", *q.BranchID)
	}
	if q.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *q.WarehouseID)
	}
	if q.Archived != nil {
		query = query.Where("archived = ?", *q.Archived)
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting requests: %w", err)
	}
	err := query.Preload("Branch").Preload("Items.Product").
		Order("created_at DESC").
		Offset(q.Offset()).Limit(q.Limit()).
		Find(&reqs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing requests: %w", err)
	}
	return reqs, total, nil
}

func (r *gormRepository) Decide(ctx context.Context, id uuid.UUID, status Status, number *string, note *string, decidedBy uuid.UUID, at time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).Model(&Request{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"number":        number,
			"decision_note": note,
			"decided_by_id": decidedBy,
			"decided_at":    at,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&Item{}).Error; err != nil {
			return fmt.Errorf("deleting request items: %w", err)
		}
		if err := tx.Delete(&Request{}, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		return nil
	})
}

func (r *gormRepository) Archive(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := database.Conn(ctx, r.db).Model(&Request{}).
		Where("id IN ? AND status <> ? AND archived = ?", ids, StatusPending, false).
		Update("archived", true)
	if result.Error != nil {
		return 0, fmt.Errorf("archiving requests: %w", result.Error)
	}
	return result.RowsAffected, nil
}
