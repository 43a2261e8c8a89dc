// File: internal/report/repository.go
package report

import (
	"context"
	"errors"
	"fmt"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, r *Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, q ListQuery) ([]Report, int64, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Exists reports whether table holds a row with id.
	Exists(ctx context.Context, table string, id uuid.UUID) (bool, error)
	// DeleteOrphans removes reports that point at orders or products that no longer exist.
	DeleteOrphans(ctx context.Context) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrNotFound.WithDetails("Report not found.")
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, rep *Report) error {
	if err := database.Conn(ctx, r.db).Create(rep).Error; err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	var rep Report
	if err := database.Conn(ctx, r.db).First(&rep, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Report, int64, error) {
	var (
		reports []Report
		total   int64
	)
	query := database.Conn(ctx, r.db).Model(&Report{})
	if q.Module != "" {
		query = query.Where("module = ?", q.Module)
	}
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}
	err := query.Order("generated_at DESC").
		Offset(q.Offset()).
		Limit(q.Limit()).
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing reports: %w", err)
	}
	return reports, total, nil
}

func (r *gormRepository) Update(ctx context.Context, rep *Report) error {
	if err := database.Conn(ctx, r.db).Save(rep).Error; err != nil {
		return fmt.Errorf("updating report: %w", err)
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&Report{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Report not found.")
	}
	return nil
}

func (r *gormRepository) Exists(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	var n int64
	if err := database.Conn(ctx, r.db).Table(table).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("looking up %s: %w", table, err)
	}
	return n > 0, nil
}

func (r *gormRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	conn := database.Conn(ctx, r.db)
	orders := conn.Session(&gorm.Session{NewDB: true}).Table("orders").Select("id")
	products := conn.Session(&gorm.Session{NewDB: true}).Table("products").Select("id")
	result := conn.
		Where("order_id IS NOT NULL AND order_id NOT IN (?)", orders).
		Or("product_id IS NOT NULL AND product_id NOT IN (?)", products).
		Delete(&Report{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting orphan reports: %w", result.Error)
	}
	return result.RowsAffected, nil
}
