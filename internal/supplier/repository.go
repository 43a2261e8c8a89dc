// File: internal/supplier/repository.go
package supplier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for suppliers.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindByRUT(ctx context.Context, rut string) (*Supplier, error)
	List(ctx context.Context, q ListQuery) ([]Supplier, int64, error)
	Update(ctx context.Context, s *Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM supplier repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails("Supplier not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails("Supplier with this RUT already exists.")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrConflict.WithDetails("Supplier is referenced by orders.")
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, s *Supplier) error {
	if err := database.Conn(ctx, r.db).Create(s).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	var s Supplier
	if err := database.Conn(ctx, r.db).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormRepository) FindByRUT(ctx context.Context, rut string) (*Supplier, error) {
	var s Supplier
	if err := database.Conn(ctx, r.db).First(&s, "rut = ?", rut).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Supplier, int64, error) {
	var suppliers []Supplier
	var total int64

	query := database.Conn(ctx, r.db).Model(&Supplier{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(business_name) LIKE ? OR rut LIKE ?", like, like, like)
	}
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting suppliers: %w", err)
	}
	if err := query.Order("name ASC").Offset(q.Offset()).Limit(q.Limit()).Find(&suppliers).Error; err != nil {
		return nil, 0, fmt.Errorf("listing suppliers: %w", err)
	}
	return suppliers, total, nil
}

func (r *gormRepository) Update(ctx context.Context, s *Supplier) error {
	if err := database.Conn(ctx, r.db).Save(s).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&Supplier{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Supplier not found.")
	}
	return nil
}

func (r *gormRepository) CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	return database.CountReferences(ctx, r.db, id, database.Ref{Table: "orders", Column: "supplier_id"})
}
