// File: internal/location/repository.go
package location

import (
	"context"
	"errors"
	"fmt"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for warehouses and branches.
type Repository interface {
	CreateWarehouse(ctx context.Context, w *Warehouse) error
	FindWarehouseByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindAllWarehouses(ctx context.Context) ([]Warehouse, error)
	UpdateWarehouse(ctx context.Context, w *Warehouse) error

	CreateBranch(ctx context.Context, b *Branch) error
	FindBranchByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	FindBranches(ctx context.Context, warehouseID *uuid.UUID) ([]Branch, error)
	UpdateBranch(ctx context.Context, b *Branch) error
	DeleteBranch(ctx context.Context, id uuid.UUID) error
	CountBranchReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM location repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error, entity string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails(entity + " not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails(entity + " with this RUT already exists.")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrConflict.WithDetails(entity + " is referenced by other records.")
	}
	return err
}

func (r *gormRepository) CreateWarehouse(ctx context.Context, w *Warehouse) error {
	if err := database.Conn(ctx, r.db).Create(w).Error; err != nil {
		return translate(err, "Warehouse")
	}
	return nil
}

func (r *gormRepository) FindWarehouseByID(ctx context.Context, id uuid.UUID) (*Warehouse, error) {
	var w Warehouse
	if err := database.Conn(ctx, r.db).First(&w, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Warehouse")
	}
	return &w, nil
}

func (r *gormRepository) FindAllWarehouses(ctx context.Context) ([]Warehouse, error) {
	var warehouses []Warehouse
	if err := database.Conn(ctx, r.db).Order("name ASC").Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	return warehouses, nil
}

func (r *gormRepository) UpdateWarehouse(ctx context.Context, w *Warehouse) error {
	if err := database.Conn(ctx, r.db).Save(w).Error; err != nil {
		return translate(err, "Warehouse")
	}
	return nil
}

func (r *gormRepository) CreateBranch(ctx context.Context, b *Branch) error {
	if err := database.Conn(ctx, r.db).Create(b).Error; err != nil {
		return translate(err, "Branch")
	}
	return nil
}

func (r *gormRepository) FindBranchByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	var b Branch
	if err := database.Conn(ctx, r.db).Preload("Warehouse").First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Branch")
	}
	return &b, nil
}

func (r *gormRepository) FindBranches(ctx context.Context, warehouseID *uuid.UUID) ([]Branch, error) {
	var branches []Branch
	query := database.Conn(ctx, r.db).Preload("Warehouse")
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	if err := query.Order("name ASC").Find(&branches).Error; err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	return branches, nil
}

func (r *gormRepository) UpdateBranch(ctx context.Context, b *Branch) error {
	// Omit the association so a stale preloaded warehouse is not written back.
	if err := database.Conn(ctx, r.db).Omit("Warehouse").Save(b).Error; err != nil {
		return translate(err, "Branch")
	}
	return nil
}

func (r *gormRepository) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&Branch{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "Branch")
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Branch not found.")
	}
	return nil
}

func (r *gormRepository) CountBranchReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	return database.CountReferences(ctx, r.db, id,
		database.Ref{Table: "users", Column: "branch_id"},
		database.Ref{Table: "products", Column: "branch_id"},
		database.Ref{Table: "requests", Column: "branch_id"},
		database.Ref{Table: "orders", Column: "branch_id"},
	)
}
