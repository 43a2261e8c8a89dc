// File: internal/catalog/repository.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for brands and categories.
type Repository interface {
	CreateBrand(ctx context.Context, b *Brand) error
	FindBrandByID(ctx context.Context, id uuid.UUID) (*Brand, error)
	FindBrandByNameKey(ctx context.Context, key string) (*Brand, error)
	FindAllBrands(ctx context.Context) ([]Brand, error)
	DeleteBrand(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c *Category) error
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindCategoryByNameKey(ctx context.Context, key string) (*Category, error)
	FindAllCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CountProductReferences(ctx context.Context, column string, id uuid.UUID) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM catalog repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error, entity string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails(entity + " not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails(entity + " with this name already exists.")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrConflict.WithDetails(entity + " is still used by products.")
	}
	return err
}

func (r *gormRepository) CreateBrand(ctx context.Context, b *Brand) error {
	if err := database.Conn(ctx, r.db).Create(b).Error; err != nil {
		return translate(err, "Brand")
	}
	return nil
}

func (r *gormRepository) FindBrandByID(ctx context.Context, id uuid.UUID) (*Brand, error) {
	var b Brand
	if err := database.Conn(ctx, r.db).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Brand")
	}
	return &b, nil
}

func (r *gormRepository) FindBrandByNameKey(ctx context.Context, key string) (*Brand, error) {
	var b Brand
	if err := database.Conn(ctx, r.db).First(&b, "name_key = ?", key).Error; err != nil {
		return nil, translate(err, "Brand")
	}
	return &b, nil
}

func (r *gormRepository) FindAllBrands(ctx context.Context) ([]Brand, error) {
	var brands []Brand
	if err := database.Conn(ctx, r.db).Order("name ASC").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("listing brands: %w", err)
	}
	return brands, nil
}

func (r *gormRepository) DeleteBrand(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&Brand{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "Brand")
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Brand not found.")
	}
	return nil
}

func (r *gormRepository) CreateCategory(ctx context.Context, c *Category) error {
	if err := database.Conn(ctx, r.db).Create(c).Error; err != nil {
		return translate(err, "Category")
	}
	return nil
}

func (r *gormRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	if err := database.Conn(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return &c, nil
}

func (r *gormRepository) FindCategoryByNameKey(ctx context.Context, key string) (*Category, error) {
	var c Category
	if err := database.Conn(ctx, r.db).First(&c, "name_key = ?", key).Error; err != nil {
		return nil, translate(err, "Category")
	}
	return &c, nil
}

func (r *gormRepository) FindAllCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := database.Conn(ctx, r.db).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

func (r *gormRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&Category{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "Category")
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Category not found.")
	}
	return nil
}

func (r *gormRepository) CountProductReferences(ctx context.Context, column string, id uuid.UUID) (int64, error) {
	return database.CountReferences(ctx, r.db, id, database.Ref{Table: "products", Column: column})
}
