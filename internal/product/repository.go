// File: internal/product/repository.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	// FindByIDForUpdate loads the product with a row lock when running inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByCode(ctx context.Context, code string, loc shared.LocationFilter) (*Product, error)
	FindByLocation(ctx context.Context, loc shared.LocationFilter, activeOnly bool) ([]Product, error)
	List(ctx context.Context, q ListQuery) ([]Product, int64, error)
	ListAll(ctx context.Context, batch int, fn func([]Product) error) error
	Update(ctx context.Context, p *Product) error
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	UpdateLimits(ctx context.Context, id uuid.UUID, minStock, maxStock int) error
	SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error)
	FindLowStock(ctx context.Context, loc shared.LocationFilter) ([]Product, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM product repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails("Product not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails("A product with this code already exists in this location.")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return common.ErrConflict.WithDetails("Product references a missing brand or category.")
	}
	return err
}

func scopeLocation(query *gorm.DB, loc shared.LocationFilter) *gorm.DB {
	switch {
	case loc.WarehouseID != nil:
		return query.Where("products.warehouse_id = ?", *loc.WarehouseID)
	case loc.BranchID != nil:
		return query.Where("products.branch_id = ?", *loc.BranchID)
	}
	return query
}

func (r *gormRepository) preloaded(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).Preload("Brand").Preload("Category")
}

func (r *gormRepository) Create(ctx context.Context, p *Product) error {
	if err := database.Conn(ctx, r.db).Omit("Brand", "Category").Create(p).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	if err := r.preloaded(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	var products []Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.preloaded(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("finding products by ids: %w", err)
	}
	return products, nil
}

func (r *gormRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	if err := database.ForUpdate(database.Conn(ctx, r.db)).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *gormRepository) FindByCode(ctx context.Context, code string, loc shared.LocationFilter) (*Product, error) {
	var p Product
	query := scopeLocation(r.preloaded(ctx), loc).Where("code_key = ?", strings.ToLower(strings.TrimSpace(code)))
	if err := query.Order("active DESC").First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *gormRepository) FindByLocation(ctx context.Context, loc shared.LocationFilter, activeOnly bool) ([]Product, error) {
	var products []Product
	query := scopeLocation(r.preloaded(ctx), loc)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("listing location products: %w", err)
	}
	return products, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := scopeLocation(database.Conn(ctx, r.db).Model(&Product{}), q.LocationFilter)
	if q.BrandID != nil {
		query = query.Where("brand_id = ?", *q.BrandID)
	}
	if q.CategoryID != nil {
		query = query.Where("category_id = ?", *q.CategoryID)
	}
	if term := common.NormalizeText(q.Search); term != "" {
		like := "%" + term + "%"
		query = query.Where("(normalized_name LIKE ? OR code_key LIKE ?)", like, like)
	}
	if q.LowStock {
		query = query.Where("min_stock > 0 AND stock <= min_stock")
	}
	if q.Active != nil {
		query = query.Where("active = ?", *q.Active)
	}

	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}
	err := query.Preload("Brand").Preload("Category").
		Order("name ASC").Offset(q.Offset()).Limit(q.Limit()).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing products: %w", err)
	}
	return products, total, nil
}

// ListAll walks every product in batches, used to rebuild the search index.
func (r *gormRepository) ListAll(ctx context.Context, batch int, fn func([]Product) error) error {
	var products []Product
	result := r.preloaded(ctx).Order("id").FindInBatches(&products, batch, func(tx *gorm.DB, _ int) error {
		return fn(products)
	})
	if result.Error != nil {
		return fmt.Errorf("walking products: %w", result.Error)
	}
	return nil
}

func (r *gormRepository) Update(ctx context.Context, p *Product) error {
	if err := database.Conn(ctx, r.db).Omit("Brand", "Category").Save(p).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	result := database.Conn(ctx, r.db).Model(&Product{}).Where("id = ?", id).Update("stock", stock)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Product not found.")
	}
	return nil
}

func (r *gormRepository) UpdateLimits(ctx context.Context, id uuid.UUID, minStock, maxStock int) error {
	result := database.Conn(ctx, r.db).Model(&Product{}).Where("id = ?", id).
		Updates(map[string]interface{}{"min_stock": minStock, "max_stock": maxStock})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Product not found.")
	}
	return nil
}

func (r *gormRepository) SetActive(ctx context.Context, ids []uuid.UUID, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := database.Conn(ctx, r.db).Model(&Product{}).Where("id IN ?", ids).Update("active", active)
	if result.Error != nil {
		return 0, fmt.Errorf("updating product active flag: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormRepository) FindLowStock(ctx context.Context, loc shared.LocationFilter) ([]Product, error) {
	var products []Product
	query := scopeLocation(r.preloaded(ctx), loc).
		Where("active = ? AND min_stock > 0 AND stock <= min_stock", true)
	if err := query.Order("stock ASC, name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("listing low stock products: %w", err)
	}
	return products, nil
}
