// File: internal/courier/repository.go
package courier

import (
	"context"
	"errors"
	"fmt"

	"ordena_backend/internal/common"
	"ordena_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines data access for couriers.
type Repository interface {
	Create(ctx context.Context, c *Courier) error
	FindByID(ctx context.Context, id uuid.UUID) (*Courier, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Courier, error)
	List(ctx context.Context, q ListQuery) ([]Courier, error)
	Update(ctx context.Context, c *Courier) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM courier repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails("Courier not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails("This user already backs a courier.")
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, c *Courier) error {
	if err := database.Conn(ctx, r.db).Create(c).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Courier, error) {
	var c Courier
	if err := database.Conn(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *gormRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*Courier, error) {
	var c Courier
	if err := database.Conn(ctx, r.db).First(&c, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]Courier, error) {
	var couriers []Courier
	query := database.Conn(ctx, r.db)
	if q.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *q.WarehouseID)
	}
	if q.Active != nil {
		query = query.Where("active = ?", *q.Active)
	}
	if err := query.Order("name ASC").Find(&couriers).Error; err != nil {
		return nil, fmt.Errorf("listing couriers: %w", err)
	}
	return couriers, nil
}

func (r *gormRepository) Update(ctx context.Context, c *Courier) error {
	if err := database.Conn(ctx, r.db).Save(c).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := database.Conn(ctx, r.db).Delete(&Courier{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Courier not found.")
	}
	return nil
}

func (r *gormRepository) CountOrderReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	return database.CountReferences(ctx, r.db, id, database.Ref{Table: "orders", Column: "courier_id"})
}
