// File: internal/user/repository.go
package user

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

// Repository defines the interface for user data operations.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	Update(ctx context.Context, user *User) error
	List(ctx context.Context, q ListQuery) ([]User, int64, error)
	FindActive(ctx context.Context, role string, warehouseID, branchID *uuid.UUID) ([]User, error)
	CountActiveAdmins(ctx context.Context) (int64, error)
	FindLegacyPasswords(ctx context.Context) ([]User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound.WithDetails("User not found.")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConflict.WithDetails("User with this email or RUT already exists.")
	}
	return err
}

// Create inserts a new user record into the database.
func (r *gormRepository) Create(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := database.Conn(ctx, r.db).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

// FindByEmail retrieves a user by their email address.
func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if err := database.Conn(ctx, r.db).Where("email = ?", normalizedEmail).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// FindByID retrieves a user by their ID.
func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []User
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("finding users by id: %w", err)
	}
	return users, nil
}

// Update modifies an existing user record in the database.
func (r *gormRepository) Update(ctx context.Context, user *User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := database.Conn(ctx, r.db).Save(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *gormRepository) List(ctx context.Context, q ListQuery) ([]User, int64, error) {
	query := database.Conn(ctx, r.db).Model(&User{})
	if q.Role != "" {
		query = query.Where("role = ?", q.Role)
	}
	if q.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *q.WarehouseID)
	}
	if q.BranchID != nil {
		query = query.Where("branch_id = ?", *q.BranchID)
	}
	if q.Active != nil {
		query = query.Where("active = ?", *q.Active)
	}
	if q.EmployeesOf != nil {
		branches := database.Conn(ctx, r.db).Table("branches").Select("id").Where("warehouse_id = ?", *q.EmployeesOf)
		query = query.Where("warehouse_id = ? OR branch_id IN (?)", *q.EmployeesOf, branches)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting users: %w", err)
	}
	var users []User
	err := query.Order("name ASC").Offset(q.Offset()).Limit(q.Limit()).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing users: %w", err)
	}
	return users, total, nil
}

// FindActive returns active users, optionally narrowed by role and location.
func (r *gormRepository) FindActive(ctx context.Context, role string, warehouseID, branchID *uuid.UUID) ([]User, error) {
	query := database.Conn(ctx, r.db).Where("active = ?", true)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("finding active users: %w", err)
	}
	return users, nil
}

func (r *gormRepository) CountActiveAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&User{}).
		Where("role = ? AND active = ?", common.RoleAdmin, true).
		Count(&n).Error
	return n, err
}

// FindLegacyPasswords returns users whose stored password is not a bcrypt hash.
func (r *gormRepository) FindLegacyPasswords(ctx context.Context) ([]User, error) {
	var users []User
	if err := database.Conn(ctx, r.db).Where("password_hash NOT LIKE ?", "$2%").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("finding legacy passwords: %w", err)
	}
	return users, nil
}

func (r *gormRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return database.Conn(ctx, r.db).Model(&User{}).Where("id = ?", id).Update("password_hash", hash).Error
}
