// File: internal/user/model.go
package user

import (
	"time"

	"ordena_backend/internal/common"

	"github.com/google/uuid"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	RUT          string     `gorm:"column:rut;type:varchar(12);uniqueIndex;not null"`
	Name         string     `gorm:"type:varchar(150);not null"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	Role         string     `gorm:"type:varchar(20);not null;index"`
	WarehouseID  *uuid.UUID `gorm:"type:uuid;index"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index"`
	Active       bool       `gorm:"not null;default:true"`
	DeviceToken  *string    `gorm:"type:text"`
	LastLoginAt  *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

func (u *User) GetID() uuid.UUID           { return u.ID }
func (u *User) GetEmail() string           { return u.Email }
func (u *User) GetRole() string            { return u.Role }
func (u *User) GetWarehouseID() *uuid.UUID { return u.WarehouseID }
func (u *User) GetBranchID() *uuid.UUID    { return u.BranchID }

// --- DTOs ---

// CreateUserRequest is used by administrators (POST /users) and, with the
// admin role excluded, by public registration.
type CreateUserRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=150"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"omitempty,min=8,max=72"` // bcrypt max is 72 bytes
	RUT         string     `json:"rut" binding:"required,rut"`
	Role        string     `json:"role" binding:"required,oneof=admin bodega sucursal transportista"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	BranchID    *uuid.UUID `json:"branch_id"`
}

// UpdateUserRequest is the payload for PATCH /users/:id. An empty password
// leaves the stored hash unchanged.
type UpdateUserRequest struct {
	Name          *string    `json:"name" binding:"omitempty,min=3,max=150"`
	Email         *string    `json:"email" binding:"omitempty,email"`
	Password      *string    `json:"password" binding:"omitempty,max=72"`
	RUT           *string    `json:"rut" binding:"omitempty,rut"`
	Role          *string    `json:"role" binding:"omitempty,oneof=admin bodega sucursal transportista"`
	WarehouseID   *uuid.UUID `json:"warehouse_id"`
	BranchID      *uuid.UUID `json:"branch_id"`
	// ClearLocation drops both location bindings before applying the ones above.
	ClearLocation bool       `json:"clear_location"`
	Active        *bool      `json:"active"`
}

// DeviceTokenRequest registers the FCM token of the caller's device.
type DeviceTokenRequest struct {
	Token string `json:"token" binding:"required,max=4096"`
}

// ListQuery filters GET /users.
type ListQuery struct {
	Role        string
	WarehouseID *uuid.UUID
	BranchID    *uuid.UUID
	Active      *bool
	// EmployeesOf restricts the result to staff of a warehouse and of its branches.
	EmployeesOf *uuid.UUID
	common.PaginationQuery
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	RUT         string     `json:"rut"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	WarehouseID *uuid.UUID `json:"warehouse_id,omitempty"`
	BranchID    *uuid.UUID `json:"branch_id,omitempty"`
	Active      bool       `json:"active"`
	HasDevice   bool       `json:"has_device"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// CreatedUserResponse carries the generated password exactly once.
type CreatedUserResponse struct {
	User              UserResponse `json:"user"`
	TemporaryPassword string       `json:"temporary_password,omitempty"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		RUT:         u.RUT,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		WarehouseID: u.WarehouseID,
		BranchID:    u.BranchID,
		Active:      u.Active,
		HasDevice:   u.DeviceToken != nil && *u.DeviceToken != "",
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
