// File: internal/courier/model.go
package courier

import (
	"ordena_backend/internal/common"

	"github.com/google/uuid"
)

// Courier is a delivery person (personal de entrega) attached to a warehouse.
// When backed by a transportista account, UserID links the two so the courier
// gets notified about the orders assigned to them.
type Courier struct {
	common.BaseModel
	Name         string     `gorm:"type:varchar(150);not null" json:"name"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	LicensePlate string     `gorm:"type:varchar(10);not null" json:"license_plate"`
	WarehouseID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"warehouse_id"`
	UserID       *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id,omitempty"`
	Active       bool       `gorm:"not null;default:true" json:"active"`
}

func (Courier) TableName() string { return "couriers" }

// CreateCourierRequest is the payload for POST /couriers.
type CreateCourierRequest struct {
	Name         string     `json:"name" binding:"required,min=3,max=150"`
	Description  *string    `json:"description" binding:"omitempty,max=500"`
	LicensePlate string     `json:"license_plate" binding:"required,plate"`
	WarehouseID  *uuid.UUID `json:"warehouse_id"`
}

// FromUserRequest is the payload for POST /couriers/from-user.
type FromUserRequest struct {
	UserID       uuid.UUID `json:"user_id" binding:"required"`
	LicensePlate string    `json:"license_plate" binding:"required,plate"`
	Description  *string   `json:"description" binding:"omitempty,max=500"`
}

// UpdateCourierRequest is the payload for PATCH /couriers/:id.
type UpdateCourierRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=3,max=150"`
	Description  *string `json:"description" binding:"omitempty,max=500"`
	LicensePlate *string `json:"license_plate" binding:"omitempty,plate"`
	Active       *bool   `json:"active"`
}

// ListQuery filters GET /couriers.
type ListQuery struct {
	WarehouseID *uuid.UUID
	Active      *bool
}

// DeleteResult tells the caller whether the courier was removed or, because
// orders still reference it, only deactivated.
type DeleteResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}
