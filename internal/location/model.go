// File: internal/location/model.go
package location

import (
	"ordena_backend/internal/common"

	"github.com/google/uuid"
)

// Warehouse is the central warehouse (bodega central) that supplies branches.
type Warehouse struct {
	common.BaseModel
	Name    string `gorm:"type:varchar(150);not null" json:"name"`
	Address string `gorm:"type:varchar(255);not null" json:"address"`
	RUT     string `gorm:"column:rut;type:varchar(12);uniqueIndex;not null" json:"rut"`
}

func (Warehouse) TableName() string { return "warehouses" }

// Branch is a store (sucursal) supplied by exactly one warehouse.
type Branch struct {
	common.BaseModel
	Name        string     `gorm:"type:varchar(150);not null" json:"name"`
	Address     string     `gorm:"type:varchar(255);not null" json:"address"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	RUT         string     `gorm:"column:rut;type:varchar(12);uniqueIndex;not null" json:"rut"`
	WarehouseID uuid.UUID  `gorm:"type:uuid;not null;index" json:"warehouse_id"`
	Warehouse   *Warehouse `gorm:"foreignKey:WarehouseID;constraint:OnDelete:RESTRICT" json:"warehouse,omitempty"`
}

func (Branch) TableName() string { return "branches" }

// CreateWarehouseRequest is the payload for POST /warehouses.
type CreateWarehouseRequest struct {
	Name    string `json:"name" binding:"required,min=3,max=150"`
	Address string `json:"address" binding:"required,min=3,max=255"`
	RUT     string `json:"rut" binding:"required,rut"`
}

// UpdateWarehouseRequest is the payload for PUT /warehouses/:id. Nil fields are left unchanged.
type UpdateWarehouseRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=3,max=150"`
	Address *string `json:"address" binding:"omitempty,min=3,max=255"`
	RUT     *string `json:"rut" binding:"omitempty,rut"`
}

// CreateBranchRequest is the payload for POST /branches.
type CreateBranchRequest struct {
	Name        string    `json:"name" binding:"required,min=3,max=150"`
	Address     string    `json:"address" binding:"required,min=3,max=255"`
	Description *string   `json:"description" binding:"omitempty,max=500"`
	RUT         string    `json:"rut" binding:"required,rut"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
}

// UpdateBranchRequest is the payload for PUT /branches/:id.
type UpdateBranchRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=3,max=150"`
	Address     *string    `json:"address" binding:"omitempty,min=3,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=500"`
	RUT         *string    `json:"rut" binding:"omitempty,rut"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
}
