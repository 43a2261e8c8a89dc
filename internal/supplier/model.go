// File: internal/supplier/model.go
package supplier

import (
	"ordena_backend/internal/common"
)

// Supplier is an external vendor (proveedor) whose deliveries enter a warehouse.
type Supplier struct {
	common.BaseModel
	Name         string  `gorm:"type:varchar(150);not null" json:"name"`
	BusinessName string  `gorm:"type:varchar(200);not null" json:"business_name"`
	RUT          string  `gorm:"column:rut;type:varchar(12);uniqueIndex;not null" json:"rut"`
	Email        *string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone        *string `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Address      *string `gorm:"type:varchar(255)" json:"address,omitempty"`
	ContactName  *string `gorm:"type:varchar(150)" json:"contact_name,omitempty"`
}

func (Supplier) TableName() string { return "suppliers" }

// CreateSupplierRequest is the payload for POST /suppliers and the supplier
// block of an intake commit.
type CreateSupplierRequest struct {
	Name         string  `json:"name" binding:"required,min=2,max=150"`
	BusinessName string  `json:"business_name" binding:"required,min=2,max=200"`
	RUT          string  `json:"rut" binding:"required,rut"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone" binding:"omitempty,max=30"`
	Address      *string `json:"address" binding:"omitempty,max=255"`
	ContactName  *string `json:"contact_name" binding:"omitempty,max=150"`
}

// UpdateSupplierRequest is the payload for PUT /suppliers/:id.
type UpdateSupplierRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=2,max=150"`
	BusinessName *string `json:"business_name" binding:"omitempty,min=2,max=200"`
	RUT          *string `json:"rut" binding:"omitempty,rut"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone" binding:"omitempty,max=30"`
	Address      *string `json:"address" binding:"omitempty,max=255"`
	ContactName  *string `json:"contact_name" binding:"omitempty,max=150"`
}

// ListQuery filters GET /suppliers.
type ListQuery struct {
	Search string `form:"q"`
	common.PaginationQuery
}
