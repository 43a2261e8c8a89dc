// File: internal/product/model.go
package product

import (
	"ordena_backend/internal/catalog"
	"ordena_backend/internal/common"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
)

// Product is a stock-keeping item held either by a warehouse or by a branch,
// never both. Branch products are copies of warehouse products, matched by code.
type Product struct {
	common.BaseModel
	Name           string            `gorm:"type:varchar(150);not null" json:"name"`
	NormalizedName string            `gorm:"type:varchar(150);not null;index" json:"-"`
	Description    *string           `gorm:"type:text" json:"description,omitempty"`
	InternalCode   string            `gorm:"type:varchar(50);not null" json:"internal_code"`
	CodeKey        string            `gorm:"type:varchar(50);not null;index" json:"-"`
	BrandID        uuid.UUID         `gorm:"type:uuid;not null;index" json:"brand_id"`
	Brand          *catalog.Brand    `gorm:"foreignKey:BrandID;constraint:OnDelete:RESTRICT" json:"brand,omitempty"`
	CategoryID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"category_id"`
	Category       *catalog.Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	WarehouseID    *uuid.UUID        `gorm:"type:uuid;index" json:"warehouse_id,omitempty"`
	BranchID       *uuid.UUID        `gorm:"type:uuid;index" json:"branch_id,omitempty"`
	Stock          int               `gorm:"not null;default:0" json:"stock"`
	MinStock       int               `gorm:"not null;default:0" json:"min_stock"`
	MaxStock       int               `gorm:"not null;default:0" json:"max_stock"`
	Active         bool              `gorm:"not null;default:true;index" json:"active"`
	ImagePath      *string           `gorm:"type:varchar(255)" json:"image_path,omitempty"`
}

func (Product) TableName() string { return "products" }

// Location returns the warehouse or branch that holds the product.
func (p *Product) Location() shared.LocationFilter {
	return shared.LocationFilter{WarehouseID: p.WarehouseID, BranchID: p.BranchID}
}

// IsLowStock reports whether a minimum is configured and the stock reached it.
func (p *Product) IsLowStock() bool {
	return p.MinStock > 0 && p.Stock <= p.MinStock
}

// BrandName returns the preloaded brand name, or "" when not loaded.
func (p *Product) BrandName() string {
	if p.Brand == nil {
		return ""
	}
	return p.Brand.Name
}

// CategoryName returns the preloaded category name, or "" when not loaded.
func (p *Product) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Name
}

// --- DTOs ---

// Input carries the editable product fields. It is used for validation,
// creation and, merged onto the stored product, for updates. Field rules
// live in Validate rather than binding tags so /products/validate can report
// every problem at once.
type Input struct {
	Name         string     `json:"name"`
	InternalCode string     `json:"internal_code"`
	Description  *string    `json:"description"`
	BrandID      *uuid.UUID `json:"brand_id"`
	CategoryID   *uuid.UUID `json:"category_id"`
	WarehouseID  *uuid.UUID `json:"warehouse_id"`
	BranchID     *uuid.UUID `json:"branch_id"`
	Stock        int        `json:"stock"`
	MinStock     int        `json:"min_stock"`
	MaxStock     int        `json:"max_stock"`
}

// Location returns the location named in the input.
func (in Input) Location() shared.LocationFilter {
	return shared.LocationFilter{WarehouseID: in.WarehouseID, BranchID: in.BranchID}
}

// ValidateRequest is the payload for POST /products/validate.
type ValidateRequest struct {
	Input
	ExcludeID *uuid.UUID `json:"exclude_id"`
}

// UpdateProductRequest is the payload for PUT /products/:id. Stock is changed
// through the stock adjustment endpoint only.
type UpdateProductRequest struct {
	Name         *string    `json:"name"`
	InternalCode *string    `json:"internal_code"`
	Description  *string    `json:"description"`
	BrandID      *uuid.UUID `json:"brand_id"`
	CategoryID   *uuid.UUID `json:"category_id"`
	MinStock     *int       `json:"min_stock"`
	MaxStock     *int       `json:"max_stock"`
}

// ValidationResult is returned by POST /products/validate.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors"`
	Warnings []string          `json:"warnings"`
	Similar  []SimilarProduct  `json:"similar,omitempty"`
}

// SimilarRequest is the payload for POST /products/similar.
type SimilarRequest struct {
	Name        string     `json:"name" binding:"required"`
	BrandID     *uuid.UUID `json:"brand_id"`
	CategoryID  *uuid.UUID `json:"category_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	BranchID    *uuid.UUID `json:"branch_id"`
	ExcludeID   *uuid.UUID `json:"exclude_id"`
}

// SimilarProduct is a scored similarity candidate.
type SimilarProduct struct {
	Product *Product `json:"product"`
	Score   int      `json:"score"`
}

// ReactivateRequest is the payload for POST /products/reactivate.
type ReactivateRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,dive"`
}

// ListQuery filters GET /products.
type ListQuery struct {
	shared.LocationFilter
	BrandID    *uuid.UUID
	CategoryID *uuid.UUID
	Search     string
	LowStock   bool
	Active     *bool
	common.PaginationQuery
}

// QRPayload is one entry of GET /products/qr-list: the text encoded in the
// product's QR label and what the label prints next to it.
type QRPayload struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	InternalCode string    `json:"internal_code"`
	Payload      string    `json:"payload"`
}
