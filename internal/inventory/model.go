// File: internal/inventory/model.go
package inventory

import (
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/product"
	"ordena_backend/internal/shared"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	TypeEntrada MovementType = "entrada"
	TypeSalida  MovementType = "salida"
	TypeAjuste  MovementType = "ajuste"
)

func (t MovementType) Valid() bool {
	switch t {
	case TypeEntrada, TypeSalida, TypeAjuste:
		return true
	}
	return false
}

// Movement is one change of a product's stock. Quantity is positive for
// entradas and salidas and a signed delta for ajustes.
type Movement struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_movement_product_created" json:"product_id"`
	Product    *product.Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product,omitempty"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Type       MovementType     `gorm:"type:varchar(10);not null;index" json:"type"`
	Quantity   int              `gorm:"not null" json:"quantity"`
	StockAfter int              `gorm:"not null" json:"stock_after"`
	Reason     string           `gorm:"type:varchar(255);not null" json:"reason"`
	OrderID    *uuid.UUID       `gorm:"type:uuid;index" json:"order_id,omitempty"`
	CreatedAt  time.Time        `gorm:"not null;index:idx_movement_product_created" json:"created_at"`
}

func (Movement) TableName() string { return "inventory_movements" }

// Change is a stock change requested by a workflow. Entradas and salidas carry
// a positive Quantity; ajustes carry the Target stock and the delta is taken
// from the locked row.
type Change struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Type      MovementType
	Quantity  int
	Target    int
	Reason    string
	OrderID   *uuid.UUID
}

// Bucket counts the movements of one type and the units they moved.
type Bucket struct {
	Count int64 `json:"count"`
	Units int64 `json:"units"`
}

// Statistics summarises a set of movements. Ajuste units are the net signed delta.
type Statistics struct {
	Total                int64   `json:"total"`
	Entradas             Bucket  `json:"entradas"`
	Salidas              Bucket  `json:"salidas"`
	Ajustes              Bucket  `json:"ajustes"`
	Balance              int64   `json:"balance"`
	AvgMovementsPerMonth float64 `json:"avg_movements_per_month"`
}

// add accumulates one bucket and refreshes the derived fields.
func (s *Statistics) add(t MovementType, count, units int64) {
	switch t {
	case TypeEntrada:
		s.Entradas.Count += count
		s.Entradas.Units += units
	case TypeSalida:
		s.Salidas.Count += count
		s.Salidas.Units += units
	case TypeAjuste:
		s.Ajustes.Count += count
		s.Ajustes.Units += units
	default:
		return
	}
	s.Total += count
	s.Balance = s.Entradas.Units - s.Salidas.Units + s.Ajustes.Units
}

// --- DTOs ---

// AdjustStockRequest is the payload for PUT /products/:id/stock.
type AdjustStockRequest struct {
	Stock    *int   `json:"stock" binding:"required,min=0"`
	MinStock *int   `json:"min_stock" binding:"omitempty,min=0"`
	MaxStock *int   `json:"max_stock" binding:"omitempty,min=0"`
	Reason   string `json:"reason" binding:"required,min=3,max=255"`
}

// AdjustResult is the product after an adjustment and the movement written, if any.
type AdjustResult struct {
	Product  *product.Product `json:"product"`
	Movement *Movement        `json:"movement,omitempty"`
}

// LocationRef names where a product is held.
type LocationRef struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

func locationOf(p *product.Product) LocationRef {
	if p.BranchID != nil {
		return LocationRef{Type: "branch", ID: *p.BranchID}
	}
	if p.WarehouseID != nil {
		return LocationRef{Type: "warehouse", ID: *p.WarehouseID}
	}
	return LocationRef{}
}

// HistoryProduct is the product header of a history response.
type HistoryProduct struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	InternalCode string      `json:"internal_code"`
	Brand        string      `json:"brand"`
	Category     string      `json:"category"`
	Location     LocationRef `json:"location"`
	Stock        int         `json:"stock"`
	MinStock     int         `json:"min_stock"`
	MaxStock     int         `json:"max_stock"`
	Active       bool        `json:"active"`
}

// History is the response of GET /products/:id/history.
type History struct {
	Product    HistoryProduct `json:"product"`
	Timeline   []Movement     `json:"timeline"`
	Statistics Statistics     `json:"statistics"`
}

// MovementQuery filters GET /inventory/movements.
type MovementQuery struct {
	shared.LocationFilter
	ProductID *uuid.UUID
	Type      MovementType
	From      *time.Time
	To        *time.Time
	common.PaginationQuery
}

// ProductActivity is one entry of GET /inventory/recent-activity.
type ProductActivity struct {
	Product      *product.Product `json:"product"`
	Statistics   Statistics       `json:"statistics"`
	LastMovement *Movement        `json:"last_movement"`
	Recent       []Movement       `json:"recent_movements"`
}
