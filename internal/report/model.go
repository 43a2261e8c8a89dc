// File: internal/report/model.go
package report

import (
	"encoding/json"
	"time"

	"ordena_backend/internal/common"

	"github.com/google/uuid"
)

// Module is the area of the system a report covers.
type Module string

const (
	ModuleInventory Module = "inventario"
	ModuleOrders    Module = "pedidos"
	ModuleRequests  Module = "solicitudes"
	ModuleGeneral   Module = "general"
)

func (m Module) Valid() bool {
	switch m {
	case ModuleInventory, ModuleOrders, ModuleRequests, ModuleGeneral:
		return true
	}
	return false
}

// Report (informe) is a stored snapshot of figures, generated or uploaded.
type Report struct {
	common.BaseModel
	Title       string          `gorm:"type:varchar(200);not null" json:"title"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	Module      Module          `gorm:"type:varchar(20);not null;index" json:"module"`
	Content     json.RawMessage `gorm:"type:jsonb" json:"content"`
	FileURL     *string         `gorm:"type:varchar(500)" json:"file_url,omitempty"`
	GeneratedAt time.Time       `gorm:"not null;index" json:"generated_at"`
	UserID      *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	OrderID     *uuid.UUID      `gorm:"type:uuid;index" json:"order_id,omitempty"`
	ProductID   *uuid.UUID      `gorm:"type:uuid;index" json:"product_id,omitempty"`
}

func (Report) TableName() string { return "reports" }

// CreateReportRequest is the payload for POST /reports.
type CreateReportRequest struct {
	Title       string          `json:"title" binding:"required,min=3,max=200"`
	Description *string         `json:"description" binding:"omitempty,max=2000"`
	Module      Module          `json:"module" binding:"required,oneof=inventario pedidos solicitudes general"`
	Content     json.RawMessage `json:"content"`
	FileURL     *string         `json:"file_url" binding:"omitempty,url,max=500"`
	OrderID     *uuid.UUID      `json:"order_id"`
	ProductID   *uuid.UUID      `json:"product_id"`
}

// UpdateReportRequest is the payload for PATCH /reports/:id.
type UpdateReportRequest struct {
	Title       *string         `json:"title" binding:"omitempty,min=3,max=200"`
	Description *string         `json:"description" binding:"omitempty,max=2000"`
	Content     json.RawMessage `json:"content"`
	FileURL     *string         `json:"file_url" binding:"omitempty,url,max=500"`
}

// GenerateRequest is the payload for POST /reports/generate.
type GenerateRequest struct {
	Module      Module     `json:"module" binding:"required,oneof=inventario pedidos solicitudes general"`
	Title       *string    `json:"title" binding:"omitempty,min=3,max=200"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	BranchID    *uuid.UUID `json:"branch_id"`
}

type ListQuery struct {
	Module Module
	// UserID limits the list to the reports of one author.
	UserID *uuid.UUID
	common.PaginationQuery
}

type CleanupResult struct {
	Deleted int64 `json:"deleted"`
}
