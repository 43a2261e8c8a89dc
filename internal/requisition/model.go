// File: internal/requisition/model.go
package requisition

import (
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/location"
	"ordena_backend/internal/product"

	"github.com/google/uuid"
)

// Status of a request.
type Status string

const (
	StatusPending  Status = "pendiente"
	StatusApproved Status = "aprobada"
	StatusDenied   Status = "denegada"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusDenied
}

// Request is a branch's request for goods from its warehouse (solicitud).
// Number is the internal purchase order number, assigned on approval.
type Request struct {
	common.BaseModel
	Number       *string             `gorm:"type:varchar(20);uniqueIndex" json:"number,omitempty"`
	BranchID     uuid.UUID           `gorm:"type:uuid;not null;index" json:"branch_id"`
	Branch       *location.Branch    `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT" json:"branch,omitempty"`
	WarehouseID  uuid.UUID           `gorm:"type:uuid;not null;index" json:"warehouse_id"`
	Warehouse    *location.Warehouse `gorm:"foreignKey:WarehouseID;constraint:OnDelete:RESTRICT" json:"warehouse,omitempty"`
	RequesterID  uuid.UUID           `gorm:"type:uuid;not null;index" json:"requester_id"`
	Status       Status              `gorm:"type:varchar(15);not null;default:'pendiente';index" json:"status"`
	Observation  *string             `gorm:"type:text" json:"observation,omitempty"`
	DecisionNote *string             `gorm:"type:text" json:"decision_note,omitempty"`
	DecidedByID  *uuid.UUID          `gorm:"type:uuid" json:"decided_by_id,omitempty"`
	DecidedAt    *time.Time          `json:"decided_at,omitempty"`
	Archived     bool                `gorm:"not null;default:false;index" json:"archived"`
	Items        []Item              `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Request) TableName() string { return "requests" }

// Item is one requested product.
type Item struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID        `gorm:"type:uuid;not null;index" json:"request_id"`
	ProductID uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *product.Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  int              `gorm:"not null" json:"quantity"`
	Note      *string          `gorm:"type:varchar(255)" json:"note,omitempty"`
}

func (Item) TableName() string { return "request_items" }

// --- DTOs ---

type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
	Note      *string   `json:"note" binding:"omitempty,max=255"`
}

// CreateRequest is the payload for POST /requests. Branch staff always
// request for their own branch; admins must name it.
type CreateRequest struct {
	BranchID    *uuid.UUID  `json:"branch_id"`
	Observation *string     `json:"observation" binding:"omitempty,max=1000"`
	Items       []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// DecideRequest is the payload for PATCH /requests/:id.
type DecideRequest struct {
	Status Status  `json:"status" binding:"required,oneof=aprobada denegada"`
	Note   *string `json:"note" binding:"omitempty,max=1000"`
}

type ArchiveRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// ArchiveResult reports how many requests were archived; pending requests
// and those out of the caller's reach are skipped.
type ArchiveResult struct {
	Archived int64 `json:"archived"`
	Skipped  int   `json:"skipped"`
}

type ListQuery struct {
	Status      Status
	BranchID    *uuid.UUID
	WarehouseID *uuid.UUID
	Archived    *bool
	common.PaginationQuery
}
