// File: internal/order/model.go
package order

import (
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/courier"
	"ordena_backend/internal/location"
	"ordena_backend/internal/product"
	"ordena_backend/internal/supplier"

	"github.com/google/uuid"
)

// Kind separates warehouse-to-branch transfers from goods received from suppliers.
type Kind string

const (
	KindTransfer        Kind = "transfer"
	KindSupplierReceipt Kind = "supplier_receipt"
)

// Status of an order.
type Status string

const (
	StatusPending   Status = "pendiente"
	StatusInTransit Status = "en_camino"
	StatusDelivered Status = "entregado"
	StatusCompleted Status = "completado"
	StatusCancelled Status = "cancelado"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusCompleted},
	StatusDelivered: {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInTransit, StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transfer may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OpenStatuses are the statuses of transfers not yet received ("pending transfers").
var OpenStatuses = []Status{StatusPending, StatusInTransit, StatusDelivered}

// Order is a transfer from a warehouse to a branch (pedido) or a receipt of
// goods from a supplier into a warehouse.
type Order struct {
	common.BaseModel
	Kind                  Kind                `gorm:"type:varchar(20);not null;index" json:"kind"`
	Status                Status              `gorm:"type:varchar(15);not null;index" json:"status"`
	Description           *string             `gorm:"type:text" json:"description,omitempty"`
	WarehouseID           uuid.UUID           `gorm:"type:uuid;not null;index" json:"warehouse_id"`
	Warehouse             *location.Warehouse `gorm:"foreignKey:WarehouseID;constraint:OnDelete:RESTRICT" json:"warehouse,omitempty"`
	BranchID              *uuid.UUID          `gorm:"type:uuid;index" json:"branch_id,omitempty"`
	Branch                *location.Branch    `gorm:"foreignKey:BranchID;constraint:OnDelete:RESTRICT" json:"branch,omitempty"`
	CourierID             *uuid.UUID          `gorm:"type:uuid;index" json:"courier_id,omitempty"`
	Courier               *courier.Courier    `gorm:"foreignKey:CourierID;constraint:OnDelete:RESTRICT" json:"courier,omitempty"`
	RequestID             *uuid.UUID          `gorm:"type:uuid;uniqueIndex" json:"request_id,omitempty"`
	SupplierID            *uuid.UUID          `gorm:"type:uuid;index" json:"supplier_id,omitempty"`
	Supplier              *supplier.Supplier  `gorm:"foreignKey:SupplierID;constraint:OnDelete:RESTRICT" json:"supplier,omitempty"`
	CreatedByID           uuid.UUID           `gorm:"type:uuid;not null" json:"created_by_id"`
	DeliveryDate          *time.Time          `json:"delivery_date,omitempty"`
	DispatchNumber        *string             `gorm:"type:varchar(20);uniqueIndex" json:"dispatch_number,omitempty"`
	InvoiceNumber         *string             `gorm:"type:varchar(20);uniqueIndex" json:"invoice_number,omitempty"`
	ReceiptNumber         *string             `gorm:"type:varchar(20);uniqueIndex" json:"receipt_number,omitempty"`
	SupplierDocument      *string             `gorm:"type:varchar(100)" json:"supplier_document,omitempty"`
	SupplierDispatchGuide *string             `gorm:"type:varchar(100)" json:"supplier_dispatch_guide,omitempty"`
	DispatchedAt          *time.Time          `json:"dispatched_at,omitempty"`
	DeliveredAt           *time.Time          `json:"delivered_at,omitempty"`
	ReceivedAt            *time.Time          `json:"received_at,omitempty"`
	ReceivedByID          *uuid.UUID          `gorm:"type:uuid" json:"received_by_id,omitempty"`
	ReceptionConforming   *bool               `json:"reception_conforming,omitempty"`
	ReceptionNote         *string             `gorm:"type:text" json:"reception_note,omitempty"`
	Items                 []Item              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	History               []StatusChange      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Item is one product line of an order. For transfers ProductID is the
// warehouse product.
type Item struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *product.Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity    int              `gorm:"not null" json:"quantity"`
	Description *string          `gorm:"type:varchar(255)" json:"description,omitempty"`
}

func (Item) TableName() string { return "order_items" }

// StatusChange is one entry of an order's status history. From is empty for
// the entry written at creation.
type StatusChange struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	From        Status    `gorm:"column:from_status;type:varchar(15);not null;default:''" json:"from"`
	To          Status    `gorm:"column:to_status;type:varchar(15);not null" json:"to"`
	ChangedByID uuid.UUID `gorm:"type:uuid;not null" json:"changed_by_id"`
	Note        *string   `gorm:"type:text" json:"note,omitempty"`
	ChangedAt   time.Time `gorm:"not null" json:"changed_at"`
}

func (StatusChange) TableName() string { return "order_status_history" }

// --- DTOs ---

type ItemInput struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
	Description *string   `json:"description" binding:"omitempty,max=255"`
}

// CreateOrderRequest is the payload for POST /orders (a manual transfer).
type CreateOrderRequest struct {
	BranchID     uuid.UUID   `json:"branch_id" binding:"required"`
	CourierID    *uuid.UUID  `json:"courier_id"`
	Description  *string     `json:"description" binding:"omitempty,max=1000"`
	DeliveryDate *time.Time  `json:"delivery_date"`
	Items        []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// FromRequestRequest is the payload for POST /orders/from-request.
type FromRequestRequest struct {
	RequestID    uuid.UUID  `json:"request_id" binding:"required"`
	CourierID    *uuid.UUID `json:"courier_id"`
	Description  *string    `json:"description" binding:"omitempty,max=1000"`
	DeliveryDate *time.Time `json:"delivery_date"`
}

// UpdateOrderRequest is the payload for PATCH /orders/:id.
type UpdateOrderRequest struct {
	Description  *string    `json:"description" binding:"omitempty,max=1000"`
	CourierID    *uuid.UUID `json:"courier_id"`
	DeliveryDate *time.Time `json:"delivery_date"`
}

// StatusRequest is the payload for POST /orders/:id/status.
type StatusRequest struct {
	Status Status  `json:"status" binding:"required,oneof=en_camino entregado completado cancelado"`
	Note   *string `json:"note" binding:"omitempty,max=1000"`
}

// ReceptionRequest is the payload for POST /orders/:id/confirm-reception.
type ReceptionRequest struct {
	Conforming *bool   `json:"conforming" binding:"required"`
	Note       *string `json:"note" binding:"omitempty,max=1000"`
}

type ListQuery struct {
	Status        Status
	Kind          Kind
	BranchID      *uuid.UUID
	WarehouseID   *uuid.UUID
	CourierID     *uuid.UUID
	From          *time.Time
	To            *time.Time
	// CourierUserID limits the list to orders of the courier backed by this user.
	CourierUserID *uuid.UUID
	common.PaginationQuery
}

// SupplierReceipt describes goods received from a supplier into a warehouse.
// Items name warehouse products that already exist.
type SupplierReceipt struct {
	WarehouseID           uuid.UUID
	SupplierID            uuid.UUID
	SupplierDocument      *string
	SupplierDispatchGuide *string
	Description           *string
	Items                 []ItemInput
}
