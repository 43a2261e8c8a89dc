// File: internal/intake/model.go
package intake

import (
	"ordena_backend/internal/order"
	"ordena_backend/internal/product"
	"ordena_backend/internal/supplier"

	"github.com/google/uuid"
)

// Action says what to do with an incoming line.
type Action string

const (
	ActionMerge  Action = "merge"
	ActionReview Action = "review"
	ActionCreate Action = "create"
)

// Line is an item read from a supplier document.
type Line struct {
	Code     *string `json:"code,omitempty"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Raw      string  `json:"raw"`
}

// ExtractResult is the response of POST /intake/extract.
type ExtractResult struct {
	FilePath string `json:"file_path"`
	Pages    int    `json:"pages"`
	Lines    []Line `json:"lines"`
}

type MatchLine struct {
	Name     string  `json:"name" binding:"required"`
	Code     *string `json:"code"`
	Brand    *string `json:"brand"`
	Category *string `json:"category"`
	Quantity int     `json:"quantity" binding:"min=0"`
}

// MatchRequest is the payload for POST /intake/match.
type MatchRequest struct {
	WarehouseID uuid.UUID   `json:"warehouse_id" binding:"required"`
	Lines       []MatchLine `json:"lines" binding:"required,min=1,dive"`
}

type MatchResult struct {
	Index           int                      `json:"index"`
	ExactMatch      *product.Product         `json:"exact_match,omitempty"`
	Candidates      []product.SimilarProduct `json:"candidates"`
	SuggestedAction Action                   `json:"suggested_action"`
}

type CommitLine struct {
	Action      Action     `json:"action" binding:"required,oneof=merge create"`
	ProductID   *uuid.UUID `json:"product_id"`
	Name        string     `json:"name"`
	Code        *string    `json:"code"`
	Brand       string     `json:"brand"`
	Category    string     `json:"category"`
	Description *string    `json:"description"`
	Quantity    int        `json:"quantity" binding:"required,min=1"`
	MinStock    *int       `json:"min_stock" binding:"omitempty,min=0"`
	MaxStock    *int       `json:"max_stock" binding:"omitempty,min=0"`
}

// CommitRequest is the payload for POST /intake/commit.
type CommitRequest struct {
	WarehouseID           uuid.UUID                      `json:"warehouse_id" binding:"required"`
	Supplier              supplier.CreateSupplierRequest `json:"supplier" binding:"required"`
	SupplierDocument      *string                        `json:"supplier_document" binding:"omitempty,max=100"`
	SupplierDispatchGuide *string                        `json:"supplier_dispatch_guide" binding:"omitempty,max=100"`
	Observations          *string                        `json:"observations" binding:"omitempty,max=1000"`
	Lines                 []CommitLine                   `json:"lines" binding:"required,min=1,dive"`
}

type CommitResult struct {
	Order    *order.Order       `json:"order"`
	Supplier *supplier.Supplier `json:"supplier"`
	Created  []product.Product  `json:"created"`
	Merged   []product.Product  `json:"merged"`
}
