// File: internal/document/model.go
package document

import (
	"time"
)

// Kind is the prefix of a document number.
type Kind string

const (
	KindDispatchGuide Kind = "REM"
	KindInvoice       Kind = "FAC"
	KindPurchaseOrder Kind = "OC"
	KindReceiptAct    Kind = "ACT"
)

// Kinds lists every numbered document kind.
var Kinds = []Kind{KindDispatchGuide, KindInvoice, KindPurchaseOrder, KindReceiptAct}

// Sequence holds the last number issued for a kind in a month (YYYYMM).
type Sequence struct {
	Kind      Kind      `gorm:"type:varchar(5);primaryKey" json:"kind"`
	Period    string    `gorm:"type:char(6);primaryKey" json:"period"`
	Last      int       `gorm:"not null;default:0" json:"last"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Sequence) TableName() string { return "document_sequences" }

// ValidationResult is the response of GET /documents/validate.
type ValidationResult struct {
	Number string `json:"number"`
	Valid  bool   `json:"valid"`
	Kind   Kind   `json:"kind,omitempty"`
}

// Line is one row of a document's item table.
type Line struct {
	Code        string
	Description string
	Quantity    int
}

// Party is a branch or warehouse printed on a document.
type Party struct {
	Name    string
	Address string
	RUT     string
}

// PurchaseOrder is the internal purchase order (OCI) of an approved request.
type PurchaseOrder struct {
	Number        string
	IssuedAt      time.Time
	Branch        Party
	Requester     string
	RequesterRole string
	Lines         []Line
	Observations  string
	Status        string
	Approver      string
}

// DispatchGuide accompanies goods leaving the warehouse.
type DispatchGuide struct {
	Number        string
	IssuedAt      time.Time
	Destination   Party
	Origin        Party
	Courier       string
	LicensePlate  string
	Lines         []Line
	PurchaseOrder string
	Observations  string
}

// ReceiptAct records what a branch received.
type ReceiptAct struct {
	Number       string
	ReceivedAt   time.Time
	Branch       Party
	Receiver     string
	ReceiverRole string
	Lines        []Line
	Observations string
	Conforming   bool
	Responsible  string
}
