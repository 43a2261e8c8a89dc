// File: internal/document/render.go
package document

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	marginLeft  = 14.0
	lineHeight  = 8.0
	tableWidth  = 182.0
	defaultNote = "Ninguna"
	noValue     = "-"
	creatorName = "Ordena"
)

// Renderer draws Ordena documents as A4 PDFs.
type Renderer struct {
	loc      *time.Location
	approver string
}

// NewRenderer creates a Renderer dating documents in loc. approver is printed
// on purchase orders whose request has no recorded decision maker.
func NewRenderer(loc *time.Location, approver string) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	if approver == "" {
		approver = "Sistema OCI Digital"
	}
	return &Renderer{loc: loc, approver: approver}
}

// page wraps an fpdf document with the helpers every layout uses.
type page struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *Renderer) newPage(title string, issued time.Time) *page {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator(creatorName, true)
	pdf.SetCreationDate(issued)
	pdf.SetMargins(marginLeft, 14, marginLeft)
	pdf.AddPage()
	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, p.tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 11)
	return p
}

func (p *page) field(label, value string) {
	if value == "" {
		value = noValue
	}
	p.pdf.CellFormat(0, lineHeight, p.tr(label+": "+value), "", 1, "L", false, 0, "")
}

func (p *page) table(quantityHeader string, lines []Line) {
	widths := []float64{40, 107, 35}
	headers := []string{"Código", "Descripción", quantityHeader}

	p.pdf.Ln(2)
	p.pdf.SetFont("Helvetica", "B", 10)
	p.pdf.SetFillColor(41, 128, 185)
	p.pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		p.pdf.CellFormat(widths[i], 7, p.tr(h), "1", 0, "C", true, 0, "")
	}
	p.pdf.Ln(-1)

	p.pdf.SetFont("Helvetica", "", 10)
	p.pdf.SetTextColor(0, 0, 0)
	for i, l := range lines {
		code := l.Code
		if code == "" {
			code = strconv.Itoa(i + 1)
		}
		p.pdf.CellFormat(widths[0], 7, p.tr(code), "1", 0, "L", false, 0, "")
		p.pdf.CellFormat(widths[1], 7, p.tr(truncate(l.Description, 60)), "1", 0, "L", false, 0, "")
		p.pdf.CellFormat(widths[2], 7, strconv.Itoa(l.Quantity), "1", 0, "R", false, 0, "")
		p.pdf.Ln(-1)
	}
	p.pdf.Ln(4)
	p.pdf.SetFont("Helvetica", "", 11)
}

func (p *page) paragraph(label, value string) {
	if value == "" {
		value = defaultNote
	}
	p.pdf.MultiCell(tableWidth, lineHeight, p.tr(label+": "+value), "", "L", false)
}

func (p *page) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (r *Renderer) date(t time.Time) string {
	return t.In(r.loc).Format("02-01-2006 15:04")
}

// PurchaseOrder renders an internal purchase order (OCI).
func (r *Renderer) PurchaseOrder(doc PurchaseOrder) ([]byte, error) {
	p := r.newPage("Orden de Compra Interna (OCI)", doc.IssuedAt)
	p.field("N° OCI", doc.Number)
	p.field("Fecha de emisión", r.date(doc.IssuedAt))
	p.field("Sucursal solicitante", doc.Branch.Name)
	p.field("Dirección", doc.Branch.Address)
	p.field("RUT", doc.Branch.RUT)
	p.field("Persona solicitante", doc.Requester)
	p.field("Cargo", doc.RequesterRole)
	p.table("Cantidad solicitada", doc.Lines)
	p.paragraph("Observaciones", doc.Observations)
	p.field("Estado de la OCI", doc.Status)
	approver := doc.Approver
	if approver == "" {
		approver = r.approver
	}
	p.field("Aprobador", approver)
	return p.bytes()
}

// DispatchGuide renders an internal dispatch guide.
func (r *Renderer) DispatchGuide(doc DispatchGuide) ([]byte, error) {
	p := r.newPage("Guía de Despacho Interna", doc.IssuedAt)
	p.field("N° Guía de Despacho", doc.Number)
	p.field("Fecha de emisión", r.date(doc.IssuedAt))
	p.field("Sucursal de destino", doc.Destination.Name)
	p.field("Dirección sucursal", doc.Destination.Address)
	p.field("Bodega de origen", doc.Origin.Name)
	p.field("Dirección bodega", doc.Origin.Address)
	p.field("Responsable del despacho", doc.Courier)
	p.field("Patente vehículo", doc.LicensePlate)
	p.field("Tipo de traslado", "Interno")
	p.table("Cantidad despachada", doc.Lines)
	p.field("N° OCI asociada", doc.PurchaseOrder)
	p.paragraph("Observaciones", doc.Observations)
	p.pdf.Ln(6)
	p.field("Confirmación de salida", "____________________________")
	return p.bytes()
}

// ReceiptAct renders a delivery and receipt act.
func (r *Renderer) ReceiptAct(doc ReceiptAct) ([]byte, error) {
	p := r.newPage("Acta de Entrega / Recepción", doc.ReceivedAt)
	p.field("N° de Acta", doc.Number)
	p.field("Fecha de recepción", r.date(doc.ReceivedAt))
	p.field("Sucursal receptora", doc.Branch.Name)
	p.field("Dirección", doc.Branch.Address)
	p.field("Persona que recibe", doc.Receiver)
	p.field("Cargo", doc.ReceiverRole)
	p.table("Cantidad recibida", doc.Lines)
	p.paragraph("Observaciones", doc.Observations)
	conformity := "No conforme"
	if doc.Conforming {
		conformity = "Recibido conforme"
	}
	p.field("Conformidad de recepción", conformity)
	p.pdf.Ln(6)
	p.field("Firma / Responsable de recepción", doc.Responsible)
	return p.bytes()
}
