package receiving

import (
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/shopspring/decimal"
)

// ==================== Requests ====================

// CreateInvoiceRequest carries the header of a paper invoice
type CreateInvoiceRequest struct {
	SupplierID       uuid.UUID       `json:"supplier_id" binding:"required"`
	InvoiceNumber    string          `json:"invoice_number" binding:"required,min=1,max=50"`
	PaymentTerms     string          `json:"payment_terms" binding:"required,oneof=FULLY_PREPAID PARTIAL POST_PAID"`
	QuantityInformed int             `json:"quantity_informed" binding:"required,gt=0"`
	TotalValue       decimal.Decimal `json:"total_value" binding:"required"`
	Urgent           bool            `json:"urgent"`
	Notes            string          `json:"notes" binding:"max=2000"`
}

// LineRequest is one received line
type LineRequest struct {
	Category     string          `json:"category" binding:"required,min=1,max=100"`
	Brand        string          `json:"brand" binding:"max=100"`
	Model        string          `json:"model" binding:"max=100"`
	SerialNumber string          `json:"serial_number" binding:"max=100"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Quantity     int             `json:"quantity" binding:"required,gt=0"`
	New          bool            `json:"new"`
}

// RegisterProductsRequest adds a batch of received lines
type RegisterProductsRequest struct {
	Lines []LineRequest `json:"lines" binding:"dive"`
}

// LineSelectionRequest names lines for defect marking
type LineSelectionRequest struct {
	LineIDs []uuid.UUID `json:"line_ids" binding:"required,min=1"`
}

// InspectProductsRequest is one inspection batch. DefectiveLineIDs may name
// lines of the batch or lines inspected earlier.
type InspectProductsRequest struct {
	LineIDs          []uuid.UUID `json:"line_ids" binding:"required,min=1"`
	DefectiveLineIDs []uuid.UUID `json:"defective_line_ids,omitempty"`
}

// RegisterPaymentRequest is a Finance payment
type RegisterPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Method     string          `json:"method" binding:"required,min=1,max=50"`
	Account    string          `json:"account" binding:"max=100"`
	ReceiptRef string          `json:"receipt_ref" binding:"max=200"`
}

// DisputeRequest carries a rejection or divergence
type DisputeRequest struct {
	Reason string `json:"reason" binding:"required,oneof=VALUE_MISMATCH QUANTITY_MISMATCH MISSING_DOCUMENT WRONG_SUPPLIER OTHER"`
	Note   string `json:"note" binding:"max=1000"`
}

// ResubmitRequest re-submits a divergent invoice
type ResubmitRequest struct {
	Note string `json:"note" binding:"max=1000"`
}

// AnnotateRequest edits notes and the urgent flag
type AnnotateRequest struct {
	Notes  string `json:"notes" binding:"max=2000"`
	Urgent bool   `json:"urgent"`
}

// IssueCreditRequest asks for a credit note covering defective lines
type IssueCreditRequest struct {
	LineIDs []uuid.UUID `json:"line_ids" binding:"required,min=1"`
	Memo    string      `json:"memo" binding:"max=500"`
}

// ==================== Responses ====================

// InvoiceResponse is the full invoice view
type InvoiceResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	SupplierID         uuid.UUID                 `json:"supplier_id"`
	SupplierName       string                    `json:"supplier_name,omitempty"`
	InvoiceNumber      string                    `json:"invoice_number"`
	PaymentTerms       string                    `json:"payment_terms"`
	Status             string                    `json:"status"`
	CurrentOwner       string                    `json:"current_owner"`
	QuantityInformed   int                       `json:"quantity_informed"`
	QuantityRegistered int                       `json:"quantity_registered"`
	QuantityInspected  int                       `json:"quantity_inspected"`
	AvailableQuantity  int                       `json:"available_quantity"`
	PercentInspected   decimal.Decimal           `json:"percent_inspected"`
	TotalValue         decimal.Decimal           `json:"total_value"`
	AmountPaid         decimal.Decimal           `json:"amount_paid"`
	OutstandingBalance decimal.Decimal           `json:"outstanding_balance"`
	DaysElapsed        int                       `json:"days_elapsed"`
	Urgent             bool                      `json:"urgent"`
	Notes              string                    `json:"notes,omitempty"`
	Lines              []receiving.ProductLine   `json:"lines"`
	Payments           []receiving.Payment       `json:"payments"`
	Alerts             []receiving.Alert         `json:"alerts"`
	Timeline           []receiving.TimelineEntry `json:"timeline"`
	Version            int                       `json:"version"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	FinalizedAt        *time.Time                `json:"finalized_at,omitempty"`
}

// QueueItemResponse is one row of a department queue
type QueueItemResponse struct {
	ID                 uuid.UUID       `json:"id"`
	SupplierID         uuid.UUID       `json:"supplier_id"`
	SupplierName       string          `json:"supplier_name,omitempty"`
	InvoiceNumber      string          `json:"invoice_number"`
	PaymentTerms       string          `json:"payment_terms"`
	Status             string          `json:"status"`
	QuantityInformed   int             `json:"quantity_informed"`
	QuantityRegistered int             `json:"quantity_registered"`
	QuantityInspected  int             `json:"quantity_inspected"`
	PercentInspected   decimal.Decimal `json:"percent_inspected"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	DaysElapsed        int             `json:"days_elapsed"`
	OpenAlerts         int             `json:"open_alerts"`
	Urgent             bool            `json:"urgent"`
	CreatedAt          time.Time       `json:"created_at"`
}

// CreditNoteResponse is an issued credit note
type CreditNoteResponse struct {
	ID         uuid.UUID       `json:"id"`
	SupplierID uuid.UUID       `json:"supplier_id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	Memo       string          `json:"memo,omitempty"`
	LineIDs    []uuid.UUID     `json:"line_ids"`
	IssuedAt   time.Time       `json:"issued_at"`
}

// ToInvoiceResponse converts an invoice into its API view as of now
func ToInvoiceResponse(inv *receiving.Invoice, supplierName string, now time.Time) InvoiceResponse {
	return InvoiceResponse{
		ID:                 inv.ID,
		SupplierID:         inv.SupplierID,
		SupplierName:       supplierName,
		InvoiceNumber:      inv.InvoiceNumber,
		PaymentTerms:       string(inv.PaymentTerms),
		Status:             string(inv.Status),
		CurrentOwner:       string(inv.CurrentOwner),
		QuantityInformed:   inv.QuantityInformed,
		QuantityRegistered: inv.QuantityRegistered(),
		QuantityInspected:  inv.QuantityInspected(),
		AvailableQuantity:  inv.AvailableQuantity(),
		PercentInspected:   inv.PercentInspected(),
		TotalValue:         inv.TotalValue,
		AmountPaid:         inv.AmountPaid(),
		OutstandingBalance: inv.OutstandingBalance(),
		DaysElapsed:        receiving.DaysElapsed(inv.CreatedAt, now),
		Urgent:             inv.Urgent,
		Notes:              inv.Notes,
		Lines:              inv.Lines,
		Payments:           inv.Payments,
		Alerts:             inv.Alerts,
		Timeline:           inv.Timeline,
		Version:            inv.GetVersion(),
		CreatedAt:          inv.CreatedAt,
		UpdatedAt:          inv.UpdatedAt,
		FinalizedAt:        inv.FinalizedAt,
	}
}

// ToQueueItemResponse converts an invoice into a queue row
func ToQueueItemResponse(inv *receiving.Invoice, supplierName string, now time.Time) QueueItemResponse {
	return QueueItemResponse{
		ID:                 inv.ID,
		SupplierID:         inv.SupplierID,
		SupplierName:       supplierName,
		InvoiceNumber:      inv.InvoiceNumber,
		PaymentTerms:       string(inv.PaymentTerms),
		Status:             string(inv.Status),
		QuantityInformed:   inv.QuantityInformed,
		QuantityRegistered: inv.QuantityRegistered(),
		QuantityInspected:  inv.QuantityInspected(),
		PercentInspected:   inv.PercentInspected(),
		OutstandingBalance: inv.OutstandingBalance(),
		DaysElapsed:        receiving.DaysElapsed(inv.CreatedAt, now),
		OpenAlerts:         len(inv.OpenAlerts()),
		Urgent:             inv.Urgent,
		CreatedAt:          inv.CreatedAt,
	}
}

// ToCreditNoteResponse converts a credit note
func ToCreditNoteResponse(note *receiving.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:         note.ID(),
		SupplierID: note.SupplierID(),
		InvoiceID:  note.InvoiceID(),
		Amount:     note.Amount(),
		Memo:       note.Memo(),
		LineIDs:    note.LineIDs(),
		IssuedAt:   note.IssuedAt(),
	}
}

func (r LineRequest) toInput() receiving.LineInput {
	return receiving.LineInput{
		Category:     r.Category,
		Brand:        r.Brand,
		Model:        r.Model,
		SerialNumber: r.SerialNumber,
		UnitCost:     r.UnitCost,
		Quantity:     r.Quantity,
		New:          r.New,
	}
}

func (r CreateInvoiceRequest) toParams() receiving.CreateInvoiceParams {
	return receiving.CreateInvoiceParams{
		SupplierID:       r.SupplierID,
		InvoiceNumber:    r.InvoiceNumber,
		PaymentTerms:     receiving.PaymentTerms(r.PaymentTerms),
		QuantityInformed: r.QuantityInformed,
		TotalValue:       r.TotalValue,
		Urgent:           r.Urgent,
		Notes:            r.Notes,
	}
}
