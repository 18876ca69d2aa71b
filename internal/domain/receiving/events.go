package receiving

import (
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeInvoice    = "Invoice"
	AggregateTypeCreditNote = "CreditNote"
)

// Event type constants
const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"
	EventTypeProductsRegistered   = "ProductsRegistered"
	EventTypeProductsInspected    = "ProductsInspected"
	EventTypePaymentRegistered    = "PaymentRegistered"
	EventTypeInvoiceRejected      = "InvoiceRejected"
	EventTypeInvoiceFinalized     = "InvoiceFinalized"
	EventTypeCreditNoteIssued     = "CreditNoteIssued"
)

// InvoiceCreatedEvent is raised when Warehouse opens a new invoice
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	SupplierID       uuid.UUID       `json:"supplier_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	PaymentTerms     PaymentTerms    `json:"payment_terms"`
	TotalValue       decimal.Decimal `json:"total_value"`
	QuantityInformed int             `json:"quantity_informed"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice, at time.Time) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:        inv.ID,
		SupplierID:       inv.SupplierID,
		InvoiceNumber:    inv.InvoiceNumber,
		PaymentTerms:     inv.PaymentTerms,
		TotalValue:       inv.TotalValue,
		QuantityInformed: inv.QuantityInformed,
	}
}

// InvoiceStatusChangedEvent is raised for every applied transition
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID     `json:"invoice_id"`
	Trigger    Trigger       `json:"trigger"`
	FromStatus InvoiceStatus `json:"from_status"`
	ToStatus   InvoiceStatus `json:"to_status"`
	FromOwner  Department    `json:"from_owner"`
	ToOwner    Department    `json:"to_owner"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, trigger Trigger, from InvoiceStatus, fromOwner Department, at time.Time) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:       inv.ID,
		Trigger:         trigger,
		FromStatus:      from,
		ToStatus:        inv.Status,
		FromOwner:       fromOwner,
		ToOwner:         inv.CurrentOwner,
	}
}

// HandedOff reports whether the transition moved the invoice to another queue
func (e *InvoiceStatusChangedEvent) HandedOff() bool {
	return e.FromOwner != e.ToOwner
}

// ProductsRegisteredEvent is raised when lines are added
type ProductsRegisteredEvent struct {
	shared.BaseDomainEvent
	InvoiceID          uuid.UUID   `json:"invoice_id"`
	LineIDs            []uuid.UUID `json:"line_ids"`
	QuantityAdded      int         `json:"quantity_added"`
	QuantityRegistered int         `json:"quantity_registered"`
}

// NewProductsRegisteredEvent creates a new ProductsRegisteredEvent
func NewProductsRegisteredEvent(inv *Invoice, lineIDs []uuid.UUID, added int, at time.Time) *ProductsRegisteredEvent {
	return &ProductsRegisteredEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeProductsRegistered, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:          inv.ID,
		LineIDs:            lineIDs,
		QuantityAdded:      added,
		QuantityRegistered: inv.QuantityRegistered(),
	}
}

// ProductsInspectedEvent is raised when lines pass the conference
type ProductsInspectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID         uuid.UUID   `json:"invoice_id"`
	LineIDs           []uuid.UUID `json:"line_ids"`
	QuantityInspected int         `json:"quantity_inspected"`
}

// NewProductsInspectedEvent creates a new ProductsInspectedEvent
func NewProductsInspectedEvent(inv *Invoice, lineIDs []uuid.UUID, at time.Time) *ProductsInspectedEvent {
	return &ProductsInspectedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeProductsInspected, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:         inv.ID,
		LineIDs:           lineIDs,
		QuantityInspected: inv.QuantityInspected(),
	}
}

// PaymentRegisteredEvent is raised for every ledger entry
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	InvoiceID          uuid.UUID       `json:"invoice_id"`
	PaymentID          uuid.UUID       `json:"payment_id"`
	Amount             decimal.Decimal `json:"amount"`
	Kind               PaymentKind     `json:"kind"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// NewPaymentRegisteredEvent creates a new PaymentRegisteredEvent
func NewPaymentRegisteredEvent(inv *Invoice, payment *Payment, at time.Time) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePaymentRegistered, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:          inv.ID,
		PaymentID:          payment.ID,
		Amount:             payment.Amount,
		Kind:               payment.Kind,
		OutstandingBalance: inv.OutstandingBalance(),
	}
}

// InvoiceRejectedEvent is raised when an invoice is sent back to Warehouse
type InvoiceRejectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Reason    RejectionReason `json:"reason"`
	Note      string          `json:"note,omitempty"`
	RaisedBy  Department      `json:"raised_by"`
}

// NewInvoiceRejectedEvent creates a new InvoiceRejectedEvent
func NewInvoiceRejectedEvent(inv *Invoice, reason RejectionReason, note string, by Department, at time.Time) *InvoiceRejectedEvent {
	return &InvoiceRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceRejected, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:       inv.ID,
		Reason:          reason,
		Note:            note,
		RaisedBy:        by,
	}
}

// InvoiceFinalizedEvent is raised when both the payment and conference tracks close
type InvoiceFinalizedEvent struct {
	shared.BaseDomainEvent
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	QuantityInspected int             `json:"quantity_inspected"`
	AvailableQuantity int             `json:"available_quantity"`
}

// NewInvoiceFinalizedEvent creates a new InvoiceFinalizedEvent
func NewInvoiceFinalizedEvent(inv *Invoice, at time.Time) *InvoiceFinalizedEvent {
	return &InvoiceFinalizedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInvoiceFinalized, AggregateTypeInvoice, inv.ID, at),
		InvoiceID:         inv.ID,
		SupplierID:        inv.SupplierID,
		AmountPaid:        inv.AmountPaid(),
		QuantityInspected: inv.QuantityInspected(),
		AvailableQuantity: inv.AvailableQuantity(),
	}
}

// CreditNoteIssuedEvent is raised when a supplier credit is emitted
type CreditNoteIssuedEvent struct {
	shared.BaseDomainEvent
	CreditNoteID uuid.UUID       `json:"credit_note_id"`
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewCreditNoteIssuedEvent creates a new CreditNoteIssuedEvent
func NewCreditNoteIssuedEvent(note *CreditNote) *CreditNoteIssuedEvent {
	return &CreditNoteIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCreditNoteIssued, AggregateTypeCreditNote, note.ID(), note.IssuedAt()),
		CreditNoteID:    note.ID(),
		InvoiceID:       note.InvoiceID(),
		SupplierID:      note.SupplierID(),
		Amount:          note.Amount(),
	}
}
