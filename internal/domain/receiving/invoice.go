package receiving

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Actor is the person performing an operation and the department they act for
type Actor struct {
	Name       string     `json:"name"`
	Department Department `json:"department"`
}

// Validate checks that the actor can perform mutations
func (a Actor) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return shared.NewDomainError(shared.CodeValidation, "Actor name cannot be empty")
	}
	if !a.Department.IsActor() {
		return shared.NewDomainError(shared.CodeValidation, "Actor department must be WAREHOUSE or FINANCE")
	}
	return nil
}

// systemRole marks timeline entries and resolutions written by the workflow itself
const systemRole = "SYSTEM"

// ProductLine is one physically received item (or batch of identical items)
type ProductLine struct {
	ID               uuid.UUID        `json:"id"`
	Category         string           `json:"category"`
	Brand            string           `json:"brand,omitempty"`
	Model            string           `json:"model,omitempty"`
	SerialNumber     string           `json:"serial_number,omitempty"`
	UnitCost         decimal.Decimal  `json:"unit_cost"`
	Quantity         int              `json:"quantity"`
	ReceiptStatus    ReceiptStatus    `json:"receipt_status"`
	InspectionStatus InspectionStatus `json:"inspection_status"`
	New              bool             `json:"new"`
	Defective        bool             `json:"defective"`
	RegisteredAt     time.Time        `json:"registered_at"`
	InspectedAt      *time.Time       `json:"inspected_at,omitempty"`
}

// IsInspected returns true once the line passed the conference
func (l *ProductLine) IsInspected() bool {
	return l.InspectionStatus == InspectionStatusInspected
}

// Cost returns unit cost times quantity
func (l *ProductLine) Cost() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineInput carries the data Warehouse records for a received line
type LineInput struct {
	Category     string
	Brand        string
	Model        string
	SerialNumber string
	UnitCost     decimal.Decimal
	Quantity     int
	New          bool
}

// Validate checks a single line input
func (in LineInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return shared.NewDomainError(shared.CodeValidation, "Line category cannot be empty")
	}
	if in.Quantity <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "Line quantity must be positive")
	}
	if in.UnitCost.IsNegative() {
		return shared.NewDomainError(shared.CodeValidation, "Line unit cost cannot be negative")
	}
	return nil
}

// Payment is one ledger entry; entries are never edited or removed
type Payment struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Account     string          `json:"account"`
	ReceiptRef  *string         `json:"receipt_ref,omitempty"`
	Responsible string          `json:"responsible"`
	Kind        PaymentKind     `json:"kind"`
	PaidAt      time.Time       `json:"paid_at"`
}

// PaymentInput carries what Finance supplies when paying
type PaymentInput struct {
	Amount     decimal.Decimal
	Method     string
	Account    string
	ReceiptRef string
}

// TimelineEntry is an immutable audit record of one state-changing operation
type TimelineEntry struct {
	ID              uuid.UUID        `json:"id"`
	ActorName       string           `json:"actor_name"`
	ActorRole       string           `json:"actor_role"`
	Action          string           `json:"action"`
	Detail          string           `json:"detail,omitempty"`
	FinancialImpact *decimal.Decimal `json:"financial_impact,omitempty"`
	StatusBefore    InvoiceStatus    `json:"status_before,omitempty"`
	StatusAfter     InvoiceStatus    `json:"status_after"`
	At              time.Time        `json:"at"`
}

// Invoice is the aggregate root of the receiving workflow. Lines, payments,
// alerts and timeline entries are owned collections persisted with it.
type Invoice struct {
	shared.BaseAggregateRoot
	SupplierID       uuid.UUID       `json:"supplier_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	PaymentTerms     PaymentTerms    `json:"payment_terms"`
	Status           InvoiceStatus   `json:"status"`
	CurrentOwner     Department      `json:"current_owner"`
	QuantityInformed int             `json:"quantity_informed"`
	TotalValue       decimal.Decimal `json:"total_value"`
	Urgent           bool            `json:"urgent"`
	Notes            string          `json:"notes,omitempty"`
	Lines            []ProductLine   `json:"lines"`
	Payments         []Payment       `json:"payments"`
	Alerts           []Alert         `json:"alerts"`
	Timeline         []TimelineEntry `json:"timeline"`
	FinalizedAt      *time.Time      `json:"finalized_at,omitempty"`
}

// CreateInvoiceParams holds the header data captured from the paper invoice
type CreateInvoiceParams struct {
	SupplierID       uuid.UUID
	InvoiceNumber    string
	TotalValue       decimal.Decimal
	QuantityInformed int
	PaymentTerms     PaymentTerms
	Urgent           bool
	Notes            string
}

// Validate checks the header data
func (p CreateInvoiceParams) Validate() error {
	if p.SupplierID == uuid.Nil {
		return shared.NewDomainError(shared.CodeValidation, "Supplier ID cannot be empty")
	}
	if strings.TrimSpace(p.InvoiceNumber) == "" {
		return shared.NewDomainError(shared.CodeValidation, "Invoice number cannot be empty")
	}
	if len(p.InvoiceNumber) > 50 {
		return shared.NewDomainError(shared.CodeValidation, "Invoice number cannot exceed 50 characters")
	}
	if !p.TotalValue.IsPositive() {
		return shared.NewDomainError(shared.CodeValidation, "Total value must be positive")
	}
	if p.QuantityInformed <= 0 {
		return shared.NewDomainError(shared.CodeValidation, "Informed quantity must be positive")
	}
	if !p.PaymentTerms.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "Invalid payment terms")
	}
	return nil
}

// QuantityRegistered sums the quantities of all registered lines
func (inv *Invoice) QuantityRegistered() int {
	total := 0
	for i := range inv.Lines {
		total += inv.Lines[i].Quantity
	}
	return total
}

// QuantityInspected sums the quantities of inspected lines
func (inv *Invoice) QuantityInspected() int {
	total := 0
	for i := range inv.Lines {
		if inv.Lines[i].IsInspected() {
			total += inv.Lines[i].Quantity
		}
	}
	return total
}

// AvailableQuantity counts inspected units that were not flagged defective
func (inv *Invoice) AvailableQuantity() int {
	total := 0
	for i := range inv.Lines {
		if inv.Lines[i].IsInspected() && !inv.Lines[i].Defective {
			total += inv.Lines[i].Quantity
		}
	}
	return total
}

// PercentInspected returns inspected over informed as a percentage
func (inv *Invoice) PercentInspected() decimal.Decimal {
	if inv.QuantityInformed == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(inv.QuantityInspected())).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(inv.QuantityInformed))).
		Round(2)
}

// AmountPaid sums the ledger
func (inv *Invoice) AmountPaid() decimal.Decimal {
	total := decimal.Zero
	for i := range inv.Payments {
		total = total.Add(inv.Payments[i].Amount)
	}
	return total
}

// OutstandingBalance returns total value minus amount paid
func (inv *Invoice) OutstandingBalance() decimal.Decimal {
	return inv.TotalValue.Sub(inv.AmountPaid())
}

// IsSettled reports whether the outstanding balance is within tolerance of zero
func (inv *Invoice) IsSettled(tolerance decimal.Decimal) bool {
	return inv.OutstandingBalance().LessThanOrEqual(tolerance)
}

// IsConferenceComplete reports whether every informed unit was inspected
func (inv *Invoice) IsConferenceComplete() bool {
	return inv.QuantityInspected() >= inv.QuantityInformed
}

// IsClosed returns true once nobody may mutate the invoice
func (inv *Invoice) IsClosed() bool {
	return inv.CurrentOwner == DepartmentClosed
}

// GetLine returns the line with the given id, or nil
func (inv *Invoice) GetLine(lineID uuid.UUID) *ProductLine {
	for i := range inv.Lines {
		if inv.Lines[i].ID == lineID {
			return &inv.Lines[i]
		}
	}
	return nil
}

// GetAlert returns the alert with the given id, or nil
func (inv *Invoice) GetAlert(alertID uuid.UUID) *Alert {
	for i := range inv.Alerts {
		if inv.Alerts[i].ID == alertID {
			return &inv.Alerts[i]
		}
	}
	return nil
}

// OpenAlerts returns alerts not yet resolved
func (inv *Invoice) OpenAlerts() []Alert {
	open := make([]Alert, 0)
	for _, a := range inv.Alerts {
		if !a.Resolved {
			open = append(open, a)
		}
	}
	return open
}

// LastTimelineEntry returns the most recent audit entry, or nil
func (inv *Invoice) LastTimelineEntry() *TimelineEntry {
	if len(inv.Timeline) == 0 {
		return nil
	}
	return &inv.Timeline[len(inv.Timeline)-1]
}

// CheckOwner fails with NotOwner unless the actor's department controls the invoice
func (inv *Invoice) CheckOwner(actor Actor) error {
	if inv.CurrentOwner != actor.Department {
		return shared.NewDomainError(shared.CodeNotOwner,
			"Invoice is controlled by "+inv.CurrentOwner.String()+", not "+actor.Department.String())
	}
	return nil
}
