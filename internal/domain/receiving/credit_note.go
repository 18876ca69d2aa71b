package receiving

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreditNote is a supplier credit issued against defective goods.
// It is immutable once issued.
type CreditNote struct {
	id         uuid.UUID
	supplierID uuid.UUID
	invoiceID  uuid.UUID
	amount     decimal.Decimal
	memo       string
	lineIDs    []uuid.UUID
	issuedAt   time.Time
}

// RestoreCreditNote rebuilds a credit note loaded from storage
func RestoreCreditNote(id, supplierID, invoiceID uuid.UUID, amount decimal.Decimal, memo string, lineIDs []uuid.UUID, issuedAt time.Time) *CreditNote {
	return &CreditNote{
		id:         id,
		supplierID: supplierID,
		invoiceID:  invoiceID,
		amount:     amount,
		memo:       memo,
		lineIDs:    append([]uuid.UUID(nil), lineIDs...),
		issuedAt:   issuedAt,
	}
}

func (c *CreditNote) ID() uuid.UUID           { return c.id }
func (c *CreditNote) SupplierID() uuid.UUID   { return c.supplierID }
func (c *CreditNote) InvoiceID() uuid.UUID    { return c.invoiceID }
func (c *CreditNote) Amount() decimal.Decimal { return c.amount }
func (c *CreditNote) Memo() string            { return c.memo }
func (c *CreditNote) IssuedAt() time.Time     { return c.issuedAt }

// LineIDs returns a copy of the defective lines the credit covers
func (c *CreditNote) LineIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), c.lineIDs...)
}

// CreditNoteIssuer emits credit notes. Computing the amount is the caller's job.
type CreditNoteIssuer struct {
	ids   shared.IDGenerator
	clock shared.Clock
}

// NewCreditNoteIssuer creates a new CreditNoteIssuer
func NewCreditNoteIssuer(ids shared.IDGenerator, clock shared.Clock) *CreditNoteIssuer {
	return &CreditNoteIssuer{ids: ids, clock: clock}
}

// IssueCredit validates and creates a credit note
func (i *CreditNoteIssuer) IssueCredit(supplierID uuid.UUID, amount decimal.Decimal, invoiceID uuid.UUID, memo string, lineIDs []uuid.UUID) (*CreditNote, error) {
	if supplierID == uuid.Nil {
		return nil, validationError("Supplier ID cannot be empty")
	}
	if invoiceID == uuid.Nil {
		return nil, validationError("Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, validationError("Credit amount must be positive")
	}
	memo = strings.TrimSpace(memo)
	if len(memo) > 500 {
		return nil, validationError("Credit memo cannot exceed 500 characters")
	}
	return RestoreCreditNote(i.ids.NewID(), supplierID, invoiceID, amount, memo, lineIDs, i.clock.Now()), nil
}

// DefectiveLinesCost sums the cost of the given lines. Every line must exist
// on the invoice and be flagged defective.
func DefectiveLinesCost(inv *Invoice, lineIDs []uuid.UUID) (decimal.Decimal, error) {
	if len(lineIDs) == 0 {
		return decimal.Zero, validationError("At least one defective line is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(lineIDs))
	total := decimal.Zero
	for _, id := range lineIDs {
		if _, dup := seen[id]; dup {
			return decimal.Zero, validationError("Line %s listed twice", id)
		}
		seen[id] = struct{}{}
		line := inv.GetLine(id)
		if line == nil {
			return decimal.Zero, validationError("Line %s does not belong to invoice %s", id, inv.InvoiceNumber)
		}
		if !line.Defective {
			return decimal.Zero, validationError("Line %s is not marked defective", id)
		}
		total = total.Add(line.Cost())
	}
	return total, nil
}
