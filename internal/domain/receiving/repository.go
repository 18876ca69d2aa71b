package receiving

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository persists invoices together with their owned collections
type InvoiceRepository interface {
	// FindByID returns ErrNotFound when the invoice does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByOwner lists the queue of a department, oldest first
	FindByOwner(ctx context.Context, owner Department) ([]*Invoice, error)

	// ExistsByNumber checks whether a supplier already has the invoice number
	ExistsByNumber(ctx context.Context, supplierID uuid.UUID, number string) (bool, error)

	// Create stores a new invoice at version 1
	Create(ctx context.Context, inv *Invoice) error

	// SaveWithLock stores the invoice if its version still matches the
	// stored one and increments the version. A mismatch is ErrStateConflict.
	SaveWithLock(ctx context.Context, inv *Invoice) error
}

// CreditNoteRepository persists credit notes
type CreditNoteRepository interface {
	Save(ctx context.Context, note *CreditNote) error
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*CreditNote, error)
}
