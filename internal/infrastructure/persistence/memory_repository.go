package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
)

// MemoryInvoiceRepository keeps invoices as encoded documents in process
// memory. Every read decodes a fresh copy, so callers never share state with
// the store or with each other.
type MemoryInvoiceRepository struct {
	mu       sync.RWMutex
	docs     map[uuid.UUID][]byte
	versions map[uuid.UUID]int
	numbers  map[string]uuid.UUID
}

// NewMemoryInvoiceRepository creates an empty MemoryInvoiceRepository
func NewMemoryInvoiceRepository() *MemoryInvoiceRepository {
	return &MemoryInvoiceRepository{
		docs:     make(map[uuid.UUID][]byte),
		versions: make(map[uuid.UUID]int),
		numbers:  make(map[string]uuid.UUID),
	}
}

func numberKey(supplierID uuid.UUID, number string) string {
	return supplierID.String() + "/" + number
}

// FindByID returns a copy of the stored invoice
func (r *MemoryInvoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*receiving.Invoice, error) {
	r.mu.RLock()
	doc, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Invoice %s not found", id))
	}
	return decodeInvoice(doc)
}

// FindByOwner lists a department queue, oldest first
func (r *MemoryInvoiceRepository) FindByOwner(_ context.Context, owner receiving.Department) ([]*receiving.Invoice, error) {
	r.mu.RLock()
	snapshot := make([][]byte, 0, len(r.docs))
	for _, doc := range r.docs {
		snapshot = append(snapshot, doc)
	}
	r.mu.RUnlock()

	invoices := make([]*receiving.Invoice, 0)
	for _, doc := range snapshot {
		inv, err := decodeInvoice(doc)
		if err != nil {
			return nil, err
		}
		if inv.CurrentOwner == owner {
			invoices = append(invoices, inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].CreatedAt.Equal(invoices[j].CreatedAt) {
			return invoices[i].ID.String() < invoices[j].ID.String()
		}
		return invoices[i].CreatedAt.Before(invoices[j].CreatedAt)
	})
	return invoices, nil
}

// ExistsByNumber checks whether the supplier already has the invoice number
func (r *MemoryInvoiceRepository) ExistsByNumber(_ context.Context, supplierID uuid.UUID, number string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.numbers[numberKey(supplierID, number)]
	return ok, nil
}

// Create stores a new invoice at version 1
func (r *MemoryInvoiceRepository) Create(_ context.Context, inv *receiving.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := numberKey(inv.SupplierID, inv.InvoiceNumber)
	if _, ok := r.numbers[key]; ok {
		return shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Invoice %s already exists for supplier %s", inv.InvoiceNumber, inv.SupplierID))
	}
	if _, ok := r.docs[inv.ID]; ok {
		return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Invoice %s already exists", inv.ID))
	}

	previous := inv.Version
	inv.Version = 1
	doc, err := json.Marshal(inv)
	if err != nil {
		inv.Version = previous
		return fmt.Errorf("encode invoice %s: %w", inv.ID, err)
	}
	r.docs[inv.ID] = doc
	r.versions[inv.ID] = 1
	r.numbers[key] = inv.ID
	return nil
}

// SaveWithLock replaces the stored invoice if the version still matches
func (r *MemoryInvoiceRepository) SaveWithLock(_ context.Context, inv *receiving.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.versions[inv.ID]
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Invoice %s not found", inv.ID))
	}
	expected := inv.Version
	if stored != expected {
		return shared.NewDomainError(shared.CodeStateConflict,
			fmt.Sprintf("Invoice %s was modified concurrently (expected version %d, found %d)", inv.ID, expected, stored))
	}

	inv.IncrementVersion()
	doc, err := json.Marshal(inv)
	if err != nil {
		inv.Version = expected
		return fmt.Errorf("encode invoice %s: %w", inv.ID, err)
	}
	r.docs[inv.ID] = doc
	r.versions[inv.ID] = inv.Version
	return nil
}

// CountByOwner returns the number of invoices each department holds
func (r *MemoryInvoiceRepository) CountByOwner(_ context.Context) (map[receiving.Department]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[receiving.Department]int)
	for _, doc := range r.docs {
		var head struct {
			CurrentOwner receiving.Department `json:"current_owner"`
		}
		if err := json.Unmarshal(doc, &head); err != nil {
			return nil, err
		}
		counts[head.CurrentOwner]++
	}
	return counts, nil
}

func decodeInvoice(doc []byte) (*receiving.Invoice, error) {
	var inv receiving.Invoice
	if err := json.Unmarshal(doc, &inv); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &inv, nil
}

// MemoryCreditNoteRepository keeps credit notes in process memory
type MemoryCreditNoteRepository struct {
	mu        sync.RWMutex
	ids       map[uuid.UUID]struct{}
	byInvoice map[uuid.UUID][]*receiving.CreditNote
}

// NewMemoryCreditNoteRepository creates an empty MemoryCreditNoteRepository
func NewMemoryCreditNoteRepository() *MemoryCreditNoteRepository {
	return &MemoryCreditNoteRepository{
		ids:       make(map[uuid.UUID]struct{}),
		byInvoice: make(map[uuid.UUID][]*receiving.CreditNote),
	}
}

// Save stores a credit note once
func (r *MemoryCreditNoteRepository) Save(_ context.Context, note *receiving.CreditNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[note.ID()]; ok {
		return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Credit note %s already exists", note.ID()))
	}
	r.ids[note.ID()] = struct{}{}
	r.byInvoice[note.InvoiceID()] = append(r.byInvoice[note.InvoiceID()], note)
	return nil
}

// FindByInvoice returns the credit notes of an invoice in issue order.
// Credit notes are immutable, so the stored pointers are shared.
func (r *MemoryCreditNoteRepository) FindByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*receiving.CreditNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*receiving.CreditNote(nil), r.byInvoice[invoiceID]...), nil
}

var (
	_ receiving.InvoiceRepository    = (*MemoryInvoiceRepository)(nil)
	_ receiving.CreditNoteRepository = (*MemoryCreditNoteRepository)(nil)
)
