package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
)

// InvoiceDocumentModel is the persistence row of an invoice aggregate
type InvoiceDocumentModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	SupplierID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_supplier_number"`
	InvoiceNumber string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_supplier_number"`
	Status        string    `gorm:"type:varchar(40);not null"`
	CurrentOwner  string    `gorm:"type:varchar(20);not null;index:idx_invoice_owner_created"`
	PaymentTerms  string    `gorm:"type:varchar(20);not null"`
	Version       int       `gorm:"not null;default:1"`
	Document      string    `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time `gorm:"not null;index:idx_invoice_owner_created"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceDocumentModel) TableName() string {
	return "invoice_documents"
}

// ToDomain decodes the stored document
func (m *InvoiceDocumentModel) ToDomain() (*receiving.Invoice, error) {
	var inv receiving.Invoice
	if err := json.Unmarshal([]byte(m.Document), &inv); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", m.ID, err)
	}
	// The column is authoritative for optimistic locking.
	inv.Version = m.Version
	return &inv, nil
}

// FromDomain populates the row from the aggregate, including its version
func (m *InvoiceDocumentModel) FromDomain(inv *receiving.Invoice) error {
	doc, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invoice %s: %w", inv.ID, err)
	}
	m.ID = inv.ID
	m.SupplierID = inv.SupplierID
	m.InvoiceNumber = inv.InvoiceNumber
	m.Status = string(inv.Status)
	m.CurrentOwner = string(inv.CurrentOwner)
	m.PaymentTerms = string(inv.PaymentTerms)
	m.Version = inv.Version
	m.Document = string(doc)
	m.CreatedAt = inv.CreatedAt
	m.UpdatedAt = inv.UpdatedAt
	return nil
}

// InvoiceDocumentModelFromDomain creates a row from the aggregate
func InvoiceDocumentModelFromDomain(inv *receiving.Invoice) (*InvoiceDocumentModel, error) {
	m := &InvoiceDocumentModel{}
	if err := m.FromDomain(inv); err != nil {
		return nil, err
	}
	return m, nil
}
