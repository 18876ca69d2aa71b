package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/shopspring/decimal"
)

// CreditNoteModel is the persistence row of a credit note
type CreditNoteModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	SupplierID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Memo       string          `gorm:"type:varchar(500)"`
	LineIDs    string          `gorm:"type:jsonb;not null"`
	IssuedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the row to a credit note
func (m *CreditNoteModel) ToDomain() (*receiving.CreditNote, error) {
	var lineIDs []uuid.UUID
	if err := json.Unmarshal([]byte(m.LineIDs), &lineIDs); err != nil {
		return nil, fmt.Errorf("decode credit note %s lines: %w", m.ID, err)
	}
	return receiving.RestoreCreditNote(m.ID, m.SupplierID, m.InvoiceID, m.Amount, m.Memo, lineIDs, m.IssuedAt), nil
}

// CreditNoteModelFromDomain creates a row from a credit note
func CreditNoteModelFromDomain(note *receiving.CreditNote) (*CreditNoteModel, error) {
	lineIDs, err := json.Marshal(note.LineIDs())
	if err != nil {
		return nil, fmt.Errorf("encode credit note %s lines: %w", note.ID(), err)
	}
	return &CreditNoteModel{
		ID:         note.ID(),
		SupplierID: note.SupplierID(),
		InvoiceID:  note.InvoiceID(),
		Amount:     note.Amount(),
		Memo:       note.Memo(),
		LineIDs:    string(lineIDs),
		IssuedAt:   note.IssuedAt(),
	}, nil
}

// AllModels lists every model for AutoMigrate
func AllModels() []any {
	return []any{&InvoiceDocumentModel{}, &CreditNoteModel{}}
}
