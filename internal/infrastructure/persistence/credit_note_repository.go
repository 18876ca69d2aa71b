package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCreditNoteRepository implements receiving.CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// Save inserts a credit note. Credit notes are immutable, so an existing id
// is an error.
func (r *GormCreditNoteRepository) Save(ctx context.Context, note *receiving.CreditNote) error {
	model, err := models.CreditNoteModelFromDomain(note)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Credit note %s already exists", note.ID()))
		}
		return err
	}
	return nil
}

// FindByInvoice returns the credit notes of an invoice in issue order
func (r *GormCreditNoteRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*receiving.CreditNote, error) {
	var rows []models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("issued_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	notes := make([]*receiving.CreditNote, 0, len(rows))
	for i := range rows {
		note, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

var _ receiving.CreditNoteRepository = (*GormCreditNoteRepository)(nil)
