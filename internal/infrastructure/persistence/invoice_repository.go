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

// GormInvoiceRepository implements receiving.InvoiceRepository as a JSON
// document table with the queue and uniqueness columns projected out.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*receiving.Invoice, error) {
	var model models.InvoiceDocumentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Invoice %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByOwner lists a department queue, oldest first
func (r *GormInvoiceRepository) FindByOwner(ctx context.Context, owner receiving.Department) ([]*receiving.Invoice, error) {
	var rows []models.InvoiceDocumentModel
	if err := r.db.WithContext(ctx).
		Where("current_owner = ?", string(owner)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	invoices := make([]*receiving.Invoice, 0, len(rows))
	for i := range rows {
		inv, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// ExistsByNumber checks whether the supplier already has the invoice number
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, supplierID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceDocumentModel{}).
		Where("supplier_id = ? AND invoice_number = ?", supplierID, number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new invoice at version 1
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *receiving.Invoice) error {
	previous := inv.Version
	inv.Version = 1
	model, err := models.InvoiceDocumentModelFromDomain(inv)
	if err != nil {
		inv.Version = previous
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		inv.Version = previous
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Invoice %s already exists for supplier %s", inv.InvoiceNumber, inv.SupplierID))
		}
		return err
	}
	return nil
}

// SaveWithLock writes the invoice only if the stored version still matches
// and moves the version forward.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *receiving.Invoice) error {
	expected := inv.Version
	inv.IncrementVersion()
	model, err := models.InvoiceDocumentModelFromDomain(inv)
	if err != nil {
		inv.Version = expected
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.InvoiceDocumentModel{}).
		Where("id = ? AND version = ?", inv.ID, expected).
		Updates(map[string]any{
			"status":        model.Status,
			"current_owner": model.CurrentOwner,
			"version":       model.Version,
			"document":      model.Document,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		inv.Version = expected
		return result.Error
	}
	if result.RowsAffected == 0 {
		inv.Version = expected
		return r.missedWrite(ctx, inv.ID, expected)
	}
	return nil
}

// missedWrite tells a vanished invoice apart from a stale version
func (r *GormInvoiceRepository) missedWrite(ctx context.Context, id uuid.UUID, expected int) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceDocumentModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Invoice %s not found", id))
	}
	return shared.NewDomainError(shared.CodeStateConflict,
		fmt.Sprintf("Invoice %s was modified concurrently (expected version %d)", id, expected))
}

// CountByOwner returns the number of invoices each department holds
func (r *GormInvoiceRepository) CountByOwner(ctx context.Context) (map[receiving.Department]int, error) {
	var rows []struct {
		CurrentOwner string
		Total        int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceDocumentModel{}).
		Select("current_owner, COUNT(*) AS total").
		Group("current_owner").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[receiving.Department]int, len(rows))
	for _, row := range rows {
		counts[receiving.Department(row.CurrentOwner)] = row.Total
	}
	return counts, nil
}

var _ receiving.InvoiceRepository = (*GormInvoiceRepository)(nil)
