package receiving

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CreditNoteService is the defect-routing entry point that turns defective
// lines of a prepaid invoice into supplier credit. It never mutates the invoice.
type CreditNoteService struct {
	invoiceRepo    receiving.InvoiceRepository
	creditNoteRepo receiving.CreditNoteRepository
	issuer         *receiving.CreditNoteIssuer
	logger         *zap.Logger
	locks          *invoiceLocks

	eventPublisher shared.EventPublisher
	metrics        *telemetry.WorkflowMetrics
}

// NewCreditNoteService creates a new CreditNoteService
func NewCreditNoteService(
	invoiceRepo receiving.InvoiceRepository,
	creditNoteRepo receiving.CreditNoteRepository,
	issuer *receiving.CreditNoteIssuer,
	logger *zap.Logger,
) *CreditNoteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditNoteService{
		invoiceRepo:    invoiceRepo,
		creditNoteRepo: creditNoteRepo,
		issuer:         issuer,
		logger:         logger.Named("credit_note_service"),
		locks:          newInvoiceLocks(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *CreditNoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetWorkflowMetrics sets the workflow metrics collector
func (s *CreditNoteService) SetWorkflowMetrics(m *telemetry.WorkflowMetrics) {
	s.metrics = m
}

// IssueCreditForDefects credits the cost of defective lines on a fully
// prepaid invoice. A line can be credited once.
func (s *CreditNoteService) IssueCreditForDefects(ctx context.Context, invoiceID uuid.UUID, req IssueCreditRequest) (resp *CreditNoteResponse, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "CreditNoteService", "IssueCreditForDefects",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID.String()),
		telemetry.WithAttribute("credit.lines", len(req.LineIDs)),
	)
	defer span.End()
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
			s.logger.Warn("Credit note not issued", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordOperation(ctx, "issue_credit", time.Since(start), err)
		}
	}()

	// Two concurrent requests for the same lines must not both pass the
	// already-credited check.
	unlock := s.locks.lock(invoiceID)
	defer unlock()

	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.PaymentTerms != receiving.PaymentTermsFullyPrepaid {
		return nil, shared.NewDomainError(shared.CodeValidation,
			fmt.Sprintf("Credit notes are only issued for FULLY_PREPAID invoices, invoice %s is %s", inv.InvoiceNumber, inv.PaymentTerms))
	}

	amount, err := receiving.DefectiveLinesCost(inv, req.LineIDs)
	if err != nil {
		return nil, err
	}

	existing, err := s.creditNoteRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	credited := make(map[uuid.UUID]struct{})
	for _, note := range existing {
		for _, id := range note.LineIDs() {
			credited[id] = struct{}{}
		}
	}
	for _, id := range req.LineIDs {
		if _, done := credited[id]; done {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Line %s was already credited", id))
		}
	}

	note, err := s.issuer.IssueCredit(inv.SupplierID, amount, inv.ID, req.Memo, req.LineIDs)
	if err != nil {
		return nil, err
	}
	if err := s.creditNoteRepo.Save(ctx, note); err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrAmount, amount.String(), "credit_note.id", note.ID().String())
	telemetry.SetOK(span)
	s.logger.Info("Credit note issued",
		zap.String("credit_note_id", note.ID().String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("supplier_id", inv.SupplierID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.Int("lines", len(req.LineIDs)),
	)
	if s.metrics != nil {
		s.metrics.RecordCreditNote(ctx)
	}
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, receiving.NewCreditNoteIssuedEvent(note)); err != nil {
			s.logger.Error("Failed to publish credit note event", zap.String("credit_note_id", note.ID().String()), zap.Error(err))
		}
	}

	out := ToCreditNoteResponse(note)
	return &out, nil
}

// ListCreditNotes returns the credit notes issued against an invoice
func (s *CreditNoteService) ListCreditNotes(ctx context.Context, invoiceID uuid.UUID) ([]CreditNoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "CreditNoteService", "ListCreditNotes",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID.String()))
	defer span.End()

	if _, err := s.invoiceRepo.FindByID(ctx, invoiceID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	notes, err := s.creditNoteRepo.FindByInvoice(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	out := make([]CreditNoteResponse, len(notes))
	for i, note := range notes {
		out[i] = ToCreditNoteResponse(note)
	}
	return out, nil
}
