package receiving

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "InvoiceService"

// InvoiceService runs the receiving workflow against the invoice repository.
// Every mutation loads a fresh copy under a per-invoice lock, applies one
// workflow operation, refreshes alerts and saves with a version check. A
// failed operation discards the copy, so nothing is persisted.
type InvoiceService struct {
	invoiceRepo receiving.InvoiceRepository
	workflow    *receiving.Workflow
	clock       shared.Clock
	logger      *zap.Logger
	locks       *invoiceLocks

	eventPublisher shared.EventPublisher
	metrics        *telemetry.WorkflowMetrics
	idempotency    shared.IdempotencyStore
	idemConfig     shared.IdempotencyConfig
	suppliers      receiving.SupplierDirectory
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo receiving.InvoiceRepository, workflow *receiving.Workflow, clock shared.Clock, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		workflow:    workflow,
		clock:       clock,
		logger:      logger.Named("invoice_service"),
		locks:       newInvoiceLocks(),
		idemConfig:  shared.DefaultIdempotencyConfig(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetWorkflowMetrics sets the workflow metrics collector
func (s *InvoiceService) SetWorkflowMetrics(m *telemetry.WorkflowMetrics) {
	s.metrics = m
}

// SetIdempotencyStore enables Idempotency-Key handling for create and payment
func (s *InvoiceService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idemConfig = cfg
}

// SetSupplierDirectory sets the source of supplier display names
func (s *InvoiceService) SetSupplierDirectory(dir receiving.SupplierDirectory) {
	s.suppliers = dir
}

// CreateInvoice opens a new invoice in the Warehouse queue
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, actor receiving.Actor, idempotencyKey string) (resp *InvoiceResponse, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "CreateInvoice",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceNumber, req.InvoiceNumber),
		telemetry.WithAttribute(telemetry.SpanAttrSupplierID, req.SupplierID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentTerms, req.PaymentTerms),
		telemetry.WithAttribute(telemetry.SpanAttrActor, actor.Name),
	)
	defer span.End()
	defer func() { s.finish(ctx, span, "create_invoice", start, err) }()

	release, err := s.claim(ctx, "create:"+req.SupplierID.String(), idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() { release(err) }()

	inv, err := s.workflow.CreateInvoice(req.toParams(), actor)
	if err != nil {
		return nil, err
	}

	exists, err := s.invoiceRepo.ExistsByNumber(ctx, inv.SupplierID, inv.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Invoice %s already exists for this supplier", inv.InvoiceNumber))
	}

	if err := s.invoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, inv.ID.String())

	s.logger.Info("Invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("payment_terms", string(inv.PaymentTerms)),
		zap.Int("quantity_informed", inv.QuantityInformed),
		zap.String("total_value", inv.TotalValue.StringFixed(2)),
		zap.String("actor", actor.Name),
	)
	s.dispatch(ctx, inv, "")

	out := s.toResponse(ctx, inv)
	return &out, nil
}

// GetInvoice returns the invoice with alerts projected as of now. Nothing is persisted.
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "GetInvoice",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID.String()))
	defer span.End()

	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.workflow.RefreshAlerts(inv)

	out := s.toResponse(ctx, inv)
	return &out, nil
}

// ListQueue returns the invoices a department currently owns, oldest first
func (s *InvoiceService) ListQueue(ctx context.Context, owner receiving.Department) ([]QueueItemResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "ListQueue",
		telemetry.WithAttribute(telemetry.SpanAttrOwner, string(owner)))
	defer span.End()

	if !owner.IsActor() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Queue must be WAREHOUSE or FINANCE")
	}
	invoices, err := s.invoiceRepo.FindByOwner(ctx, owner)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.clock.Now()
	names := make(map[uuid.UUID]string)
	items := make([]QueueItemResponse, 0, len(invoices))
	for _, inv := range invoices {
		s.workflow.RefreshAlerts(inv)
		name, ok := names[inv.SupplierID]
		if !ok {
			name = s.supplierName(ctx, inv.SupplierID)
			names[inv.SupplierID] = name
		}
		items = append(items, ToQueueItemResponse(inv, name, now))
	}
	telemetry.SetAttribute(span, "queue.size", len(items))
	return items, nil
}

// queueCounter is implemented by repositories that can count queues without
// decoding every invoice.
type queueCounter interface {
	CountByOwner(ctx context.Context) (map[receiving.Department]int, error)
}

// QueueDepths counts the open invoices of each department
func (s *InvoiceService) QueueDepths(ctx context.Context) (map[string]int64, error) {
	owners := []receiving.Department{receiving.DepartmentWarehouse, receiving.DepartmentFinance}
	depths := make(map[string]int64, len(owners))
	if counter, ok := s.invoiceRepo.(queueCounter); ok {
		counts, err := counter.CountByOwner(ctx)
		if err != nil {
			return nil, err
		}
		for _, owner := range owners {
			depths[string(owner)] = int64(counts[owner])
		}
		return depths, nil
	}
	for _, owner := range owners {
		invoices, err := s.invoiceRepo.FindByOwner(ctx, owner)
		if err != nil {
			return nil, err
		}
		depths[string(owner)] = int64(len(invoices))
	}
	return depths, nil
}

// RegisterProducts records a batch of physically received lines
func (s *InvoiceService) RegisterProducts(ctx context.Context, invoiceID uuid.UUID, req RegisterProductsRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	inputs := make([]receiving.LineInput, len(req.Lines))
	added := 0
	for i, line := range req.Lines {
		inputs[i] = line.toInput()
		added += line.Quantity
	}
	return s.mutate(ctx, "RegisterProducts", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		telemetry.SetAttribute(trace.SpanFromContext(ctx), telemetry.SpanAttrQuantity, added)
		_, err := s.workflow.RegisterProducts(inv, inputs, actor)
		return err
	})
}

// InspectProducts marks lines as inspected and records any defects found
func (s *InvoiceService) InspectProducts(ctx context.Context, invoiceID uuid.UUID, req InspectProductsRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "InspectProducts", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		return s.workflow.InspectWithDefects(inv, req.LineIDs, req.DefectiveLineIDs, actor)
	})
}

// MarkDefective flags inspected lines as defective
func (s *InvoiceService) MarkDefective(ctx context.Context, invoiceID uuid.UUID, req LineSelectionRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "MarkDefective", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		return s.workflow.MarkDefective(inv, req.LineIDs, actor)
	})
}

// RegisterPayment appends a Finance payment to the ledger
func (s *InvoiceService) RegisterPayment(ctx context.Context, invoiceID uuid.UUID, req RegisterPaymentRequest, actor receiving.Actor, idempotencyKey string) (resp *InvoiceResponse, err error) {
	release, err := s.claim(ctx, "payment:"+invoiceID.String(), idempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() { release(err) }()

	return s.mutate(ctx, "RegisterPayment", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		telemetry.SetAttribute(trace.SpanFromContext(ctx), telemetry.SpanAttrAmount, req.Amount.String())
		payment, err := s.workflow.RegisterPayment(inv, receiving.PaymentInput{
			Amount:     req.Amount,
			Method:     req.Method,
			Account:    req.Account,
			ReceiptRef: req.ReceiptRef,
		}, actor)
		if err != nil {
			return err
		}
		s.logger.Info("Payment registered",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("kind", string(payment.Kind)),
			zap.String("amount", payment.Amount.StringFixed(2)),
			zap.String("outstanding", inv.OutstandingBalance().StringFixed(2)),
			zap.String("actor", actor.Name),
		)
		return nil
	})
}

// Reject sends a Finance-owned invoice back to Warehouse
func (s *InvoiceService) Reject(ctx context.Context, invoiceID uuid.UUID, req DisputeRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "Reject", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		if err := s.workflow.Reject(inv, receiving.RejectionReason(req.Reason), req.Note, actor); err != nil {
			return err
		}
		s.logger.Info("Invoice rejected",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("reason", req.Reason),
			zap.String("actor", actor.Name),
		)
		return nil
	})
}

// FlagDivergence records a Warehouse dispute raised during the conference
func (s *InvoiceService) FlagDivergence(ctx context.Context, invoiceID uuid.UUID, req DisputeRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "FlagDivergence", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		return s.workflow.FlagDivergence(inv, receiving.RejectionReason(req.Reason), req.Note, actor)
	})
}

// Resubmit takes a divergent invoice back into the flow
func (s *InvoiceService) Resubmit(ctx context.Context, invoiceID uuid.UUID, req ResubmitRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "Resubmit", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		return s.workflow.Resubmit(inv, req.Note, actor)
	})
}

// Annotate edits the notes and the urgent flag
func (s *InvoiceService) Annotate(ctx context.Context, invoiceID uuid.UUID, req AnnotateRequest, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "Annotate", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		return s.workflow.Annotate(inv, req.Notes, req.Urgent, actor)
	})
}

// ResolveAlert closes one alert on behalf of the owning department
func (s *InvoiceService) ResolveAlert(ctx context.Context, invoiceID, alertID uuid.UUID, actor receiving.Actor) (*InvoiceResponse, error) {
	return s.mutate(ctx, "ResolveAlert", invoiceID, actor, func(ctx context.Context, inv *receiving.Invoice) error {
		return s.workflow.ResolveAlert(inv, alertID, actor)
	})
}

type mutation func(ctx context.Context, inv *receiving.Invoice) error

// mutate runs one workflow operation as a read-modify-write cycle. An
// operation that leaves no timeline entry and no alert change is not saved.
func (s *InvoiceService) mutate(ctx context.Context, method string, invoiceID uuid.UUID, actor receiving.Actor, fn mutation) (resp *InvoiceResponse, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, method,
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, invoiceID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrActor, actor.Name),
		telemetry.WithAttribute(telemetry.SpanAttrDepartment, string(actor.Department)),
	)
	defer span.End()
	defer func() { s.finish(ctx, span, toSnake(method), start, err) }()

	unlock := s.locks.lock(invoiceID)
	defer unlock()

	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	statusBefore := inv.Status
	timelineBefore := len(inv.Timeline)
	alertsBefore := len(inv.Alerts)
	openBefore := openAlertIDs(inv)

	if err := fn(ctx, inv); err != nil {
		return nil, err
	}
	alertsChanged := s.workflow.RefreshAlerts(inv)

	if len(inv.Timeline) == timelineBefore && len(inv.Alerts) == alertsBefore && !alertsChanged {
		out := s.toResponse(ctx, inv)
		return &out, nil
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		if errors.Is(err, shared.ErrStateConflict) {
			s.logger.Warn("Stale invoice write rejected",
				zap.String("invoice_id", invoiceID.String()),
				zap.String("operation", method),
			)
		}
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(inv.Status),
		telemetry.SpanAttrOwner, string(inv.CurrentOwner),
	)
	if inv.Status != statusBefore {
		s.logger.Info("Invoice status changed",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("from", string(statusBefore)),
			zap.String("to", string(inv.Status)),
			zap.String("owner", string(inv.CurrentOwner)),
			zap.String("actor", actor.Name),
		)
	}
	s.recordNewAlerts(ctx, inv, openBefore)
	s.dispatch(ctx, inv, paymentMethod(inv))

	out := s.toResponse(ctx, inv)
	return &out, nil
}

// dispatch publishes pending domain events and derives metrics from them
func (s *InvoiceService) dispatch(ctx context.Context, inv *receiving.Invoice, method string) {
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	span := trace.SpanFromContext(ctx)

	if s.metrics != nil {
		for _, event := range events {
			switch e := event.(type) {
			case *receiving.InvoiceCreatedEvent:
				s.metrics.RecordInvoiceCreated(ctx, string(e.PaymentTerms))
			case *receiving.InvoiceStatusChangedEvent:
				s.metrics.RecordTransition(ctx, string(e.FromStatus), string(e.ToStatus), string(e.Trigger))
				if e.HandedOff() {
					s.metrics.RecordHandoff(ctx, string(e.FromOwner), string(e.ToOwner))
				}
			case *receiving.PaymentRegisteredEvent:
				s.metrics.RecordPayment(ctx, string(e.Kind), method, e.Amount)
			case *receiving.InvoiceRejectedEvent:
				s.metrics.RecordRejection(ctx, string(e.Reason))
			}
		}
	}
	for _, event := range events {
		if e, ok := event.(*receiving.InvoiceStatusChangedEvent); ok {
			telemetry.AddEvent(span, "transition",
				telemetry.SpanAttrTrigger, string(e.Trigger),
				"from", string(e.FromStatus),
				"to", string(e.ToStatus),
			)
		}
	}

	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			// The invoice is already saved; event delivery failures are logged only.
			s.logger.Error("Failed to publish invoice events",
				zap.String("invoice_id", inv.ID.String()),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
		}
	}
	inv.ClearDomainEvents()
}

func (s *InvoiceService) recordNewAlerts(ctx context.Context, inv *receiving.Invoice, before map[uuid.UUID]struct{}) {
	for _, alert := range inv.OpenAlerts() {
		if _, seen := before[alert.ID]; seen {
			continue
		}
		s.logger.Warn("Alert raised",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("kind", string(alert.Kind)),
			zap.Int("elapsed_days", alert.ElapsedDays),
		)
		if s.metrics != nil {
			s.metrics.RecordAlertRaised(ctx, string(alert.Kind))
		}
	}
}

// claim reserves an idempotency key. The returned release frees the key when
// the request fails, so the client can retry with it.
func (s *InvoiceService) claim(ctx context.Context, scope, key string) (func(error), error) {
	noop := func(error) {}
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return noop, nil
	}
	full := scope + ":" + key
	ok, err := s.idempotency.Claim(ctx, full, s.idemConfig.TTL)
	if err != nil {
		return noop, err
	}
	if !ok {
		return noop, shared.NewDomainError(shared.CodeDuplicateRequest,
			fmt.Sprintf("Request with idempotency key %q was already processed", key))
	}
	return func(opErr error) {
		if opErr == nil {
			return
		}
		if err := s.idempotency.Release(context.WithoutCancel(ctx), full); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", full), zap.Error(err))
		}
	}, nil
}

func (s *InvoiceService) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Invoice operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	} else {
		telemetry.SetOK(span)
	}
	if s.metrics != nil {
		s.metrics.RecordOperation(ctx, operation, time.Since(start), err)
	}
}

func (s *InvoiceService) toResponse(ctx context.Context, inv *receiving.Invoice) InvoiceResponse {
	return ToInvoiceResponse(inv, s.supplierName(ctx, inv.SupplierID), s.clock.Now())
}

// supplierName is best effort; lookups that fail leave the name empty
func (s *InvoiceService) supplierName(ctx context.Context, supplierID uuid.UUID) string {
	if s.suppliers == nil {
		return ""
	}
	name, err := s.suppliers.ResolveSupplierName(ctx, supplierID)
	if err != nil {
		s.logger.Debug("Supplier name lookup failed",
			zap.String("supplier_id", supplierID.String()),
			zap.Error(err),
		)
		return ""
	}
	return name
}

func openAlertIDs(inv *receiving.Invoice) map[uuid.UUID]struct{} {
	ids := make(map[uuid.UUID]struct{}, len(inv.Alerts))
	for _, alert := range inv.OpenAlerts() {
		ids[alert.ID] = struct{}{}
	}
	return ids
}

// paymentMethod returns the method of the newest payment, for metric labels
func paymentMethod(inv *receiving.Invoice) string {
	if len(inv.Payments) == 0 {
		return ""
	}
	return inv.Payments[len(inv.Payments)-1].Method
}

// toSnake turns a method name like RegisterPayment into register_payment
func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
