package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// QueueDepthProvider reports how many open invoices each department holds
type QueueDepthProvider interface {
	QueueDepths(ctx context.Context) (map[string]int64, error)
}

// WorkflowMetrics records the invoice workflow: creations, transitions,
// handoffs between departments, payments, rejections and alerts.
type WorkflowMetrics struct {
	logger *zap.Logger

	invoicesCreated   *Counter
	transitions       *Counter
	handoffs          *Counter
	payments          *Counter
	paymentAmount     *Counter
	rejections        *Counter
	alertsRaised      *Counter
	creditNotes       *Counter
	operationDuration *Histogram
	queueDepth        *Gauge

	queues      QueueDepthProvider
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// WorkflowMetricsConfig holds the dependencies of WorkflowMetrics
type WorkflowMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	Queues QueueDepthProvider
}

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = &MetricsError{Op: "NewWorkflowMetrics", Err: "meter cannot be nil"}

// NewWorkflowMetrics creates every workflow instrument
func NewWorkflowMetrics(cfg WorkflowMetricsConfig) (*WorkflowMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	wm := &WorkflowMetrics{logger: logger, queues: cfg.Queues, stopChan: make(chan struct{})}

	counters := []struct {
		target     **Counter
		name, desc string
		unit       string
	}{
		{&wm.invoicesCreated, "backoffice_invoices_created_total", "Invoices opened by Warehouse", "{invoices}"},
		{&wm.transitions, "backoffice_invoice_transitions_total", "Applied status transitions", "{transitions}"},
		{&wm.handoffs, "backoffice_invoice_handoffs_total", "Ownership changes between departments", "{handoffs}"},
		{&wm.payments, "backoffice_payments_total", "Registered supplier payments", "{payments}"},
		{&wm.paymentAmount, "backoffice_payment_amount_cents_total", "Paid amount in cents", "{cents}"},
		{&wm.rejections, "backoffice_invoice_rejections_total", "Invoices sent back to Warehouse", "{rejections}"},
		{&wm.alertsRaised, "backoffice_alerts_raised_total", "Alerts raised on open invoices", "{alerts}"},
		{&wm.creditNotes, "backoffice_credit_notes_total", "Supplier credit notes issued", "{notes}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	wm.operationDuration, err = NewHistogram(cfg.Meter, "backoffice_operation_duration_seconds",
		"Duration of workflow operations", "s", OperationDurationBuckets...)
	if err != nil {
		return nil, err
	}
	wm.queueDepth, err = NewGauge(cfg.Meter, "backoffice_queue_depth", "Open invoices per department queue", "{invoices}")
	if err != nil {
		return nil, err
	}
	return wm, nil
}

// RecordInvoiceCreated counts a new invoice
func (wm *WorkflowMetrics) RecordInvoiceCreated(ctx context.Context, terms string) {
	wm.invoicesCreated.Inc(ctx, AttrPaymentTerms.String(terms))
}

// RecordTransition counts an applied transition
func (wm *WorkflowMetrics) RecordTransition(ctx context.Context, from, to, trigger string) {
	wm.transitions.Inc(ctx, AttrFromStatus.String(from), AttrToStatus.String(to), AttrTrigger.String(trigger))
}

// RecordHandoff counts an ownership change
func (wm *WorkflowMetrics) RecordHandoff(ctx context.Context, fromOwner, toOwner string) {
	wm.handoffs.Inc(ctx, AttrFromOwner.String(fromOwner), AttrToOwner.String(toOwner))
}

// RecordPayment counts a payment and adds its amount in cents
func (wm *WorkflowMetrics) RecordPayment(ctx context.Context, kind, method string, amount decimal.Decimal) {
	wm.payments.Inc(ctx, AttrPaymentKind.String(kind), AttrPaymentMethod.String(method))
	wm.paymentAmount.Add(ctx, amount.Shift(2).IntPart(), AttrPaymentKind.String(kind))
}

// RecordRejection counts a rejection or divergence report
func (wm *WorkflowMetrics) RecordRejection(ctx context.Context, reason string) {
	wm.rejections.Inc(ctx, AttrReason.String(reason))
}

// RecordAlertRaised counts a newly raised alert
func (wm *WorkflowMetrics) RecordAlertRaised(ctx context.Context, kind string) {
	wm.alertsRaised.Inc(ctx, AttrAlertKind.String(kind))
}

// RecordCreditNote counts an issued credit note
func (wm *WorkflowMetrics) RecordCreditNote(ctx context.Context) {
	wm.creditNotes.Inc(ctx)
}

// RecordOperation records how long an operation took and whether it failed
func (wm *WorkflowMetrics) RecordOperation(ctx context.Context, operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	wm.operationDuration.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}

// RecordQueueDepth sets the open invoice count of a department
func (wm *WorkflowMetrics) RecordQueueDepth(ctx context.Context, owner string, depth int64) {
	wm.queueDepth.Record(ctx, depth, AttrOwner.String(owner))
}

// StartPeriodicCollection samples queue depths every interval until Stop
// or ctx is done. Calling it twice has no effect.
func (wm *WorkflowMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	wm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go wm.runPeriodicCollection(ctx, interval)
	})
}

func (wm *WorkflowMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wm.collectQueueDepths(ctx)
	for {
		select {
		case <-wm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			wm.collectQueueDepths(ctx)
		}
	}
}

func (wm *WorkflowMetrics) collectQueueDepths(ctx context.Context) {
	if wm.queues == nil {
		return
	}
	depths, err := wm.queues.QueueDepths(ctx)
	if err != nil {
		wm.logger.Warn("Failed to collect queue depths", zap.Error(err))
		return
	}
	for owner, depth := range depths {
		wm.RecordQueueDepth(ctx, owner, depth)
	}
}

// Stop ends periodic collection
func (wm *WorkflowMetrics) Stop() {
	wm.stopOnce.Do(func() {
		close(wm.stopChan)
	})
}

// MetricsError describes a failure while building instruments
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
