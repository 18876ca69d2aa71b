package receiving

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
)

// Workflow is the domain service that runs every invoice operation. Each
// method checks the actor, the owning department and the transition table
// before it changes anything, so a failed call leaves the invoice untouched.
type Workflow struct {
	policy   Policy
	ids      shared.IDGenerator
	clock    shared.Clock
	timeline *TimelineRecorder
	machine  *StateMachine
	alerts   *AlertEngine
}

// NewWorkflow wires the workflow components together
func NewWorkflow(policy Policy, ids shared.IDGenerator, clock shared.Clock) *Workflow {
	timeline := NewTimelineRecorder(ids, clock)
	return &Workflow{
		policy:   policy,
		ids:      ids,
		clock:    clock,
		timeline: timeline,
		machine:  NewStateMachine(policy, timeline, clock),
		alerts:   NewAlertEngine(policy, clock),
	}
}

// Policy returns the numbers the workflow runs with
func (w *Workflow) Policy() Policy {
	return w.policy
}

// Machine exposes the state machine for direct trigger calls
func (w *Workflow) Machine() *StateMachine {
	return w.machine
}

// Alerts exposes the alert engine
func (w *Workflow) Alerts() *AlertEngine {
	return w.alerts
}

// CreateInvoice opens a new invoice in CREATED status, owned by Warehouse.
// A fully prepaid invoice starts with its prepayment already in the ledger.
func (w *Workflow) CreateInvoice(params CreateInvoiceParams, actor Actor) (*Invoice, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if actor.Department != DepartmentWarehouse {
		return nil, shared.NewDomainError(shared.CodeNotOwner, "Only Warehouse can create invoices")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := w.clock.Now()
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(shared.NewBaseEntity(w.ids, now)),
		SupplierID:        params.SupplierID,
		InvoiceNumber:     params.InvoiceNumber,
		PaymentTerms:      params.PaymentTerms,
		Status:            InvoiceStatusCreated,
		CurrentOwner:      OwnerFor(InvoiceStatusCreated),
		QuantityInformed:  params.QuantityInformed,
		TotalValue:        params.TotalValue,
		Urgent:            params.Urgent,
		Notes:             params.Notes,
		Lines:             make([]ProductLine, 0),
		Payments:          make([]Payment, 0),
		Alerts:            make([]Alert, 0),
		Timeline:          make([]TimelineEntry, 0),
	}

	note := entryNote{
		action: "Invoice created",
		detail: fmt.Sprintf("Number %s, %d units informed, terms %s", params.InvoiceNumber, params.QuantityInformed, params.PaymentTerms),
	}
	if params.PaymentTerms == PaymentTermsFullyPrepaid {
		inv.Payments = append(inv.Payments, Payment{
			ID:          w.ids.NewID(),
			Amount:      params.TotalValue,
			Method:      PrepaidMethod,
			Responsible: actor.Name,
			Kind:        PaymentKindInitial,
			PaidAt:      now,
		})
		total := params.TotalValue
		note.action = "Invoice created (prepaid)"
		note.impact = &total
	}
	w.timeline.record(inv, byActor(actor), note, "")
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv, now))
	return inv, nil
}

// Transition fires a trigger directly, after the ownership check
func (w *Workflow) Transition(inv *Invoice, trigger Trigger, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	if err := w.machine.Transition(inv, trigger, actor); err != nil {
		return err
	}
	return w.machine.settle(inv, byActor(actor))
}

// Annotate edits the free-text notes and the urgent flag
func (w *Workflow) Annotate(inv *Invoice, notes string, urgent bool, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	if len(notes) > 2000 {
		return validationError("Notes cannot exceed 2000 characters")
	}
	inv.Notes = notes
	inv.Urgent = urgent
	inv.Touch(w.clock.Now())
	action := "Notes updated"
	if urgent {
		action = "Notes updated, marked urgent"
	}
	w.timeline.record(inv, byActor(actor), entryNote{action: action}, inv.Status)
	return nil
}

// ResolveAlert marks one alert resolved on behalf of the owning department
func (w *Workflow) ResolveAlert(inv *Invoice, alertID uuid.UUID, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	w.alerts.Evaluate(inv)
	alert := inv.GetAlert(alertID)
	if alert == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Alert not found on this invoice")
	}
	if alert.Resolved {
		return nil
	}
	if err := w.alerts.Resolve(inv, alertID, actor.Name); err != nil {
		return err
	}
	inv.Touch(w.clock.Now())
	w.timeline.record(inv, byActor(actor), entryNote{action: "Alert resolved", detail: string(alert.Kind)}, inv.Status)
	return nil
}

// RefreshAlerts recomputes age-based alerts and closes SLA alerts on
// finalized invoices. It returns true when the alert set changed.
func (w *Workflow) RefreshAlerts(inv *Invoice) bool {
	if inv.IsClosed() {
		return w.alerts.ResolveKinds(inv, bySystem.name, AlertKindSLABreach, AlertKindCriticalStatus) > 0
	}
	return len(w.alerts.Evaluate(inv)) > 0
}

// authorize validates the actor and checks ownership
func (w *Workflow) authorize(inv *Invoice, actor Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	return inv.CheckOwner(actor)
}
