package receiving

import (
	"fmt"
	"strings"

	"github.com/resale/backoffice/internal/domain/shared"
)

// Reject returns an invoice from Finance to Warehouse. It raises a divergence
// alert and moves the invoice to DIVERGENT; the reason and note go into the
// single timeline entry of the transition.
func (w *Workflow) Reject(inv *Invoice, reason RejectionReason, note string, actor Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if actor.Department != DepartmentFinance || inv.CurrentOwner != DepartmentFinance {
		return shared.NewDomainError(shared.CodeNotOwner, "Only Finance can reject an invoice it currently controls")
	}
	if !reason.IsValid() {
		return validationError("Unknown rejection reason %q", reason)
	}
	if _, err := w.machine.Next(inv, TriggerRejectionIssued); err != nil {
		return err
	}

	note = strings.TrimSpace(note)
	w.alerts.RaiseDivergence(inv, fmt.Sprintf("Rejected by %s: %s", actor.Name, reason.Label()))
	if err := w.machine.fire(inv, TriggerRejectionIssued, byActor(actor), entryNote{
		action: "Invoice rejected: " + reason.Label(),
		detail: note,
	}); err != nil {
		return err
	}
	inv.AddDomainEvent(NewInvoiceRejectedEvent(inv, reason, note, actor.Department, w.clock.Now()))
	return nil
}

// FlagDivergence lets Warehouse dispute the registered data during the
// conference. The invoice stays with Warehouse in DIVERGENT until resubmitted.
func (w *Workflow) FlagDivergence(inv *Invoice, reason RejectionReason, note string, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	if !reason.IsValid() {
		return validationError("Unknown divergence reason %q", reason)
	}
	if _, err := w.machine.Next(inv, TriggerDivergenceDetected); err != nil {
		return err
	}

	note = strings.TrimSpace(note)
	w.alerts.RaiseDivergence(inv, fmt.Sprintf("Divergence reported by %s: %s", actor.Name, reason.Label()))
	if err := w.machine.fire(inv, TriggerDivergenceDetected, byActor(actor), entryNote{
		action: "Divergence reported: " + reason.Label(),
		detail: note,
	}); err != nil {
		return err
	}
	inv.AddDomainEvent(NewInvoiceRejectedEvent(inv, reason, note, actor.Department, w.clock.Now()))
	return nil
}

// Resubmit re-enters a corrected DIVERGENT invoice into the flow without
// adding lines. The resumed status depends on the current counters.
func (w *Workflow) Resubmit(inv *Invoice, note string, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	if inv.Status != InvoiceStatusDivergent {
		return illegalTransition(inv.Status, TriggerProductsRegistered)
	}
	if _, err := w.machine.Next(inv, TriggerProductsRegistered); err != nil {
		return err
	}

	by := byActor(actor)
	w.alerts.ResolveKinds(inv, actor.Name, AlertKindDivergence)
	if err := w.machine.fire(inv, TriggerProductsRegistered, by, entryNote{
		action: "Invoice resubmitted",
		detail: strings.TrimSpace(note),
	}); err != nil {
		return err
	}
	return w.machine.settle(inv, by)
}
