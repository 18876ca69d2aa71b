package receiving

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RegisterProducts appends received lines. Registering zero lines is a no-op.
// The first registration, or any registration on a DIVERGENT invoice, fires
// PRODUCTS_REGISTERED.
func (w *Workflow) RegisterProducts(inv *Invoice, inputs []LineInput, actor Actor) ([]ProductLine, error) {
	if err := w.authorize(inv, actor); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	adding := 0
	cost := decimal.Zero
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		adding += in.Quantity
		cost = cost.Add(in.UnitCost.Mul(decimal.NewFromInt(int64(in.Quantity))))
	}

	registered := inv.QuantityRegistered()
	if registered+adding > inv.QuantityInformed {
		return nil, overRegistration(inv.QuantityInformed, registered, adding)
	}

	resubmitting := inv.Status == InvoiceStatusDivergent
	fires := registered == 0 || resubmitting
	if fires {
		if _, err := w.machine.Next(inv, TriggerProductsRegistered); err != nil {
			return nil, err
		}
	}

	now := w.clock.Now()
	added := make([]ProductLine, 0, len(inputs))
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		line := ProductLine{
			ID:               w.ids.NewID(),
			Category:         in.Category,
			Brand:            in.Brand,
			Model:            in.Model,
			SerialNumber:     in.SerialNumber,
			UnitCost:         in.UnitCost,
			Quantity:         in.Quantity,
			ReceiptStatus:    ReceiptStatusReceived,
			InspectionStatus: InspectionStatusPending,
			New:              in.New,
			RegisteredAt:     now,
		}
		inv.Lines = append(inv.Lines, line)
		added = append(added, line)
		ids = append(ids, line.ID)
	}
	inv.Touch(now)

	by := byActor(actor)
	note := entryNote{
		action: fmt.Sprintf("Registered %d units in %d lines", adding, len(inputs)),
		impact: &cost,
	}
	if fires {
		if resubmitting {
			w.alerts.ResolveKinds(inv, actor.Name, AlertKindDivergence)
		}
		if err := w.machine.fire(inv, TriggerProductsRegistered, by, note); err != nil {
			return nil, err
		}
	} else {
		w.timeline.record(inv, by, note, inv.Status)
	}
	inv.AddDomainEvent(NewProductsRegisteredEvent(inv, ids, adding, now))

	if err := w.machine.settle(inv, by); err != nil {
		return nil, err
	}
	return added, nil
}

// InspectProducts marks registered lines as inspected. The first inspection
// fires INSPECTION_PROGRESSED; reaching the informed quantity fires
// INSPECTION_COMPLETED and then the closure check.
func (w *Workflow) InspectProducts(inv *Invoice, lineIDs []uuid.UUID, actor Actor) error {
	return w.InspectWithDefects(inv, lineIDs, nil, actor)
}

// InspectWithDefects inspects lineIDs and reports the defective ones in the
// same step. Defects are recorded before the closure check, so the last batch
// of a prepaid conference can still be credited after the invoice closes.
// Defective lines must be in the batch or already inspected.
func (w *Workflow) InspectWithDefects(inv *Invoice, lineIDs, defectiveIDs []uuid.UUID, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	if len(lineIDs) == 0 {
		return validationError("At least one line must be inspected")
	}
	if !inv.Status.AllowsInspection() {
		return illegalTransition(inv.Status, TriggerInspectionProgressed)
	}

	adding := 0
	seen := make(map[uuid.UUID]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		if _, dup := seen[id]; dup {
			return validationError("Line %s listed more than once", id)
		}
		seen[id] = struct{}{}

		line := inv.GetLine(id)
		if line == nil {
			return validationError("Line %s does not belong to this invoice", id)
		}
		if line.ReceiptStatus != ReceiptStatusReceived {
			return shared.NewDomainError(shared.CodeOverInspection, fmt.Sprintf("Line %s has not been received", id))
		}
		if line.IsInspected() {
			return shared.NewDomainError(shared.CodeOverInspection, fmt.Sprintf("Line %s was already inspected", id))
		}
		adding += line.Quantity
	}

	inspected := inv.QuantityInspected()
	if inspected+adding > inv.QuantityRegistered() {
		return shared.ErrOverInspection
	}

	var impact decimal.Decimal
	if len(defectiveIDs) > 0 {
		var err error
		if impact, err = defectImpact(inv, defectiveIDs, seen); err != nil {
			return err
		}
	}

	starts := inspected == 0
	if starts {
		if _, err := w.machine.Next(inv, TriggerInspectionProgressed); err != nil {
			return err
		}
	}

	now := w.clock.Now()
	for _, id := range lineIDs {
		line := inv.GetLine(id)
		line.InspectionStatus = InspectionStatusInspected
		line.InspectedAt = &now
	}
	inv.Touch(now)

	by := byActor(actor)
	note := entryNote{action: fmt.Sprintf("Inspected %d units in %d lines", adding, len(lineIDs))}
	if starts {
		if err := w.machine.fire(inv, TriggerInspectionProgressed, by, note); err != nil {
			return err
		}
	} else {
		w.timeline.record(inv, by, note, inv.Status)
	}
	inv.AddDomainEvent(NewProductsInspectedEvent(inv, lineIDs, now))
	if len(defectiveIDs) > 0 {
		w.flagDefective(inv, defectiveIDs, impact, by)
	}

	if inv.IsConferenceComplete() {
		if err := w.machine.fire(inv, TriggerInspectionCompleted, by, entryNote{}); err != nil {
			return err
		}
	}
	return w.machine.settle(inv, by)
}

// MarkDefective flags inspected lines as defective. Defective units leave the
// available quantity but still count as registered and inspected. Lines in
// the New category cannot be reported.
func (w *Workflow) MarkDefective(inv *Invoice, lineIDs []uuid.UUID, actor Actor) error {
	if err := w.authorize(inv, actor); err != nil {
		return err
	}
	impact, err := defectImpact(inv, lineIDs, nil)
	if err != nil {
		return err
	}
	w.flagDefective(inv, lineIDs, impact, byActor(actor))
	return nil
}

// defectImpact checks that every line can be reported defective and sums the
// cost. Lines in inspecting count as inspected.
func defectImpact(inv *Invoice, lineIDs []uuid.UUID, inspecting map[uuid.UUID]struct{}) (decimal.Decimal, error) {
	if len(lineIDs) == 0 {
		return decimal.Zero, validationError("At least one line must be reported")
	}

	impact := decimal.Zero
	seen := make(map[uuid.UUID]struct{}, len(lineIDs))
	for _, id := range lineIDs {
		if _, dup := seen[id]; dup {
			return decimal.Zero, validationError("Line %s listed more than once", id)
		}
		seen[id] = struct{}{}

		line := inv.GetLine(id)
		if line == nil {
			return decimal.Zero, validationError("Line %s does not belong to this invoice", id)
		}
		_, inBatch := inspecting[id]
		switch {
		case line.New:
			return decimal.Zero, validationError("Line %s is in the New category and exempt from defect reporting", id)
		case !line.IsInspected() && !inBatch:
			return decimal.Zero, validationError("Line %s must be inspected before it can be reported defective", id)
		case line.Defective:
			return decimal.Zero, validationError("Line %s is already reported defective", id)
		}
		impact = impact.Add(line.Cost())
	}
	return impact, nil
}

func (w *Workflow) flagDefective(inv *Invoice, lineIDs []uuid.UUID, impact decimal.Decimal, by author) {
	for _, id := range lineIDs {
		inv.GetLine(id).Defective = true
	}
	inv.Touch(w.clock.Now())
	w.timeline.record(inv, by, entryNote{
		action: fmt.Sprintf("Reported %d lines defective", len(lineIDs)),
		impact: &impact,
	}, inv.Status)
}
