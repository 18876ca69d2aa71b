package receiving

import (
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Policy holds the tunable numbers of the workflow
type Policy struct {
	// Tolerance absorbs rounding in every monetary comparison
	Tolerance       decimal.Decimal
	SLAWarningDays  int
	SLACriticalDays int
}

// DefaultPolicy returns a 0.01 tolerance with SLA alerts at 5 and 7 days
func DefaultPolicy() Policy {
	return Policy{
		Tolerance:       decimal.New(1, -2),
		SLAWarningDays:  5,
		SLACriticalDays: 7,
	}
}

// author identifies who wrote a timeline entry
type author struct {
	name string
	role string
}

func byActor(a Actor) author {
	return author{name: a.Name, role: a.Department.String()}
}

var bySystem = author{name: "system", role: systemRole}

// entryNote is the human-readable part of a timeline entry
type entryNote struct {
	action string
	detail string
	impact *decimal.Decimal
}

// TimelineRecorder appends audit entries. Entries are never edited once written.
type TimelineRecorder struct {
	ids   shared.IDGenerator
	clock shared.Clock
}

// NewTimelineRecorder creates a new TimelineRecorder
func NewTimelineRecorder(ids shared.IDGenerator, clock shared.Clock) *TimelineRecorder {
	return &TimelineRecorder{ids: ids, clock: clock}
}

func (r *TimelineRecorder) record(inv *Invoice, by author, note entryNote, before InvoiceStatus) {
	inv.Timeline = append(inv.Timeline, TimelineEntry{
		ID:              r.ids.NewID(),
		ActorName:       by.name,
		ActorRole:       by.role,
		Action:          note.action,
		Detail:          note.detail,
		FinancialImpact: note.impact,
		StatusBefore:    before,
		StatusAfter:     inv.Status,
		At:              r.clock.Now(),
	})
}

var triggerActions = map[Trigger]string{
	TriggerProductsRegistered:   "Products registered",
	TriggerPaymentReceived:      "Payment received",
	TriggerBalanceSettled:       "Balance settled",
	TriggerInspectionProgressed: "Conference started",
	TriggerInspectionCompleted:  "Conference completed",
	TriggerPaymentDue:           "Final payment requested",
	TriggerDivergenceDetected:   "Divergence reported",
	TriggerRejectionIssued:      "Invoice rejected",
}

// StateMachine applies table transitions, hands the invoice to the next
// owner and writes one timeline entry per applied transition.
type StateMachine struct {
	policy   Policy
	timeline *TimelineRecorder
	clock    shared.Clock
}

// NewStateMachine creates a new StateMachine
func NewStateMachine(policy Policy, timeline *TimelineRecorder, clock shared.Clock) *StateMachine {
	return &StateMachine{policy: policy, timeline: timeline, clock: clock}
}

// Next resolves the successor status without touching the invoice
func (m *StateMachine) Next(inv *Invoice, trigger Trigger) (InvoiceStatus, error) {
	return NextStatus(inv, trigger, m.policy.Tolerance)
}

// Transition fires a trigger on behalf of an actor. On IllegalTransition the
// invoice is left unchanged.
func (m *StateMachine) Transition(inv *Invoice, trigger Trigger, actor Actor) error {
	return m.fire(inv, trigger, byActor(actor), entryNote{})
}

func (m *StateMachine) fire(inv *Invoice, trigger Trigger, by author, note entryNote) error {
	next, err := m.Next(inv, trigger)
	if err != nil {
		return err
	}

	now := m.clock.Now()
	before, beforeOwner := inv.Status, inv.CurrentOwner
	inv.Status = next
	inv.CurrentOwner = OwnerFor(next)
	inv.Touch(now)

	if note.action == "" {
		note.action = triggerActions[trigger]
	}
	m.timeline.record(inv, by, note, before)
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, trigger, before, beforeOwner, now))

	if next == InvoiceStatusFinalized {
		inv.FinalizedAt = &now
		inv.AddDomainEvent(NewInvoiceFinalizedEvent(inv, now))
	}
	return nil
}

// settle runs the closure check once the conference is complete: a settled
// balance finalizes the invoice, an open one is handed to Finance.
func (m *StateMachine) settle(inv *Invoice, by author) error {
	if inv.Status != InvoiceStatusConferenceCompleted {
		return nil
	}
	if inv.IsSettled(m.policy.Tolerance) {
		return m.fire(inv, TriggerBalanceSettled, by, entryNote{})
	}
	return m.fire(inv, TriggerPaymentDue, by, entryNote{})
}
