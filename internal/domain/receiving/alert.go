package receiving

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/shared"
)

// AlertKind identifies why an alert was raised
type AlertKind string

const (
	AlertKindSLABreach      AlertKind = "SLA_BREACH"
	AlertKindCriticalStatus AlertKind = "CRITICAL_STATUS"
	AlertKindDivergence     AlertKind = "DIVERGENCE"
)

// AlertSeverity grades an alert
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "INFO"
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is raised by the AlertEngine. Only the resolution fields ever change.
type Alert struct {
	ID          uuid.UUID     `json:"id"`
	Kind        AlertKind     `json:"kind"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	ElapsedDays int           `json:"elapsed_days"`
	Resolved    bool          `json:"resolved"`
	RaisedAt    time.Time     `json:"raised_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy  string        `json:"resolved_by,omitempty"`
}

// DaysElapsed returns the invoice age in whole days, rounded up
func DaysElapsed(createdAt, now time.Time) int {
	if !now.After(createdAt) {
		return 0
	}
	return int(math.Ceil(now.Sub(createdAt).Hours() / 24))
}

// AlertEngine derives alerts from invoice age and disputes. Evaluation is a
// pure function of the invoice and the clock, so it runs on every read.
type AlertEngine struct {
	policy Policy
	clock  shared.Clock
}

// NewAlertEngine creates a new AlertEngine
func NewAlertEngine(policy Policy, clock shared.Clock) *AlertEngine {
	return &AlertEngine{policy: policy, clock: clock}
}

// Evaluate raises any SLA alert the invoice is due and returns the newly
// raised ones. Calling it again without a state or clock change adds nothing.
func (e *AlertEngine) Evaluate(inv *Invoice) []Alert {
	if inv.IsClosed() {
		return nil
	}
	now := e.clock.Now()
	days := DaysElapsed(inv.CreatedAt, now)

	raised := make([]Alert, 0)
	if days >= e.policy.SLAWarningDays {
		msg := fmt.Sprintf("Invoice %s has been open for %d days", inv.InvoiceNumber, days)
		if a, ok := e.ensure(inv, AlertKindSLABreach, AlertSeverityWarning, msg, days, now); ok {
			raised = append(raised, a)
		}
	}
	if days >= e.policy.SLACriticalDays {
		msg := fmt.Sprintf("Invoice %s is %d days old and still with %s", inv.InvoiceNumber, days, inv.CurrentOwner)
		if a, ok := e.ensure(inv, AlertKindCriticalStatus, AlertSeverityCritical, msg, days, now); ok {
			raised = append(raised, a)
		}
	}
	return raised
}

// ensure appends an alert of the kind unless one is open or one was resolved
// at the current age.
func (e *AlertEngine) ensure(inv *Invoice, kind AlertKind, severity AlertSeverity, msg string, days int, now time.Time) (Alert, bool) {
	for _, existing := range inv.Alerts {
		if existing.Kind != kind {
			continue
		}
		if !existing.Resolved {
			return Alert{}, false
		}
		if existing.ResolvedAt != nil && DaysElapsed(inv.CreatedAt, *existing.ResolvedAt) >= days {
			return Alert{}, false
		}
	}
	alert := Alert{
		ID:          alertID(inv, kind),
		Kind:        kind,
		Severity:    severity,
		Message:     msg,
		ElapsedDays: days,
		RaisedAt:    now,
	}
	inv.Alerts = append(inv.Alerts, alert)
	return alert, true
}

// RaiseDivergence records a dispute. An already open divergence alert is reused.
func (e *AlertEngine) RaiseDivergence(inv *Invoice, msg string) Alert {
	for _, existing := range inv.Alerts {
		if existing.Kind == AlertKindDivergence && !existing.Resolved {
			return existing
		}
	}
	now := e.clock.Now()
	alert := Alert{
		ID:          alertID(inv, AlertKindDivergence),
		Kind:        AlertKindDivergence,
		Severity:    AlertSeverityWarning,
		Message:     msg,
		ElapsedDays: DaysElapsed(inv.CreatedAt, now),
		RaisedAt:    now,
	}
	inv.Alerts = append(inv.Alerts, alert)
	return alert
}

// Resolve marks an alert resolved. Resolving twice is a no-op.
func (e *AlertEngine) Resolve(inv *Invoice, alertID uuid.UUID, by string) error {
	alert := inv.GetAlert(alertID)
	if alert == nil {
		return shared.NewDomainError(shared.CodeNotFound, "Alert not found on this invoice")
	}
	if alert.Resolved {
		return nil
	}
	now := e.clock.Now()
	alert.Resolved = true
	alert.ResolvedAt = &now
	alert.ResolvedBy = by
	return nil
}

// ResolveKinds resolves every open alert of the given kinds and returns how many changed
func (e *AlertEngine) ResolveKinds(inv *Invoice, by string, kinds ...AlertKind) int {
	now := e.clock.Now()
	resolved := 0
	for i := range inv.Alerts {
		a := &inv.Alerts[i]
		if a.Resolved {
			continue
		}
		for _, k := range kinds {
			if a.Kind == k {
				a.Resolved = true
				a.ResolvedAt = &now
				a.ResolvedBy = by
				resolved++
				break
			}
		}
	}
	return resolved
}

// alertID derives a stable id from the invoice, the kind and how many alerts
// of that kind came before, so projections on read keep the same ids.
func alertID(inv *Invoice, kind AlertKind) uuid.UUID {
	n := 0
	for _, a := range inv.Alerts {
		if a.Kind == kind {
			n++
		}
	}
	return uuid.NewSHA1(inv.ID, []byte(fmt.Sprintf("%s:%d", kind, n)))
}
