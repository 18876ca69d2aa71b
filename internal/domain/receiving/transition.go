package receiving

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// transitionRule is one audited row of the workflow table. A rule applies to
// the listed payment terms only. Resume rules pick their successor from the
// invoice counters instead of a fixed status.
type transitionRule struct {
	From    InvoiceStatus
	Trigger Trigger
	Terms   []PaymentTerms
	To      InvoiceStatus
	Resume  bool
}

var (
	prepaidAndPostPaid = []PaymentTerms{PaymentTermsFullyPrepaid, PaymentTermsPostPaid}
	partialOnly        = []PaymentTerms{PaymentTermsPartial}
)

var transitionRules = []transitionRule{
	{From: InvoiceStatusCreated, Trigger: TriggerProductsRegistered, Terms: partialOnly, To: InvoiceStatusAwaitingInitialPayment},
	{From: InvoiceStatusCreated, Trigger: TriggerProductsRegistered, Terms: prepaidAndPostPaid, To: InvoiceStatusAwaitingConference},

	{From: InvoiceStatusAwaitingInitialPayment, Trigger: TriggerPaymentReceived, Terms: partialOnly, To: InvoiceStatusPartialPaymentDone},
	{From: InvoiceStatusAwaitingInitialPayment, Trigger: TriggerRejectionIssued, Terms: partialOnly, To: InvoiceStatusDivergent},

	{From: InvoiceStatusPartialPaymentDone, Trigger: TriggerPaymentReceived, Terms: partialOnly, To: InvoiceStatusPartialPaymentDone},
	{From: InvoiceStatusPartialPaymentDone, Trigger: TriggerBalanceSettled, Terms: partialOnly, To: InvoiceStatusPaymentCompleted},
	{From: InvoiceStatusPartialPaymentDone, Trigger: TriggerRejectionIssued, Terms: partialOnly, To: InvoiceStatusDivergent},

	{From: InvoiceStatusPaymentCompleted, Trigger: TriggerInspectionProgressed, Terms: partialOnly, To: InvoiceStatusPartialConference},
	{From: InvoiceStatusPaymentCompleted, Trigger: TriggerDivergenceDetected, Terms: partialOnly, To: InvoiceStatusDivergent},

	{From: InvoiceStatusAwaitingConference, Trigger: TriggerInspectionProgressed, Terms: prepaidAndPostPaid, To: InvoiceStatusPartialConference},
	{From: InvoiceStatusAwaitingConference, Trigger: TriggerDivergenceDetected, Terms: prepaidAndPostPaid, To: InvoiceStatusDivergent},

	{From: InvoiceStatusPartialConference, Trigger: TriggerInspectionCompleted, Terms: AllPaymentTerms, To: InvoiceStatusConferenceCompleted},
	{From: InvoiceStatusPartialConference, Trigger: TriggerDivergenceDetected, Terms: AllPaymentTerms, To: InvoiceStatusDivergent},

	{From: InvoiceStatusConferenceCompleted, Trigger: TriggerBalanceSettled, Terms: AllPaymentTerms, To: InvoiceStatusFinalized},
	{From: InvoiceStatusConferenceCompleted, Trigger: TriggerPaymentDue, Terms: AllPaymentTerms, To: InvoiceStatusAwaitingFinalPayment},

	{From: InvoiceStatusAwaitingFinalPayment, Trigger: TriggerPaymentReceived, Terms: AllPaymentTerms, To: InvoiceStatusAwaitingFinalPayment},
	{From: InvoiceStatusAwaitingFinalPayment, Trigger: TriggerBalanceSettled, Terms: AllPaymentTerms, To: InvoiceStatusFinalized},
	{From: InvoiceStatusAwaitingFinalPayment, Trigger: TriggerRejectionIssued, Terms: AllPaymentTerms, To: InvoiceStatusDivergent},

	{From: InvoiceStatusDivergent, Trigger: TriggerProductsRegistered, Terms: AllPaymentTerms, Resume: true},
}

type transitionKey struct {
	terms   PaymentTerms
	from    InvoiceStatus
	trigger Trigger
}

var transitionTable = indexTransitionRules(transitionRules)

// indexTransitionRules expands the rules into a lookup table and panics on a
// duplicate key, which would make a successor ambiguous.
func indexTransitionRules(rules []transitionRule) map[transitionKey]transitionRule {
	table := make(map[transitionKey]transitionRule, len(rules)*2)
	for _, rule := range rules {
		for _, terms := range rule.Terms {
			key := transitionKey{terms: terms, from: rule.From, trigger: rule.Trigger}
			if _, dup := table[key]; dup {
				panic(fmt.Sprintf("receiving: duplicate transition %s/%s/%s", terms, rule.From, rule.Trigger))
			}
			table[key] = rule
		}
	}
	return table
}

// NextStatus resolves the successor of the invoice's current status for a
// trigger. It never mutates the invoice.
func NextStatus(inv *Invoice, trigger Trigger, tolerance decimal.Decimal) (InvoiceStatus, error) {
	rule, ok := transitionTable[transitionKey{terms: inv.PaymentTerms, from: inv.Status, trigger: trigger}]
	if !ok {
		return "", illegalTransition(inv.Status, trigger)
	}
	if rule.Resume {
		return resumeStatus(inv, tolerance), nil
	}
	return rule.To, nil
}

// resumeStatus picks where a corrected invoice re-enters the flow
func resumeStatus(inv *Invoice, tolerance decimal.Decimal) InvoiceStatus {
	inspected := inv.QuantityInspected()

	if inv.PaymentTerms == PaymentTermsPartial && !inv.IsSettled(tolerance) {
		if inv.AmountPaid().IsZero() {
			return InvoiceStatusAwaitingInitialPayment
		}
		return InvoiceStatusPartialPaymentDone
	}

	switch {
	case inv.IsConferenceComplete():
		return InvoiceStatusConferenceCompleted
	case inspected > 0:
		return InvoiceStatusPartialConference
	case inv.PaymentTerms == PaymentTermsPartial:
		return InvoiceStatusPaymentCompleted
	default:
		return InvoiceStatusAwaitingConference
	}
}

// IsTransitionDefined reports whether the table has a row for the combination
func IsTransitionDefined(terms PaymentTerms, from InvoiceStatus, trigger Trigger) bool {
	_, ok := transitionTable[transitionKey{terms: terms, from: from, trigger: trigger}]
	return ok
}
