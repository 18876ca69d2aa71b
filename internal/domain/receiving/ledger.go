package receiving

import (
	"fmt"
	"strings"

	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PrepaidMethod marks the ledger entry written when a prepaid invoice is created
const PrepaidMethod = "PREPAID"

// ClassifyPayment derives the kind of a payment from the balance around it:
// the first payment is INITIAL, one that closes the balance is FINAL, the
// rest are PARTIAL.
func ClassifyPayment(paidBefore, balanceAfter, tolerance decimal.Decimal) PaymentKind {
	switch {
	case paidBefore.IsZero():
		return PaymentKindInitial
	case balanceAfter.LessThanOrEqual(tolerance):
		return PaymentKindFinal
	default:
		return PaymentKindPartial
	}
}

// RegisterPayment appends a payment to the ledger and fires PAYMENT_RECEIVED.
// When the balance closes it also fires BALANCE_SETTLED, which finalizes the
// invoice if the conference finished first.
func (w *Workflow) RegisterPayment(inv *Invoice, in PaymentInput, actor Actor) (*Payment, error) {
	if err := w.authorize(inv, actor); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, validationError("Payment amount must be positive")
	}
	if strings.TrimSpace(in.Method) == "" {
		return nil, validationError("Payment method cannot be empty")
	}

	tolerance := w.policy.Tolerance
	outstanding := inv.OutstandingBalance()
	if in.Amount.GreaterThan(outstanding.Add(tolerance)) {
		return nil, shared.NewDomainError(shared.CodeExceedsBalance,
			fmt.Sprintf("Payment of %s exceeds the outstanding balance of %s", in.Amount.StringFixed(2), outstanding.StringFixed(2)))
	}
	if _, err := w.machine.Next(inv, TriggerPaymentReceived); err != nil {
		return nil, err
	}

	now := w.clock.Now()
	payment := Payment{
		ID:          w.ids.NewID(),
		Amount:      in.Amount,
		Method:      in.Method,
		Account:     in.Account,
		Responsible: actor.Name,
		Kind:        ClassifyPayment(inv.AmountPaid(), outstanding.Sub(in.Amount), tolerance),
		PaidAt:      now,
	}
	if ref := strings.TrimSpace(in.ReceiptRef); ref != "" {
		payment.ReceiptRef = &ref
	}
	inv.Payments = append(inv.Payments, payment)
	inv.Touch(now)

	by := byActor(actor)
	amount := payment.Amount
	note := entryNote{
		action: humanize(string(payment.Kind)) + " payment registered",
		detail: strings.TrimSpace(fmt.Sprintf("%s %s", payment.Method, payment.Account)),
		impact: &amount,
	}
	if err := w.machine.fire(inv, TriggerPaymentReceived, by, note); err != nil {
		return nil, err
	}
	inv.AddDomainEvent(NewPaymentRegisteredEvent(inv, &payment, now))

	if inv.IsSettled(tolerance) {
		if err := w.machine.fire(inv, TriggerBalanceSettled, by, entryNote{}); err != nil {
			return nil, err
		}
	}
	if err := w.machine.settle(inv, by); err != nil {
		return nil, err
	}
	return &payment, nil
}
