package receiving

// InvoiceStatus represents where an invoice sits in the receiving workflow
type InvoiceStatus string

const (
	InvoiceStatusCreated                InvoiceStatus = "CREATED"
	InvoiceStatusAwaitingInitialPayment InvoiceStatus = "AWAITING_INITIAL_PAYMENT"
	InvoiceStatusPartialPaymentDone     InvoiceStatus = "PARTIAL_PAYMENT_DONE"
	InvoiceStatusPaymentCompleted       InvoiceStatus = "PAYMENT_COMPLETED"
	InvoiceStatusAwaitingConference     InvoiceStatus = "AWAITING_CONFERENCE"
	InvoiceStatusPartialConference      InvoiceStatus = "PARTIAL_CONFERENCE"
	InvoiceStatusConferenceCompleted    InvoiceStatus = "CONFERENCE_COMPLETED"
	InvoiceStatusAwaitingFinalPayment   InvoiceStatus = "AWAITING_FINAL_PAYMENT"
	InvoiceStatusDivergent              InvoiceStatus = "DIVERGENT"
	InvoiceStatusFinalized              InvoiceStatus = "FINALIZED"
)

// AllInvoiceStatuses lists every status in workflow order
var AllInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusCreated,
	InvoiceStatusAwaitingInitialPayment,
	InvoiceStatusPartialPaymentDone,
	InvoiceStatusPaymentCompleted,
	InvoiceStatusAwaitingConference,
	InvoiceStatusPartialConference,
	InvoiceStatusConferenceCompleted,
	InvoiceStatusAwaitingFinalPayment,
	InvoiceStatusDivergent,
	InvoiceStatusFinalized,
}

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusCreated, InvoiceStatusAwaitingInitialPayment, InvoiceStatusPartialPaymentDone,
		InvoiceStatusPaymentCompleted, InvoiceStatusAwaitingConference, InvoiceStatusPartialConference,
		InvoiceStatusConferenceCompleted, InvoiceStatusAwaitingFinalPayment, InvoiceStatusDivergent,
		InvoiceStatusFinalized:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses without outgoing transitions
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusFinalized
}

// AllowsInspection returns true while the physical conference is open
func (s InvoiceStatus) AllowsInspection() bool {
	switch s {
	case InvoiceStatusPaymentCompleted, InvoiceStatusAwaitingConference, InvoiceStatusPartialConference:
		return true
	}
	return false
}

// Trigger is a business event that may move an invoice to another status
type Trigger string

const (
	TriggerProductsRegistered   Trigger = "PRODUCTS_REGISTERED"
	TriggerPaymentReceived      Trigger = "PAYMENT_RECEIVED"
	TriggerBalanceSettled       Trigger = "BALANCE_SETTLED"
	TriggerInspectionProgressed Trigger = "INSPECTION_PROGRESSED"
	TriggerInspectionCompleted  Trigger = "INSPECTION_COMPLETED"
	TriggerPaymentDue           Trigger = "PAYMENT_DUE"
	TriggerDivergenceDetected   Trigger = "DIVERGENCE_DETECTED"
	TriggerRejectionIssued      Trigger = "REJECTION_ISSUED"
)

// AllTriggers lists every trigger
var AllTriggers = []Trigger{
	TriggerProductsRegistered,
	TriggerPaymentReceived,
	TriggerBalanceSettled,
	TriggerInspectionProgressed,
	TriggerInspectionCompleted,
	TriggerPaymentDue,
	TriggerDivergenceDetected,
	TriggerRejectionIssued,
}

// IsValid checks if the trigger is known
func (t Trigger) IsValid() bool {
	for _, known := range AllTriggers {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation of Trigger
func (t Trigger) String() string {
	return string(t)
}

// PaymentTerms describes when the supplier gets paid relative to the conference
type PaymentTerms string

const (
	PaymentTermsFullyPrepaid PaymentTerms = "FULLY_PREPAID"
	PaymentTermsPartial      PaymentTerms = "PARTIAL"
	PaymentTermsPostPaid     PaymentTerms = "POST_PAID"
)

// AllPaymentTerms lists every payment terms kind
var AllPaymentTerms = []PaymentTerms{PaymentTermsFullyPrepaid, PaymentTermsPartial, PaymentTermsPostPaid}

// IsValid checks if the payment terms value is known
func (t PaymentTerms) IsValid() bool {
	switch t {
	case PaymentTermsFullyPrepaid, PaymentTermsPartial, PaymentTermsPostPaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentTerms
func (t PaymentTerms) String() string {
	return string(t)
}

// Department identifies who currently controls an invoice
type Department string

const (
	DepartmentWarehouse Department = "WAREHOUSE"
	DepartmentFinance   Department = "FINANCE"
	DepartmentClosed    Department = "CLOSED"
)

// IsValid checks if the department value is known
func (d Department) IsValid() bool {
	switch d {
	case DepartmentWarehouse, DepartmentFinance, DepartmentClosed:
		return true
	}
	return false
}

// IsActor returns true for departments that can act on invoices
func (d Department) IsActor() bool {
	return d == DepartmentWarehouse || d == DepartmentFinance
}

// String returns the string representation of Department
func (d Department) String() string {
	return string(d)
}

// PaymentKind classifies a payment against the balance it was applied to
type PaymentKind string

const (
	PaymentKindInitial PaymentKind = "INITIAL"
	PaymentKindPartial PaymentKind = "PARTIAL"
	PaymentKindFinal   PaymentKind = "FINAL"
)

// ReceiptStatus tracks physical receipt of a product line
type ReceiptStatus string

const (
	ReceiptStatusReceived ReceiptStatus = "RECEIVED"
)

// InspectionStatus tracks the conference of a product line
type InspectionStatus string

const (
	InspectionStatusPending   InspectionStatus = "PENDING"
	InspectionStatusInspected InspectionStatus = "INSPECTED"
)

// RejectionReason is the coded cause Finance gives when returning an invoice
type RejectionReason string

const (
	RejectionReasonValueMismatch    RejectionReason = "VALUE_MISMATCH"
	RejectionReasonQuantityMismatch RejectionReason = "QUANTITY_MISMATCH"
	RejectionReasonMissingDocument  RejectionReason = "MISSING_DOCUMENT"
	RejectionReasonWrongSupplier    RejectionReason = "WRONG_SUPPLIER"
	RejectionReasonOther            RejectionReason = "OTHER"
)

// IsValid checks if the reason is known
func (r RejectionReason) IsValid() bool {
	switch r {
	case RejectionReasonValueMismatch, RejectionReasonQuantityMismatch, RejectionReasonMissingDocument,
		RejectionReasonWrongSupplier, RejectionReasonOther:
		return true
	}
	return false
}
