package receiving

// ownerByStatus is the handoff table: which department's queue an invoice
// sits in for each status.
var ownerByStatus = map[InvoiceStatus]Department{
	InvoiceStatusCreated:                DepartmentWarehouse,
	InvoiceStatusAwaitingInitialPayment: DepartmentFinance,
	InvoiceStatusPartialPaymentDone:     DepartmentFinance,
	InvoiceStatusPaymentCompleted:       DepartmentWarehouse,
	InvoiceStatusAwaitingConference:     DepartmentWarehouse,
	InvoiceStatusPartialConference:      DepartmentWarehouse,
	InvoiceStatusConferenceCompleted:    DepartmentFinance,
	InvoiceStatusAwaitingFinalPayment:   DepartmentFinance,
	InvoiceStatusDivergent:              DepartmentWarehouse,
	InvoiceStatusFinalized:              DepartmentClosed,
}

// OwnerFor returns the department that controls an invoice in the given status
func OwnerFor(status InvoiceStatus) Department {
	if owner, ok := ownerByStatus[status]; ok {
		return owner
	}
	return DepartmentClosed
}
