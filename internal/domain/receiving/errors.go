package receiving

import (
	"fmt"

	"github.com/resale/backoffice/internal/domain/shared"
)

func illegalTransition(from InvoiceStatus, trigger Trigger) error {
	return shared.NewDomainError(shared.CodeIllegalTransition,
		fmt.Sprintf("Trigger %s is not allowed in %s status", trigger, from))
}

func overRegistration(informed, registered, adding int) error {
	return shared.NewDomainError(shared.CodeOverRegistration,
		fmt.Sprintf("Registering %d units would exceed the %d informed (already registered %d)", adding, informed, registered))
}

func validationError(format string, args ...any) error {
	return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf(format, args...))
}
