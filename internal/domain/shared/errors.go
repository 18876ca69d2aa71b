package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors created with
// NewDomainError and a specific message still match the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeValidation        = "VALIDATION_ERROR"
	CodeStateConflict     = "STATE_CONFLICT"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeNotOwner          = "NOT_OWNER"
	CodeOverRegistration  = "OVER_REGISTRATION"
	CodeOverInspection    = "OVER_INSPECTION"
	CodeExceedsBalance    = "EXCEEDS_BALANCE"
	CodeDuplicateRequest  = "DUPLICATE_REQUEST"
)

// Common domain errors
var (
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists     = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrStateConflict     = NewDomainError(CodeStateConflict, "Resource was modified by another process")
	ErrIllegalTransition = NewDomainError(CodeIllegalTransition, "Transition not allowed from the current status")
	ErrNotOwner          = NewDomainError(CodeNotOwner, "Department does not currently own this resource")
	ErrOverRegistration  = NewDomainError(CodeOverRegistration, "Registered quantity would exceed the informed quantity")
	ErrOverInspection    = NewDomainError(CodeOverInspection, "Inspected quantity would exceed the registered quantity")
	ErrExceedsBalance    = NewDomainError(CodeExceedsBalance, "Amount exceeds the outstanding balance")
	ErrDuplicateRequest  = NewDomainError(CodeDuplicateRequest, "Request with this idempotency key was already processed")
)
