package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrConflict) matches any conflict.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps cause for logging and errors.As.
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes
const (
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	CodeDownstreamFailure = "DOWNSTREAM_FAILURE"
	CodeScanInProgress    = "SCAN_IN_PROGRESS"
)

// Common domain errors
var (
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict          = NewDomainError(CodeConflict, "Resource was already resolved")
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrSourceUnavailable = NewDomainError(CodeSourceUnavailable, "Folder source is unavailable")
	ErrDownstreamFailure = NewDomainError(CodeDownstreamFailure, "Downstream record creation failed")
	ErrScanInProgress    = NewDomainError(CodeScanInProgress, "A scan is already in progress")
)
