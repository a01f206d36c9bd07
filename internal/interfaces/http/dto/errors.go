package dto

import (
	"net/http"

	"github.com/erp/sharepointsync/internal/domain/shared"
)

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when query or path parameters fail validation
	ErrCodeValidation = "VALIDATION_ERROR"
)

// Domain error codes, shared with the application layer
const (
	ErrCodeNotFound          = shared.CodeNotFound
	ErrCodeConflict          = shared.CodeConflict
	ErrCodeInvalidInput      = shared.CodeInvalidInput
	ErrCodeSourceUnavailable = shared.CodeSourceUnavailable
	ErrCodeDownstreamFailure = shared.CodeDownstreamFailure
	ErrCodeScanInProgress    = shared.CodeScanInProgress
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInvalidInput: http.StatusBadRequest,

	// the folder source is a dependency we could not reach
	ErrCodeSourceUnavailable: http.StatusServiceUnavailable,
	// record creation failed after the source was read
	ErrCodeDownstreamFailure: http.StatusBadGateway,
	ErrCodeScanInProgress:    http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
