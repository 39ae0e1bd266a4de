package dto

import (
	"net/http"
	"strings"

	"github.com/dairyops/backend/internal/domain/shared"
)

// Transport error codes. Business failures carry the domain error codes.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Codes missing
// here fall back to the naming rules in GetHTTPStatus.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeRouteNotFound:   http.StatusNotFound,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	shared.CodeValidationFailed: http.StatusBadRequest,

	// Conflicts with the current state of a resource -> 409
	shared.CodeDuplicatePayoutPeriod:  http.StatusConflict,
	shared.CodeInvalidStateTransition: http.StatusConflict,
	shared.CodeConcurrencyConflict:    http.StatusConflict,

	// Well-formed requests the ledger cannot honor -> 422
	shared.CodeInsufficientStock: http.StatusUnprocessableEntity,
	shared.CodeNoAcceptedVolume:  http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// INVALID_* codes are 400, *_NOT_FOUND codes are 404, and anything else
// unknown is 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
