package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so that
// errors.Is(err, shared.ErrInsufficientStock) matches detailed copies.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of the error with extra context attached
func (e *DomainError) WithDetails(kv map[string]any) *DomainError {
	details := make(map[string]any, len(e.Details)+len(kv))
	for k, v := range e.Details {
		details[k] = v
	}
	for k, v := range kv {
		details[k] = v
	}
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(code, fmt.Sprintf(format, args...))
}

// Error codes
const (
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInvalidUnitCost        = "INVALID_UNIT_COST"
	CodeInvalidExpiry          = "INVALID_EXPIRY"
	CodeInvalidPeriod          = "INVALID_PERIOD"
	CodeInvalidDeduction       = "INVALID_DEDUCTION"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeNoAcceptedVolume       = "NO_ACCEPTED_VOLUME"
	CodeDuplicatePayoutPeriod  = "DUPLICATE_PAYOUT_PERIOD"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeMaterialNotFound       = "MATERIAL_NOT_FOUND"
	CodeBatchNotFound          = "BATCH_NOT_FOUND"
	CodeRecipeNotFound         = "RECIPE_NOT_FOUND"
	CodeCollectionNotFound     = "COLLECTION_NOT_FOUND"
	CodePayoutNotFound         = "PAYOUT_NOT_FOUND"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeValidationFailed       = "VALIDATION_FAILED"
)

// Common domain errors
var (
	ErrInvalidQuantity        = NewDomainError(CodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidUnitCost        = NewDomainError(CodeInvalidUnitCost, "Unit cost cannot be negative")
	ErrInvalidExpiry          = NewDomainError(CodeInvalidExpiry, "Expiry cannot be before the receipt time")
	ErrInvalidPeriod          = NewDomainError(CodeInvalidPeriod, "Period end cannot be before period start")
	ErrInvalidDeduction       = NewDomainError(CodeInvalidDeduction, "Transport deduction is invalid")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrNoAcceptedVolume       = NewDomainError(CodeNoAcceptedVolume, "No accepted volume for the payout period")
	ErrDuplicatePayoutPeriod  = NewDomainError(CodeDuplicatePayoutPeriod, "A payout already exists for this supplier and period")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Operation not allowed in current state")
	ErrMaterialNotFound       = NewDomainError(CodeMaterialNotFound, "Material not found")
	ErrBatchNotFound          = NewDomainError(CodeBatchNotFound, "Batch not found")
	ErrRecipeNotFound         = NewDomainError(CodeRecipeNotFound, "Recipe not found")
	ErrCollectionNotFound     = NewDomainError(CodeCollectionNotFound, "Collection not found")
	ErrPayoutNotFound         = NewDomainError(CodePayoutNotFound, "Payout not found")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrValidationFailed       = NewDomainError(CodeValidationFailed, "Validation failed")
)

// InvalidTransition builds an InvalidStateTransition error for an entity
func InvalidTransition(entity, from, action string) *DomainError {
	return &DomainError{
		Code:    CodeInvalidStateTransition,
		Message: fmt.Sprintf("Cannot %s %s in %s status", action, entity, from),
		Details: map[string]any{"entity": entity, "status": from, "action": action},
	}
}

// AsDomainError unwraps err into a DomainError when possible
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
