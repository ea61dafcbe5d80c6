package dto

import (
	"net/http"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
)

// Billing error codes, as published by the domain
const (
	ErrCodeValidation         = billing.CodeValidation
	ErrCodeInvalidAmount      = billing.CodeInvalidAmount
	ErrCodeInvalidTransition  = billing.CodeInvalidTransition
	ErrCodeOverpayment        = billing.CodeOverpayment
	ErrCodeCurrencyMismatch   = billing.CodeCurrencyMismatch
	ErrCodeInsufficientStock  = billing.CodeInsufficientStock
	ErrCodeSequenceConflict   = billing.CodeSequenceConflict
	ErrCodePersistenceFailure = billing.CodePersistenceFailure
)

// Shared domain codes
var (
	ErrCodeNotFound            = shared.ErrNotFound.Code
	ErrCodeAlreadyExists       = shared.ErrAlreadyExists.Code
	ErrCodeInvalidInput        = shared.ErrInvalidInput.Code
	ErrCodeConcurrencyConflict = shared.ErrConcurrencyConflict.Code
	ErrCodeInvalidState        = shared.ErrInvalidState.Code
)

// Codes produced by the HTTP layer itself
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInvalidAmount:     http.StatusBadRequest,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeRouteNotFound:     http.StatusNotFound,
	ErrCodeAlreadyExists:     http.StatusConflict,
	ErrCodeInvalidTransition: http.StatusUnprocessableEntity,
	ErrCodeOverpayment:       http.StatusUnprocessableEntity,
	ErrCodeCurrencyMismatch:  http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	// Lock timeouts. Nothing was applied and the request can be retried.
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodePersistenceFailure:  http.StatusInternalServerError,
	ErrCodeInternal:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes, and SEQUENCE_CONFLICT which should never escape the
// services, are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
