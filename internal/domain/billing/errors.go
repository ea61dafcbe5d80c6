package billing

import (
	"fmt"

	"github.com/erp/billing/internal/domain/shared"
)

// Error codes. They are part of the API contract.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidAmount      = "INVALID_AMOUNT"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeOverpayment        = "OVERPAYMENT_REJECTED"
	CodeCurrencyMismatch   = "CURRENCY_MISMATCH"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeSequenceConflict   = "SEQUENCE_CONFLICT"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
)

// Sentinels for errors.Is. Returned errors carry a specific message but
// compare equal to these through shared.DomainError.Is.
var (
	ErrValidation         = shared.NewDomainError(CodeValidation, "validation failed")
	ErrInvalidAmount      = shared.NewDomainError(CodeInvalidAmount, "invalid amount")
	ErrInvalidTransition  = shared.NewDomainError(CodeInvalidTransition, "invalid status transition")
	ErrOverpayment        = shared.NewDomainError(CodeOverpayment, "payment exceeds pending balance")
	ErrCurrencyMismatch   = shared.NewDomainError(CodeCurrencyMismatch, "currency mismatch")
	ErrInsufficientStock  = shared.NewDomainError(CodeInsufficientStock, "insufficient stock")
	ErrSequenceConflict   = shared.NewDomainError(CodeSequenceConflict, "invoice sequence was modified concurrently")
	ErrPersistenceFailure = shared.NewDomainError(CodePersistenceFailure, "could not persist the operation")
)

func validationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) error {
	return validationError(format, args...)
}

// NewInsufficientStockError names the product that could not be covered.
func NewInsufficientStockError(description string, requested string) error {
	return shared.NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %q: %s requested", description, requested))
}

// NewPersistenceFailure wraps a storage error in the PersistenceFailure code.
// The underlying cause stays out of the message and must be logged by the caller.
func NewPersistenceFailure(operation string) error {
	return shared.NewDomainError(CodePersistenceFailure,
		fmt.Sprintf("could not %s, nothing was applied; retry later", operation))
}
