package billing

import (
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the money was received.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodMobile   PaymentMethod = "mobile"
	PaymentMethodCheck    PaymentMethod = "check"
)

// IsValid checks if the method is a known PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodMobile, PaymentMethodCheck:
		return true
	}
	return false
}

// Payment is an immutable receipt against one invoice. Amount is expressed
// in the invoice currency; ReceivedAmount in the settlement Currency.
type Payment struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	InvoiceID      uuid.UUID
	Amount         decimal.Decimal
	Currency       valueobject.Currency
	ReceivedAmount decimal.Decimal
	ExchangeRate   decimal.Decimal
	Method         PaymentMethod
	BankAccountID  *uuid.UUID
	Reference      string
	Notes          string
	PaidAt         time.Time
	IdempotencyKey string
	CreatedBy      *uuid.UUID
}

// HasIdempotencyKey reports whether the payment was registered with a key.
func (p *Payment) HasIdempotencyKey() bool {
	return strings.TrimSpace(p.IdempotencyKey) != ""
}
