package billing

import (
	"fmt"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest is one real-world receipt to apply to an invoice.
type PaymentRequest struct {
	// Amount in the invoice currency. May be zero when the settlement
	// currency differs and ReceivedAmount is given; it is then derived.
	Amount decimal.Decimal
	// Currency requested for settlement. Optional; a bank account's currency wins.
	Currency       string
	ReceivedAmount *decimal.Decimal
	BankAccount    *BankAccount
	Method         PaymentMethod
	Reference      string
	Notes          string
	PaidAt         time.Time
	IdempotencyKey string
	CreatedBy      *uuid.UUID
}

// Reconciler validates and applies payments. BaseCurrency is the local
// currency that exchange rates are quoted in: an invoice's ExchangeRate is
// the number of base units per invoice-currency unit, or per unit of the
// foreign settlement currency when the invoice itself is in base currency.
type Reconciler struct {
	BaseCurrency valueobject.Currency
}

// NewReconciler creates a reconciler for base.
func NewReconciler(base valueobject.Currency) Reconciler {
	if base == "" {
		base = valueobject.DefaultCurrency
	}
	return Reconciler{BaseCurrency: base}
}

// DeriveStatus is the single rule mapping a paid amount to a status for an
// invoice that has left draft. epsilon is one minor unit: anything strictly
// closer to the grand total than that counts as settled, so an invoice
// totalling zero is paid as soon as it is issued.
func DeriveStatus(paid, grand, epsilon decimal.Decimal) InvoiceStatus {
	switch {
	case grand.Sub(paid).LessThan(epsilon):
		return InvoiceStatusPaid
	case paid.IsPositive():
		return InvoiceStatusPartial
	default:
		return InvoiceStatusIssued
	}
}

// Apply validates req against inv and, on success, mutates inv and returns
// the payment to persist. Checks run in order: status, amount, overpayment,
// currency. Nothing is mutated when an error is returned.
func (r Reconciler) Apply(inv *Invoice, req PaymentRequest) (*Payment, error) {
	t, err := Guard(inv.Status, ActionApplyPayment)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, validationError("unknown payment method %q", req.Method)
	}
	if req.BankAccount != nil && !req.BankAccount.IsActive {
		return nil, validationError("bank account %s is inactive", req.BankAccount.AccountNumber)
	}

	settlement, currencyErr := r.settlementCurrency(inv, req)
	eps := inv.Epsilon()

	amount := req.Amount
	if amount.IsZero() && currencyErr == nil && req.ReceivedAmount != nil && settlement != inv.Currency {
		if converted, ok := r.toInvoiceCurrency(inv, settlement, *req.ReceivedAmount); ok {
			amount = inv.Currency.Round(converted)
		}
	}

	if !amount.IsPositive() {
		return nil, shared.NewDomainError(CodeInvalidAmount,
			fmt.Sprintf("payment amount must be greater than 0, got %s", amount))
	}
	if !amount.Equal(inv.Currency.Round(amount)) {
		return nil, shared.NewDomainError(CodeInvalidAmount,
			fmt.Sprintf("payment amount %s has more than %d decimals for %s", amount, inv.Currency.Scale(), inv.Currency))
	}

	pending := inv.PendingBalance()
	if amount.GreaterThanOrEqual(pending.Add(eps)) {
		return nil, shared.NewDomainError(CodeOverpayment,
			fmt.Sprintf("amount %s exceeds pending balance of %s %s",
				inv.Currency.Format(amount), inv.Currency.Format(pending), inv.Currency))
	}

	if currencyErr != nil {
		return nil, currencyErr
	}
	received, err := r.receivedAmount(inv, settlement, amount, req.ReceivedAmount)
	if err != nil {
		return nil, err
	}

	newPaid := inv.PaidAmount.Add(amount)
	status := DeriveStatus(newPaid, inv.Totals.GrandTotal, eps)
	if !t.Allows(status) {
		return nil, invalidTransition(inv.Status, ActionApplyPayment)
	}

	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	p := &Payment{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       inv.TenantID,
		InvoiceID:      inv.ID,
		Amount:         amount,
		Currency:       settlement,
		ReceivedAmount: received,
		ExchangeRate:   inv.ExchangeRate,
		Method:         method,
		Reference:      req.Reference,
		Notes:          req.Notes,
		PaidAt:         paidAt,
		IdempotencyKey: req.IdempotencyKey,
		CreatedBy:      req.CreatedBy,
	}
	if req.BankAccount != nil {
		id := req.BankAccount.ID
		p.BankAccountID = &id
	}

	inv.PaidAmount = newPaid
	inv.Status = status
	inv.IncrementVersion()
	inv.AddDomainEvent(NewPaymentRegisteredEvent(inv, p))
	return p, nil
}

// Revert is the exact inverse of Apply for payment p.
func (r Reconciler) Revert(inv *Invoice, p *Payment) error {
	if p.InvoiceID != inv.ID {
		return validationError("payment %s does not belong to invoice %s", p.ID, inv.displayNumber())
	}
	t, err := Guard(inv.Status, ActionRevertPayment)
	if err != nil {
		return err
	}

	newPaid := inv.PaidAmount.Sub(p.Amount)
	if newPaid.IsNegative() {
		newPaid = decimal.Zero
	}
	status := DeriveStatus(newPaid, inv.Totals.GrandTotal, inv.Epsilon())
	if !t.Allows(status) {
		return invalidTransition(inv.Status, ActionRevertPayment)
	}

	inv.PaidAmount = newPaid
	inv.Status = status
	inv.IncrementVersion()
	inv.AddDomainEvent(NewPaymentDeletedEvent(inv, p))
	return nil
}

// settlementCurrency resolves the currency actually received. A bank account
// fixes it; a requested currency that contradicts the account is a mismatch.
func (r Reconciler) settlementCurrency(inv *Invoice, req PaymentRequest) (valueobject.Currency, error) {
	var requested valueobject.Currency
	if req.Currency != "" {
		parsed, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return inv.Currency, shared.NewDomainError(CodeCurrencyMismatch, err.Error())
		}
		requested = parsed
	}

	if req.BankAccount != nil {
		if requested != "" && requested != req.BankAccount.Currency {
			return req.BankAccount.Currency, shared.NewDomainError(CodeCurrencyMismatch,
				fmt.Sprintf("payment currency %s does not match bank account %s currency %s",
					requested, req.BankAccount.AccountNumber, req.BankAccount.Currency))
		}
		return req.BankAccount.Currency, nil
	}
	if requested != "" {
		return requested, nil
	}
	return inv.Currency, nil
}

// receivedAmount checks or defaults the amount in settlement currency.
func (r Reconciler) receivedAmount(inv *Invoice, settlement valueobject.Currency, amount decimal.Decimal, received *decimal.Decimal) (decimal.Decimal, error) {
	if settlement == inv.Currency {
		if received != nil && !received.IsZero() && received.Sub(amount).Abs().GreaterThan(inv.Epsilon()) {
			return decimal.Zero, shared.NewDomainError(CodeCurrencyMismatch,
				fmt.Sprintf("received amount %s differs from payment amount %s in the same currency %s",
					settlement.Format(*received), inv.Currency.Format(amount), inv.Currency))
		}
		return amount, nil
	}

	if received == nil || !received.IsPositive() {
		return decimal.Zero, shared.NewDomainError(CodeCurrencyMismatch,
			fmt.Sprintf("invoice is in %s but the payment settles in %s; the received amount in %s is required",
				inv.Currency, settlement, settlement))
	}

	converted, ok := r.toInvoiceCurrency(inv, settlement, *received)
	if !ok {
		return decimal.Zero, shared.NewDomainError(CodeCurrencyMismatch,
			fmt.Sprintf("no conversion path from %s to %s: rates are quoted against %s",
				settlement, inv.Currency, r.BaseCurrency))
	}
	if inv.Currency.Round(converted).Sub(amount).Abs().GreaterThan(inv.Epsilon()) {
		expected, _ := r.fromInvoiceCurrency(inv, settlement, amount)
		return decimal.Zero, shared.NewDomainError(CodeCurrencyMismatch,
			fmt.Sprintf("received %s %s is inconsistent with %s %s at rate %s; expected about %s %s",
				settlement.Format(*received), settlement, inv.Currency.Format(amount), inv.Currency,
				inv.ExchangeRate, settlement.Format(settlement.Round(expected)), settlement))
	}
	return settlement.Round(*received), nil
}

// toInvoiceCurrency converts an amount received in settlement currency.
func (r Reconciler) toInvoiceCurrency(inv *Invoice, settlement valueobject.Currency, received decimal.Decimal) (decimal.Decimal, bool) {
	switch {
	case settlement == inv.Currency:
		return received, true
	case settlement == r.BaseCurrency:
		return received.Div(inv.ExchangeRate), true
	case inv.Currency == r.BaseCurrency:
		return received.Mul(inv.ExchangeRate), true
	}
	return decimal.Zero, false
}

// fromInvoiceCurrency converts an invoice amount into settlement currency.
func (r Reconciler) fromInvoiceCurrency(inv *Invoice, settlement valueobject.Currency, amount decimal.Decimal) (decimal.Decimal, bool) {
	switch {
	case settlement == inv.Currency:
		return amount, true
	case settlement == r.BaseCurrency:
		return amount.Mul(inv.ExchangeRate), true
	case inv.Currency == r.BaseCurrency:
		return amount.Div(inv.ExchangeRate), true
	}
	return decimal.Zero, false
}
