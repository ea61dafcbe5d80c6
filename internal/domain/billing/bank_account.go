package billing

import (
	"strings"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType of a bank account
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

// BankAccount is where payments are deposited. Its currency is the
// settlement currency of every payment received into it.
type BankAccount struct {
	shared.TenantAggregateRoot
	BankName      string
	AccountNumber string
	AccountType   AccountType
	Currency      valueobject.Currency
	IsDefault     bool
	IsActive      bool
}

// NewBankAccount validates and creates an active bank account.
func NewBankAccount(tenantID uuid.UUID, bankName, accountNumber string, accountType AccountType, currency string) (*BankAccount, error) {
	bankName = strings.TrimSpace(bankName)
	if bankName == "" {
		return nil, validationError("bank name is required")
	}
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, validationError("account number is required")
	}
	if accountType == "" {
		accountType = AccountTypeChecking
	}
	if accountType != AccountTypeChecking && accountType != AccountTypeSavings {
		return nil, validationError("unknown account type %q", accountType)
	}
	cur, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, validationError("%s", err.Error())
	}

	return &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BankName:            bankName,
		AccountNumber:       accountNumber,
		AccountType:         accountType,
		Currency:            cur,
		IsActive:            true,
	}, nil
}

// MarkDefault makes this the tenant's default account. The repository clears
// the flag on the others in the same transaction.
func (a *BankAccount) MarkDefault() error {
	if !a.IsActive {
		return validationError("inactive bank account %s cannot be the default", a.AccountNumber)
	}
	a.IsDefault = true
	a.IncrementVersion()
	return nil
}

// Deactivate stops the account from receiving new payments.
func (a *BankAccount) Deactivate() {
	a.IsActive = false
	a.IsDefault = false
	a.IncrementVersion()
}

// AccountBalance is the treasury view of one account: everything received.
type AccountBalance struct {
	BankAccountID uuid.UUID            `json:"bank_account_id"`
	BankName      string               `json:"bank_name"`
	AccountNumber string               `json:"account_number"`
	Currency      valueobject.Currency `json:"currency"`
	Balance       decimal.Decimal      `json:"balance"`
	PaymentCount  int64                `json:"payment_count"`
}
