package billing

import (
	"context"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	shared.Filter
	Type     InvoiceType
	Status   InvoiceStatus
	ClientID *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate loads the invoice and holds a row lock until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, int64, error)
	Create(ctx context.Context, inv *Invoice) error
	// Update persists header and items with an optimistic version check and
	// returns shared.ErrConcurrencyConflict when the stored version moved.
	Update(ctx context.Context, inv *Invoice, expectedVersion int) error
	// Delete removes the invoice together with its items and payments.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// Movement is one treasury line: a payment as seen from the bank side.
type Movement struct {
	PaymentID      uuid.UUID            `json:"payment_id"`
	InvoiceID      uuid.UUID            `json:"invoice_id"`
	InvoiceNumber  string               `json:"invoice_number"`
	ClientName     string               `json:"client_name"`
	Amount         decimal.Decimal      `json:"amount"`
	ReceivedAmount decimal.Decimal      `json:"received_amount"`
	Currency       valueobject.Currency `json:"currency"`
	Method         PaymentMethod        `json:"method"`
	BankAccountID  *uuid.UUID           `json:"bank_account_id,omitempty"`
	Reference      string               `json:"reference,omitempty"`
	PaidAt         time.Time            `json:"paid_at"`
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*Payment, error)
	ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
	Create(ctx context.Context, p *Payment) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	AccountBalances(ctx context.Context, tenantID uuid.UUID) ([]AccountBalance, error)
	RecentMovements(ctx context.Context, tenantID uuid.UUID, limit int) ([]Movement, error)
}

// SequenceRepository defines persistence for the numbering resource.
type SequenceRepository interface {
	// Get returns the stored sequence, or the defaults when none exists yet.
	Get(ctx context.Context, tenantID uuid.UUID) (*InvoiceSequence, error)
	// GetForUpdate creates the row when missing and locks it for the
	// surrounding transaction.
	GetForUpdate(ctx context.Context, tenantID uuid.UUID) (*InvoiceSequence, error)
	// Save stores seq if the stored version still equals seq.Version and
	// bumps it. A stale version yields ErrSequenceConflict.
	Save(ctx context.Context, seq *InvoiceSequence) error
}

// BankAccountRepository defines the interface for bank account persistence
type BankAccountRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]BankAccount, error)
	Save(ctx context.Context, account *BankAccount) error
	// ClearDefault unsets the default flag on every account of the tenant.
	ClearDefault(ctx context.Context, tenantID uuid.UUID) error
}

// StockGateway executes the stock movements the lifecycle requests. It must
// run inside the caller's transaction and fail with ErrInsufficientStock,
// unmodified, when a decrement cannot be covered.
type StockGateway interface {
	Apply(ctx context.Context, tenantID uuid.UUID, adjustments []StockAdjustment) error
}
