package billing

import (
	"context"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
)

// TransactionScope runs a unit of work in one database transaction. If fn
// returns an error everything it did is rolled back, including outbox rows
// and stock movements.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories that share the
// transaction of the enclosing Execute call.
type TransactionalRepositories interface {
	Invoices() billing.InvoiceRepository
	Payments() billing.PaymentRepository
	Sequences() billing.SequenceRepository
	BankAccounts() billing.BankAccountRepository
	Stock() billing.StockGateway
	// Events writes domain events to the outbox inside the transaction.
	Events() EventRecorder
}

// EventRecorder stores domain events for later delivery.
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}
