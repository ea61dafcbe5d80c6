package persistence

import (
	"context"

	appbilling "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxWriter stores events through the transaction handle it is given.
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to fn, and the outbox, share the transaction.
type GormTransactionScope struct {
	db        *gorm.DB
	outbox    OutboxWriter
	sequences SequenceDefaults
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxWriter, sequences SequenceDefaults) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox, sequences: sequences}
}

// Execute runs fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, scope: s})
	})
}

type gormTransactionalRepositories struct {
	tx    *gorm.DB
	scope *GormTransactionScope
}

func (r *gormTransactionalRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequences() billing.SequenceRepository {
	return NewGormSequenceRepository(r.tx, r.scope.sequences)
}

func (r *gormTransactionalRepositories) BankAccounts() billing.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Stock() billing.StockGateway {
	return NewGormStockGateway(r.tx)
}

func (r *gormTransactionalRepositories) Events() appbilling.EventRecorder {
	return outboxRecorder{tx: r.tx, outbox: r.scope.outbox}
}

type outboxRecorder struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

func (o outboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	return o.outbox.PublishWithTx(ctx, o.tx, events...)
}

var _ appbilling.TransactionScope = (*GormTransactionScope)(nil)

var _ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
