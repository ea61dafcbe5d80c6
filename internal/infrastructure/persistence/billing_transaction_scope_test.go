package persistence

import (
	"context"
	"errors"
	"testing"

	appbilling "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// rowOutbox writes one outbox row per event through the given transaction
type rowOutbox struct {
	calls int
}

func (o *rowOutbox) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	o.calls++
	for _, e := range events {
		entry := shared.NewOutboxEntry(e.TenantID(), e, []byte(`{}`))
		if err := tx.WithContext(ctx).Create(models.OutboxEntryModelFromDomain(entry)).Error; err != nil {
			return err
		}
	}
	return nil
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestGormTransactionScope_CommitsStateAndEvents(t *testing.T) {
	db := setupBillingTestDB(t)
	outbox := &rowOutbox{}
	scope := NewGormTransactionScope(db, outbox, DefaultSequenceDefaults())
	ctx := context.Background()
	tenantID := uuid.New()

	inv := newDraftForRepo(t, tenantID, "Acme")
	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		seq, err := repos.Sequences().GetForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		seq.NextNumber++
		if err := repos.Sequences().Save(ctx, seq); err != nil {
			return err
		}
		return repos.Events().Record(ctx, inv.GetDomainEvents()...)
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRows(t, db, &models.InvoiceModel{}))
	assert.Equal(t, int64(1), countRows(t, db, &models.InvoiceSequenceModel{}))
	assert.Equal(t, int64(len(inv.GetDomainEvents())), countRows(t, db, &models.OutboxEntryModel{}))
}

func TestGormTransactionScope_RollsBackOnError(t *testing.T) {
	db := setupBillingTestDB(t)
	outbox := &rowOutbox{}
	scope := NewGormTransactionScope(db, outbox, DefaultSequenceDefaults())
	ctx := context.Background()
	tenantID := uuid.New()
	boom := errors.New("stock gateway down")

	inv := newDraftForRepo(t, tenantID, "Acme")
	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		if err := repos.Events().Record(ctx, inv.GetDomainEvents()...); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countRows(t, db, &models.InvoiceModel{}))
	assert.Zero(t, countRows(t, db, &models.InvoiceItemModel{}))
	assert.Zero(t, countRows(t, db, &models.OutboxEntryModel{}))
}

func TestGormTransactionScope_RecordWithoutEvents(t *testing.T) {
	db := setupBillingTestDB(t)
	outbox := &rowOutbox{}
	scope := NewGormTransactionScope(db, outbox, DefaultSequenceDefaults())
	ctx := context.Background()

	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		return repos.Events().Record(ctx)
	})

	require.NoError(t, err)
	assert.Zero(t, outbox.calls)
}

func TestGormTransactionScope_ExposesBankAndStock(t *testing.T) {
	db := setupBillingTestDB(t)
	scope := NewGormTransactionScope(db, &rowOutbox{}, SequenceDefaults{})
	ctx := context.Background()
	tenantID := uuid.New()
	productID := uuid.New()
	seedStock(t, db, tenantID, productID, nil, "5")

	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		accounts, err := repos.BankAccounts().List(ctx, tenantID, true)
		if err != nil {
			return err
		}
		assert.Empty(t, accounts)

		seq, err := repos.Sequences().Get(ctx, tenantID)
		if err != nil {
			return err
		}
		assert.Equal(t, "FAC", seq.Prefix)

		return repos.Stock().Apply(ctx, tenantID, nil)
	})
	require.NoError(t, err)

	assert.True(t, stockOf(t, db, productID, nil).Equal(dec("5")))
}
