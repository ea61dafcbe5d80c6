package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/billing/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockSequenceRepo(t *testing.T) (*GormSequenceRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewGormSequenceRepository(gormDB, SequenceDefaults{}), mock, mockDB
}

func TestGormSequenceRepository_GetForUpdate_SQL(t *testing.T) {
	repo, mock, mockDB := newMockSequenceRepo(t)
	defer mockDB.Close()
	tenantID := uuid.New()

	mock.ExpectExec(`INSERT INTO "invoice_sequences" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "invoice_sequences" WHERE tenant_id = \$1 .*FOR UPDATE`).
		WithArgs(tenantID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "prefix", "pattern", "next_number", "version"}).
			AddRow(tenantID.String(), "FAC", billing.DefaultPattern, 42, 7))

	seq, err := repo.GetForUpdate(context.Background(), tenantID)

	require.NoError(t, err)
	assert.Equal(t, int64(42), seq.NextNumber)
	assert.Equal(t, 7, seq.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSequenceRepository_Save_SQL(t *testing.T) {
	tenantID := uuid.New()

	t.Run("guards on the loaded version", func(t *testing.T) {
		repo, mock, mockDB := newMockSequenceRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "invoice_sequences" SET .* WHERE tenant_id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		seq := &billing.InvoiceSequence{TenantID: tenantID, Prefix: "FAC", Pattern: billing.DefaultPattern, NextNumber: 43, Version: 7}
		require.NoError(t, repo.Save(context.Background(), seq))
		assert.Equal(t, 8, seq.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows is a sequence conflict", func(t *testing.T) {
		repo, mock, mockDB := newMockSequenceRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "invoice_sequences" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		seq := &billing.InvoiceSequence{TenantID: tenantID, Version: 3}
		err := repo.Save(context.Background(), seq)
		assert.ErrorIs(t, err, billing.ErrSequenceConflict)
		assert.Equal(t, 3, seq.Version)
	})
}
