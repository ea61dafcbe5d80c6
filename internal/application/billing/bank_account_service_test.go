package billing

import (
	"context"
	"testing"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBankAccountService_Create(t *testing.T) {
	tenantID := uuid.New()

	t.Run("default account clears the previous default", func(t *testing.T) {
		scope := newFakeScope()
		svc := NewBankAccountService(scope, new(MockBankAccountRepository), newFakeLocker(), testConfig(), zap.NewNop())

		scope.accounts.On("ClearDefault", mock.Anything, tenantID).Return(nil).Once()
		scope.accounts.On("Save", mock.Anything, mock.AnythingOfType("*billing.BankAccount")).Return(nil).Once()

		resp, err := svc.Create(context.Background(), tenantID, CreateBankAccountRequest{
			BankName:      "Banesco",
			AccountNumber: "0134-0001",
			Currency:      "VES",
			IsDefault:     true,
		})

		require.NoError(t, err)
		assert.True(t, resp.IsDefault)
		assert.True(t, resp.IsActive)
		assert.Equal(t, "checking", resp.AccountType)
		scope.accounts.AssertExpectations(t)
	})

	t.Run("unknown currency", func(t *testing.T) {
		scope := newFakeScope()
		svc := NewBankAccountService(scope, new(MockBankAccountRepository), newFakeLocker(), testConfig(), zap.NewNop())

		_, err := svc.Create(context.Background(), tenantID, CreateBankAccountRequest{
			BankName:      "Banesco",
			AccountNumber: "0134-0001",
			Currency:      "XYZ",
		})

		require.Error(t, err)
		assert.Equal(t, billing.CodeValidation, shared.CodeOf(err))
		assert.Equal(t, 0, scope.calls)
	})
}

func TestBankAccountService_SetDefaultAndDeactivate(t *testing.T) {
	tenantID := uuid.New()
	scope := newFakeScope()
	svc := NewBankAccountService(scope, new(MockBankAccountRepository), newFakeLocker(), testConfig(), zap.NewNop())
	account, err := billing.NewBankAccount(tenantID, "Mercantil", "0105-0002", billing.AccountTypeSavings, "USD")
	require.NoError(t, err)

	scope.accounts.On("FindByID", mock.Anything, tenantID, account.ID).Return(account, nil)
	scope.accounts.On("ClearDefault", mock.Anything, tenantID).Return(nil)
	scope.accounts.On("Save", mock.Anything, account).Return(nil)

	resp, err := svc.SetDefault(context.Background(), tenantID, account.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsDefault)

	resp, err = svc.Deactivate(context.Background(), tenantID, account.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)
	assert.False(t, resp.IsDefault)

	_, err = svc.SetDefault(context.Background(), tenantID, account.ID)
	require.Error(t, err)
	assert.Equal(t, billing.CodeValidation, shared.CodeOf(err))
}

func TestBankAccountService_List(t *testing.T) {
	tenantID := uuid.New()
	reads := new(MockBankAccountRepository)
	svc := NewBankAccountService(newFakeScope(), reads, newFakeLocker(), testConfig(), zap.NewNop())
	account, err := billing.NewBankAccount(tenantID, "Mercantil", "0105-0002", "", "USD")
	require.NoError(t, err)

	reads.On("List", mock.Anything, tenantID, true).Return([]billing.BankAccount{*account}, nil)

	out, err := svc.List(context.Background(), tenantID, true)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "USD", out[0].Currency)
}
