package billing

import (
	"context"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BankAccountService manages the accounts payments are deposited into.
type BankAccountService struct {
	coordinator
	accountRepo billing.BankAccountRepository
}

// NewBankAccountService creates a new BankAccountService
func NewBankAccountService(scope TransactionScope, accountRepo billing.BankAccountRepository, locker Locker, cfg ServiceConfig, logger *zap.Logger) *BankAccountService {
	return &BankAccountService{
		coordinator: newCoordinator(scope, locker, cfg, logger),
		accountRepo: accountRepo,
	}
}

// Create registers a bank account, making it the default when asked.
func (s *BankAccountService) Create(ctx context.Context, tenantID uuid.UUID, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	account, err := billing.NewBankAccount(tenantID, req.BankName, req.AccountNumber,
		billing.AccountType(req.AccountType), req.Currency)
	if err != nil {
		return nil, err
	}
	if req.IsDefault {
		if err := account.MarkDefault(); err != nil {
			return nil, err
		}
	}

	err = s.execute(ctx, "create the bank account", func(repos TransactionalRepositories) error {
		if account.IsDefault {
			if err := repos.BankAccounts().ClearDefault(ctx, tenantID); err != nil {
				return err
			}
		}
		return repos.BankAccounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bank account created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("bank_account_id", account.ID.String()),
		zap.String("currency", account.Currency.String()))

	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// List returns the tenant's bank accounts.
func (s *BankAccountService) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]BankAccountResponse, error) {
	accounts, err := s.accountRepo.List(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, s.translate("list bank accounts", err)
	}
	out := make([]BankAccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToBankAccountResponse(&accounts[i])
	}
	return out, nil
}

// SetDefault makes accountID the tenant's default account.
func (s *BankAccountService) SetDefault(ctx context.Context, tenantID, accountID uuid.UUID) (*BankAccountResponse, error) {
	var account *billing.BankAccount
	err := s.execute(ctx, "set the default bank account", func(repos TransactionalRepositories) error {
		var err error
		account, err = repos.BankAccounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if err := account.MarkDefault(); err != nil {
			return err
		}
		if err := repos.BankAccounts().ClearDefault(ctx, tenantID); err != nil {
			return err
		}
		return repos.BankAccounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(account)
	return &resp, nil
}

// Deactivate stops an account from receiving payments. Its history stays.
func (s *BankAccountService) Deactivate(ctx context.Context, tenantID, accountID uuid.UUID) (*BankAccountResponse, error) {
	var account *billing.BankAccount
	err := s.execute(ctx, "deactivate the bank account", func(repos TransactionalRepositories) error {
		var err error
		account, err = repos.BankAccounts().FindByID(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		account.Deactivate()
		return repos.BankAccounts().Save(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(account)
	return &resp, nil
}
