package persistence

import (
	"context"
	"errors"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements billing.BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

func (r *GormBankAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns the tenant's accounts, default first
func (r *GormBankAccountRepository) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]billing.BankAccount, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rows []models.BankAccountModel
	if err := query.Order("is_default DESC, bank_name ASC, account_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]billing.BankAccount, len(rows))
	for i := range rows {
		accounts[i] = *rows[i].ToDomain()
	}
	return accounts, nil
}

// Save creates or updates an account
func (r *GormBankAccountRepository) Save(ctx context.Context, account *billing.BankAccount) error {
	return r.db.WithContext(ctx).Save(models.BankAccountModelFromDomain(account)).Error
}

// ClearDefault unsets the default flag on every account of the tenant
func (r *GormBankAccountRepository) ClearDefault(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.BankAccountModel{}).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Update("is_default", false).Error
}

var _ billing.BankAccountRepository = (*GormBankAccountRepository)(nil)
