package persistence

import (
	"context"
	"errors"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindByIdempotencyKey returns the payment registered under key, or ErrNotFound
func (r *GormPaymentRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*billing.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("tenant_id = ? AND idempotency_key = ?", tenantID, key))
}

func (r *GormPaymentRepository) first(query *gorm.DB) (*billing.Payment, error) {
	var model models.PaymentModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByInvoice returns the payments of an invoice in the order they were made
func (r *GormPaymentRepository) ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("paid_at ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	payments := make([]billing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

func (r *GormPaymentRepository) Create(ctx context.Context, p *billing.Payment) error {
	return r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(p)).Error
}

func (r *GormPaymentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.PaymentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type accountBalanceRow struct {
	BankAccountID uuid.UUID
	BankName      string
	AccountNumber string
	Currency      string
	Balance       decimal.Decimal
	PaymentCount  int64
}

// AccountBalances sums the received amount of every payment per active bank
// account. Accounts without payments report zero.
func (r *GormPaymentRepository) AccountBalances(ctx context.Context, tenantID uuid.UUID) ([]billing.AccountBalance, error) {
	var rows []accountBalanceRow
	err := r.db.WithContext(ctx).
		Table("bank_accounts AS a").
		Select(`a.id AS bank_account_id, a.bank_name, a.account_number, a.currency,
			COALESCE(SUM(p.received_amount), 0) AS balance, COUNT(p.id) AS payment_count`).
		Joins("LEFT JOIN payments AS p ON p.bank_account_id = a.id AND p.tenant_id = a.tenant_id").
		Where("a.tenant_id = ? AND a.is_active = ?", tenantID, true).
		Group("a.id, a.bank_name, a.account_number, a.currency").
		Order("a.bank_name ASC, a.account_number ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	balances := make([]billing.AccountBalance, len(rows))
	for i, row := range rows {
		balances[i] = billing.AccountBalance{
			BankAccountID: row.BankAccountID,
			BankName:      row.BankName,
			AccountNumber: row.AccountNumber,
			Currency:      valueobject.Currency(row.Currency),
			Balance:       row.Balance,
			PaymentCount:  row.PaymentCount,
		}
	}
	return balances, nil
}

type movementRow struct {
	models.PaymentModel
	InvoiceNumber *string
	ClientName    string
}

// RecentMovements returns the latest payments with their invoice context,
// newest first.
func (r *GormPaymentRepository) RecentMovements(ctx context.Context, tenantID uuid.UUID, limit int) ([]billing.Movement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var rows []movementRow
	err := r.db.WithContext(ctx).
		Table("payments AS p").
		Select("p.*, i.number AS invoice_number, i.client_name").
		Joins("JOIN invoices AS i ON i.id = p.invoice_id AND i.tenant_id = p.tenant_id").
		Where("p.tenant_id = ?", tenantID).
		Order("p.paid_at DESC, p.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	movements := make([]billing.Movement, len(rows))
	for i, row := range rows {
		m := billing.Movement{
			PaymentID:      row.ID,
			InvoiceID:      row.InvoiceID,
			ClientName:     row.ClientName,
			Amount:         row.Amount,
			ReceivedAmount: row.ReceivedAmount,
			Currency:       valueobject.Currency(row.Currency),
			Method:         row.Method,
			BankAccountID:  row.BankAccountID,
			Reference:      row.Reference,
			PaidAt:         row.PaidAt,
		}
		if row.InvoiceNumber != nil {
			m.InvoiceNumber = *row.InvoiceNumber
		}
		movements[i] = m
	}
	return movements, nil
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
