package models

import (
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	TenantAggregateModel
	// Number stays NULL until issue so drafts never collide on the
	// (tenant_id, number) unique index.
	Number           *string               `gorm:"type:varchar(60);index"`
	InvoiceType      billing.InvoiceType   `gorm:"column:invoice_type;type:varchar(20);not null;default:'invoice'"`
	Status           billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	ClientID         *uuid.UUID            `gorm:"type:uuid;index"`
	ClientName       string                `gorm:"type:varchar(200);not null"`
	ClientCode       string                `gorm:"type:varchar(50)"`
	ClientTaxID      string                `gorm:"column:client_tax_id;type:varchar(50)"`
	ClientAddress    string                `gorm:"type:varchar(500)"`
	PriceListID      *uuid.UUID            `gorm:"type:uuid"`
	Currency         string                `gorm:"type:varchar(3);not null"`
	ExchangeRate     decimal.Decimal       `gorm:"type:decimal(18,6);not null;default:1"`
	IssueDate        time.Time             `gorm:"not null;index"`
	DueDate          *time.Time
	PaymentTermsDays int                   `gorm:"not null;default:0"`
	Notes            string                `gorm:"type:text"`
	Subtotal         decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountTotal    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TaxTotal         decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	IssuedAt         *time.Time
	CancelledAt      *time.Time
	Items            []InvoiceItemModel    `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Type:                m.InvoiceType,
		Status:              m.Status,
		Client: billing.ClientSnapshot{
			ClientID: m.ClientID,
			Name:     m.ClientName,
			Code:     m.ClientCode,
			TaxID:    m.ClientTaxID,
			Address:  m.ClientAddress,
		},
		PriceListID:      m.PriceListID,
		Currency:         valueobject.Currency(m.Currency),
		ExchangeRate:     m.ExchangeRate,
		IssueDate:        m.IssueDate,
		DueDate:          m.DueDate,
		PaymentTermsDays: m.PaymentTermsDays,
		Notes:            m.Notes,
		Totals: billing.InvoiceTotals{
			Subtotal:      m.Subtotal,
			DiscountTotal: m.DiscountTotal,
			TaxTotal:      m.TaxTotal,
			GrandTotal:    m.GrandTotal,
		},
		PaidAmount:  m.PaidAmount,
		IssuedAt:    m.IssuedAt,
		CancelledAt: m.CancelledAt,
		Items:       make([]billing.InvoiceItem, len(m.Items)),
	}
	if m.Number != nil {
		inv.Number = *m.Number
	}
	for i := range m.Items {
		inv.Items[i] = m.Items[i].ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.Number = nil
	if inv.Number != "" {
		number := inv.Number
		m.Number = &number
	}
	m.InvoiceType = inv.Type
	m.Status = inv.Status
	m.ClientID = inv.Client.ClientID
	m.ClientName = inv.Client.Name
	m.ClientCode = inv.Client.Code
	m.ClientTaxID = inv.Client.TaxID
	m.ClientAddress = inv.Client.Address
	m.PriceListID = inv.PriceListID
	m.Currency = inv.Currency.String()
	m.ExchangeRate = inv.ExchangeRate
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.PaymentTermsDays = inv.PaymentTermsDays
	m.Notes = inv.Notes
	m.Subtotal = inv.Totals.Subtotal
	m.DiscountTotal = inv.Totals.DiscountTotal
	m.TaxTotal = inv.Totals.TaxTotal
	m.GrandTotal = inv.Totals.GrandTotal
	m.PaidAmount = inv.PaidAmount
	m.IssuedAt = inv.IssuedAt
	m.CancelledAt = inv.CancelledAt
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i := range inv.Items {
		m.Items[i].FromDomain(inv.TenantID, inv.ID, inv.Items[i], inv.UpdatedAt)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is one stored invoice line with its computed amounts.
type InvoiceItemModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo          int             `gorm:"not null"`
	ProductID       *uuid.UUID      `gorm:"type:uuid;index"`
	VariantID       *uuid.UUID      `gorm:"type:uuid"`
	Code            string          `gorm:"type:varchar(50)"`
	Description     string          `gorm:"type:varchar(500);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	Gross           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Taxable         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Tax             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem.
func (m *InvoiceItemModel) ToDomain() billing.InvoiceItem {
	item := billing.InvoiceItem{
		ID:        m.ID,
		InvoiceID: m.InvoiceID,
		LineNo:    m.LineNo,
		LineItem: billing.LineItem{
			VariantID:       m.VariantID,
			Code:            m.Code,
			Description:     m.Description,
			Quantity:        m.Quantity,
			UnitPrice:       m.UnitPrice,
			DiscountPercent: m.DiscountPercent,
			TaxRate:         m.TaxRate,
		},
		Amounts: billing.LineAmounts{
			Gross:    m.Gross,
			Discount: m.Discount,
			Taxable:  m.Taxable,
			Tax:      m.Tax,
			Total:    m.Total,
		},
	}
	if m.ProductID != nil {
		item.ProductID = *m.ProductID
	}
	return item
}

// FromDomain populates the model from a domain line. Free-text lines have no
// product and are stored with a NULL product_id.
func (m *InvoiceItemModel) FromDomain(tenantID, invoiceID uuid.UUID, item billing.InvoiceItem, at time.Time) {
	m.ID = item.ID
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.TenantID = tenantID
	m.InvoiceID = invoiceID
	m.LineNo = item.LineNo
	m.ProductID = nil
	if item.ProductID != uuid.Nil {
		productID := item.ProductID
		m.ProductID = &productID
	}
	m.VariantID = item.VariantID
	m.Code = item.Code
	m.Description = item.Description
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.DiscountPercent = item.DiscountPercent
	m.TaxRate = item.TaxRate
	m.Gross = item.Amounts.Gross
	m.Discount = item.Amounts.Discount
	m.Taxable = item.Amounts.Taxable
	m.Tax = item.Amounts.Tax
	m.Total = item.Amounts.Total
	m.CreatedAt = at
}

// PaymentModel is the persistence model for a Payment.
type PaymentModel struct {
	BaseModel
	TenantID       uuid.UUID             `gorm:"type:uuid;not null;index;uniqueIndex:idx_payment_tenant_idempotency,priority:1"`
	InvoiceID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency       string                `gorm:"type:varchar(3);not null"`
	ReceivedAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	ExchangeRate   decimal.Decimal       `gorm:"type:decimal(18,6);not null;default:1"`
	Method         billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	BankAccountID  *uuid.UUID            `gorm:"type:uuid;index"`
	Reference      string                `gorm:"type:varchar(100)"`
	Notes          string                `gorm:"type:text"`
	PaidAt         time.Time             `gorm:"not null;index"`
	// IdempotencyKey is NULL when the caller sent none.
	IdempotencyKey *string    `gorm:"type:varchar(100);uniqueIndex:idx_payment_tenant_idempotency,priority:2"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *billing.Payment {
	p := &billing.Payment{
		BaseEntity:     m.toEntity(),
		TenantID:       m.TenantID,
		InvoiceID:      m.InvoiceID,
		Amount:         m.Amount,
		Currency:       valueobject.Currency(m.Currency),
		ReceivedAmount: m.ReceivedAmount,
		ExchangeRate:   m.ExchangeRate,
		Method:         m.Method,
		BankAccountID:  m.BankAccountID,
		Reference:      m.Reference,
		Notes:          m.Notes,
		PaidAt:         m.PaidAt,
		CreatedBy:      m.CreatedBy,
	}
	if m.IdempotencyKey != nil {
		p.IdempotencyKey = *m.IdempotencyKey
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment.
func (m *PaymentModel) FromDomain(p *billing.Payment) {
	m.fromEntity(p.BaseEntity)
	m.TenantID = p.TenantID
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.Currency = p.Currency.String()
	m.ReceivedAmount = p.ReceivedAmount
	m.ExchangeRate = p.ExchangeRate
	m.Method = p.Method
	m.BankAccountID = p.BankAccountID
	m.Reference = p.Reference
	m.Notes = p.Notes
	m.PaidAt = p.PaidAt
	m.CreatedBy = p.CreatedBy
	m.IdempotencyKey = nil
	if p.HasIdempotencyKey() {
		key := p.IdempotencyKey
		m.IdempotencyKey = &key
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// InvoiceSequenceModel is the single numbering row of a tenant.
type InvoiceSequenceModel struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix     string    `gorm:"type:varchar(20);not null"`
	Pattern    string    `gorm:"type:varchar(100);not null"`
	NextNumber int64     `gorm:"not null;default:1"`
	Version    int       `gorm:"not null;default:1"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}

// ToDomain converts the persistence model to a domain InvoiceSequence.
func (m *InvoiceSequenceModel) ToDomain() *billing.InvoiceSequence {
	return &billing.InvoiceSequence{
		TenantID:   m.TenantID,
		Prefix:     m.Prefix,
		Pattern:    m.Pattern,
		NextNumber: m.NextNumber,
		Version:    m.Version,
		UpdatedAt:  m.UpdatedAt,
	}
}

// InvoiceSequenceModelFromDomain creates a new persistence model from a domain InvoiceSequence.
func InvoiceSequenceModelFromDomain(s *billing.InvoiceSequence) *InvoiceSequenceModel {
	return &InvoiceSequenceModel{
		TenantID:   s.TenantID,
		Prefix:     s.Prefix,
		Pattern:    s.Pattern,
		NextNumber: s.NextNumber,
		Version:    s.Version,
		UpdatedAt:  s.UpdatedAt,
	}
}

// BankAccountModel is the persistence model for a BankAccount.
type BankAccountModel struct {
	TenantAggregateModel
	BankName      string              `gorm:"type:varchar(100);not null"`
	AccountNumber string              `gorm:"type:varchar(50);not null"`
	AccountType   billing.AccountType `gorm:"type:varchar(20);not null;default:'checking'"`
	Currency      string              `gorm:"type:varchar(3);not null"`
	IsDefault     bool                `gorm:"not null;default:false"`
	IsActive      bool                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount.
func (m *BankAccountModel) ToDomain() *billing.BankAccount {
	return &billing.BankAccount{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		BankName:            m.BankName,
		AccountNumber:       m.AccountNumber,
		AccountType:         m.AccountType,
		Currency:            valueobject.Currency(m.Currency),
		IsDefault:           m.IsDefault,
		IsActive:            m.IsActive,
	}
}

// BankAccountModelFromDomain creates a new persistence model from a domain BankAccount.
func BankAccountModelFromDomain(a *billing.BankAccount) *BankAccountModel {
	m := &BankAccountModel{
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		AccountType:   a.AccountType,
		Currency:      a.Currency.String(),
		IsDefault:     a.IsDefault,
		IsActive:      a.IsActive,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}
