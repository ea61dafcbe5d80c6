package billing

import (
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Invoice DTOs ====================

// LineItemInput is one line as entered by the user
type LineItemInput struct {
	ProductID       uuid.UUID       `json:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id"`
	Code            string          `json:"code" binding:"max=50"`
	Description     string          `json:"description" binding:"max=500"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

func (in LineItemInput) toDomain() billing.LineItem {
	return billing.LineItem{
		ProductID:       in.ProductID,
		VariantID:       in.VariantID,
		Code:            in.Code,
		Description:     in.Description,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		DiscountPercent: in.DiscountPercent,
		TaxRate:         in.TaxRate,
	}
}

func toLineItems(inputs []LineItemInput) []billing.LineItem {
	items := make([]billing.LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = in.toDomain()
	}
	return items
}

// CalculateRequest asks for live totals without saving anything
type CalculateRequest struct {
	Currency string          `json:"currency" binding:"omitempty,currency"`
	Items    []LineItemInput `json:"items" binding:"required,min=1,dive"`
}

// CalculationResponse holds per-line amounts and the aggregated totals
type CalculationResponse struct {
	Currency string                `json:"currency"`
	Lines    []billing.LineAmounts `json:"lines"`
	Totals   billing.InvoiceTotals `json:"totals"`
}

// InvoiceDraftRequest creates a draft, or replaces the content of one
type InvoiceDraftRequest struct {
	InvoiceType      string          `json:"invoice_type" binding:"omitempty,oneof=invoice quote credit_note debit_note"`
	ClientID         *uuid.UUID      `json:"client_id"`
	ClientName       string          `json:"client_name" binding:"required,min=1,max=200"`
	ClientCode       string          `json:"client_code" binding:"max=20"`
	ClientTaxID      string          `json:"client_tax_id" binding:"max=50"`
	ClientAddress    string          `json:"client_address" binding:"max=500"`
	PriceListID      *uuid.UUID      `json:"price_list_id"`
	Currency         string          `json:"currency" binding:"omitempty,currency"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	IssueDate        *time.Time      `json:"issue_date"`
	DueDate          *time.Time      `json:"due_date"`
	PaymentTermsDays int             `json:"payment_terms_days" binding:"min=0,max=3650"`
	Notes            string          `json:"notes" binding:"max=2000"`
	Items            []LineItemInput `json:"items" binding:"required,min=1,dive"`
}

func (r InvoiceDraftRequest) toDomain() billing.DraftInput {
	in := billing.DraftInput{
		Type: billing.InvoiceType(r.InvoiceType),
		Client: billing.ClientSnapshot{
			ClientID: r.ClientID,
			Name:     r.ClientName,
			Code:     r.ClientCode,
			TaxID:    r.ClientTaxID,
			Address:  r.ClientAddress,
		},
		PriceListID:      r.PriceListID,
		Currency:         r.Currency,
		ExchangeRate:     r.ExchangeRate,
		DueDate:          r.DueDate,
		PaymentTermsDays: r.PaymentTermsDays,
		Notes:            r.Notes,
		Items:            toLineItems(r.Items),
	}
	if r.IssueDate != nil {
		in.IssueDate = *r.IssueDate
	}
	return in
}

// InvoiceListFilter represents query parameters of the invoice list
type InvoiceListFilter struct {
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderDir    string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	InvoiceType string     `form:"invoice_type" binding:"omitempty,oneof=invoice quote credit_note debit_note"`
	Status      string     `form:"status" binding:"omitempty,oneof=draft issued partial paid cancelled"`
	ClientID    *uuid.UUID `form:"client_id"`
	FromDate    *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate      *time.Time `form:"to_date" time_format:"2006-01-02"`
}

func (f InvoiceListFilter) toDomain() billing.InvoiceFilter {
	base := shared.DefaultFilter()
	if f.Page > 0 {
		base.Page = f.Page
	}
	if f.PageSize > 0 {
		base.PageSize = f.PageSize
	}
	if f.OrderDir != "" {
		base.OrderDir = f.OrderDir
	}
	return billing.InvoiceFilter{
		Filter:   base.Normalize(),
		Type:     billing.InvoiceType(f.InvoiceType),
		Status:   billing.InvoiceStatus(f.Status),
		ClientID: f.ClientID,
		From:     f.FromDate,
		To:       f.ToDate,
	}
}

// InvoiceItemResponse represents a persisted line in API responses
type InvoiceItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	LineNo          int             `json:"line_no"`
	ProductID       uuid.UUID       `json:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id,omitempty"`
	Code            string          `json:"code,omitempty"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Gross           decimal.Decimal `json:"gross"`
	Discount        decimal.Decimal `json:"discount"`
	Taxable         decimal.Decimal `json:"taxable"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID               uuid.UUID             `json:"id"`
	Number           string                `json:"number,omitempty"`
	InvoiceType      string                `json:"invoice_type"`
	Status           string                `json:"status"`
	ClientID         *uuid.UUID            `json:"client_id,omitempty"`
	ClientName       string                `json:"client_name"`
	ClientCode       string                `json:"client_code,omitempty"`
	ClientTaxID      string                `json:"client_tax_id,omitempty"`
	ClientAddress    string                `json:"client_address,omitempty"`
	PriceListID      *uuid.UUID            `json:"price_list_id,omitempty"`
	Currency         string                `json:"currency"`
	ExchangeRate     decimal.Decimal       `json:"exchange_rate"`
	IssueDate        time.Time             `json:"issue_date"`
	DueDate          *time.Time            `json:"due_date,omitempty"`
	PaymentTermsDays int                   `json:"payment_terms_days"`
	Notes            string                `json:"notes,omitempty"`
	Items            []InvoiceItemResponse `json:"items"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	DiscountTotal    decimal.Decimal       `json:"discount_total"`
	TaxTotal         decimal.Decimal       `json:"tax_total"`
	GrandTotal       decimal.Decimal       `json:"grand_total"`
	PaidAmount       decimal.Decimal       `json:"paid_amount"`
	PendingBalance   decimal.Decimal       `json:"pending_balance"`
	IssuedAt         *time.Time            `json:"issued_at,omitempty"`
	CancelledAt      *time.Time            `json:"cancelled_at,omitempty"`
	Version          int                   `json:"version"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// InvoiceListItemResponse is the compact form used in listings
type InvoiceListItemResponse struct {
	ID             uuid.UUID       `json:"id"`
	Number         string          `json:"number,omitempty"`
	InvoiceType    string          `json:"invoice_type"`
	Status         string          `json:"status"`
	ClientName     string          `json:"client_name"`
	Currency       string          `json:"currency"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DeleteInvoiceResponse reports how an invoice was removed
type DeleteInvoiceResponse struct {
	ID      uuid.UUID `json:"id"`
	Forced  bool      `json:"forced"`
	Warning string    `json:"warning,omitempty"`
}

// ToInvoiceResponse converts a domain invoice to a response DTO
func ToInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	items := make([]InvoiceItemResponse, len(inv.Items))
	for i, item := range inv.Items {
		items[i] = InvoiceItemResponse{
			ID:              item.ID,
			LineNo:          item.LineNo,
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			Code:            item.Code,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxRate:         item.TaxRate,
			Gross:           item.Amounts.Gross,
			Discount:        item.Amounts.Discount,
			Taxable:         item.Amounts.Taxable,
			Tax:             item.Amounts.Tax,
			Total:           item.Amounts.Total,
		}
	}

	return InvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		InvoiceType:      string(inv.Type),
		Status:           inv.Status.String(),
		ClientID:         inv.Client.ClientID,
		ClientName:       inv.Client.Name,
		ClientCode:       inv.Client.Code,
		ClientTaxID:      inv.Client.TaxID,
		ClientAddress:    inv.Client.Address,
		PriceListID:      inv.PriceListID,
		Currency:         inv.Currency.String(),
		ExchangeRate:     inv.ExchangeRate,
		IssueDate:        inv.IssueDate,
		DueDate:          inv.DueDate,
		PaymentTermsDays: inv.PaymentTermsDays,
		Notes:            inv.Notes,
		Items:            items,
		Subtotal:         inv.Totals.Subtotal,
		DiscountTotal:    inv.Totals.DiscountTotal,
		TaxTotal:         inv.Totals.TaxTotal,
		GrandTotal:       inv.Totals.GrandTotal,
		PaidAmount:       inv.PaidAmount,
		PendingBalance:   inv.PendingBalance(),
		IssuedAt:         inv.IssuedAt,
		CancelledAt:      inv.CancelledAt,
		Version:          inv.Version,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

// ToInvoiceListItemResponse converts a domain invoice to the list DTO
func ToInvoiceListItemResponse(inv *billing.Invoice) InvoiceListItemResponse {
	return InvoiceListItemResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		InvoiceType:    string(inv.Type),
		Status:         inv.Status.String(),
		ClientName:     inv.Client.Name,
		Currency:       inv.Currency.String(),
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		GrandTotal:     inv.Totals.GrandTotal,
		PaidAmount:     inv.PaidAmount,
		PendingBalance: inv.PendingBalance(),
		CreatedAt:      inv.CreatedAt,
	}
}

// ==================== Payment DTOs ====================

// RegisterPaymentRequest applies one receipt to an invoice
type RegisterPaymentRequest struct {
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency" binding:"omitempty,currency"`
	ReceivedAmount *decimal.Decimal `json:"received_amount"`
	BankAccountID  *uuid.UUID       `json:"bank_account_id"`
	Method         string           `json:"method" binding:"omitempty,oneof=cash transfer card mobile check"`
	Reference      string           `json:"reference" binding:"max=100"`
	Notes          string           `json:"notes" binding:"max=500"`
	PaidAt         *time.Time       `json:"paid_at"`
}

// PaymentResponse represents a payment and the invoice state it left behind
type PaymentResponse struct {
	ID                uuid.UUID        `json:"id"`
	InvoiceID         uuid.UUID        `json:"invoice_id"`
	Amount            decimal.Decimal  `json:"amount"`
	Currency          string           `json:"currency"`
	ReceivedAmount    decimal.Decimal  `json:"received_amount"`
	ExchangeRate      decimal.Decimal  `json:"exchange_rate"`
	Method            string           `json:"method"`
	BankAccountID     *uuid.UUID       `json:"bank_account_id,omitempty"`
	Reference         string           `json:"reference,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	PaidAt            time.Time        `json:"paid_at"`
	CreatedAt         time.Time        `json:"created_at"`
	InvoiceStatus     string           `json:"invoice_status,omitempty"`
	InvoicePaidAmount *decimal.Decimal `json:"invoice_paid_amount,omitempty"`
	PendingBalance    *decimal.Decimal `json:"pending_balance,omitempty"`
}

// ToPaymentResponse converts a domain payment to a response DTO
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		Amount:         p.Amount,
		Currency:       p.Currency.String(),
		ReceivedAmount: p.ReceivedAmount,
		ExchangeRate:   p.ExchangeRate,
		Method:         string(p.Method),
		BankAccountID:  p.BankAccountID,
		Reference:      p.Reference,
		Notes:          p.Notes,
		PaidAt:         p.PaidAt,
		CreatedAt:      p.CreatedAt,
	}
}

func withInvoiceState(resp PaymentResponse, inv *billing.Invoice) PaymentResponse {
	paid := inv.PaidAmount
	pending := inv.PendingBalance()
	resp.InvoiceStatus = inv.Status.String()
	resp.InvoicePaidAmount = &paid
	resp.PendingBalance = &pending
	return resp
}

// ==================== Sequence DTOs ====================

// SequenceResponse represents the numbering configuration
type SequenceResponse struct {
	Prefix      string    `json:"prefix"`
	Pattern     string    `json:"pattern"`
	NextNumber  int64     `json:"next_number"`
	NextPreview string    `json:"next_preview"`
	Version     int       `json:"version"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateSequenceRequest changes the numbering configuration
type UpdateSequenceRequest struct {
	Prefix     *string `json:"prefix" binding:"omitempty,max=20"`
	Pattern    *string `json:"pattern" binding:"omitempty,max=100"`
	NextNumber *int64  `json:"next_number" binding:"omitempty,min=1"`
}

// PreviewNumberRequest renders a number without allocating it. Fields left
// empty fall back to the stored configuration.
type PreviewNumberRequest struct {
	Pattern    *string `json:"pattern" binding:"omitempty,max=100"`
	Prefix     *string `json:"prefix" binding:"omitempty,max=20"`
	NextNumber *int64  `json:"next_number" binding:"omitempty,min=1"`
	ClientName string  `json:"client_name" binding:"max=200"`
	ClientCode string  `json:"client_code" binding:"max=20"`
}

// PreviewNumberResponse carries the rendered number
type PreviewNumberResponse struct {
	Number string `json:"number"`
}

func toSequenceResponse(seq *billing.InvoiceSequence) SequenceResponse {
	return SequenceResponse{
		Prefix:      seq.Prefix,
		Pattern:     seq.Pattern,
		NextNumber:  seq.NextNumber,
		NextPreview: seq.Preview(billing.NumberContext{Date: time.Now()}),
		Version:     seq.Version,
		UpdatedAt:   seq.UpdatedAt,
	}
}

// ==================== Bank account DTOs ====================

// CreateBankAccountRequest registers a deposit account
type CreateBankAccountRequest struct {
	BankName      string `json:"bank_name" binding:"required,min=1,max=100"`
	AccountNumber string `json:"account_number" binding:"required,min=1,max=50"`
	AccountType   string `json:"account_type" binding:"omitempty,oneof=checking savings"`
	Currency      string `json:"currency" binding:"required,currency"`
	IsDefault     bool   `json:"is_default"`
}

// BankAccountResponse represents a bank account in API responses
type BankAccountResponse struct {
	ID            uuid.UUID `json:"id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountType   string    `json:"account_type"`
	Currency      string    `json:"currency"`
	IsDefault     bool      `json:"is_default"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToBankAccountResponse converts a domain bank account to a response DTO
func ToBankAccountResponse(a *billing.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:            a.ID,
		BankName:      a.BankName,
		AccountNumber: a.AccountNumber,
		AccountType:   string(a.AccountType),
		Currency:      a.Currency.String(),
		IsDefault:     a.IsDefault,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
	}
}
