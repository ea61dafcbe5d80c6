package billing

import (
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated    = "InvoiceCreated"
	EventTypeInvoiceIssued     = "InvoiceIssued"
	EventTypeInvoiceCancelled  = "InvoiceCancelled"
	EventTypeInvoiceDeleted    = "InvoiceDeleted"
	EventTypePaymentRegistered = "PaymentRegistered"
	EventTypePaymentDeleted    = "PaymentDeleted"
)

// InvoiceCreatedEvent is raised when a draft is saved for the first time
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	InvoiceType InvoiceType     `json:"invoice_type"`
	ClientName  string          `json:"client_name"`
	Currency    string          `json:"currency"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceType:     inv.Type,
		ClientName:      inv.Client.Name,
		Currency:        inv.Currency.String(),
		GrandTotal:      inv.Totals.GrandTotal,
	}
}

// InvoiceIssuedEvent is raised once a number is allocated and stock decremented
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceType   InvoiceType     `json:"invoice_type"`
	Currency      string          `json:"currency"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	LineCount     int             `json:"line_count"`
}

func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		InvoiceType:     inv.Type,
		Currency:        inv.Currency.String(),
		GrandTotal:      inv.Totals.GrandTotal,
		LineCount:       len(inv.Items),
	}
}

// InvoiceCancelledEvent is raised when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	PreviousStatus InvoiceStatus   `json:"previous_status"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Currency       string          `json:"currency"`
}

func NewInvoiceCancelledEvent(inv *Invoice, previous InvoiceStatus) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		PreviousStatus:  previous,
		PaidAmount:      inv.PaidAmount,
		Currency:        inv.Currency.String(),
	}
}

// InvoiceDeletedEvent is raised when an invoice is removed. Forced marks the
// audited override for anything that was not a draft.
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID     `json:"invoice_id"`
	InvoiceNumber  string        `json:"invoice_number"`
	PreviousStatus InvoiceStatus `json:"previous_status"`
	Forced         bool          `json:"forced"`
}

func NewInvoiceDeletedEvent(inv *Invoice, forced bool) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDeleted, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		PreviousStatus:  inv.Status,
		Forced:          forced,
	}
}

// PaymentRegisteredEvent is raised when a payment is applied to an invoice
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	InvoiceID          uuid.UUID       `json:"invoice_id"`
	PaymentID          uuid.UUID       `json:"payment_id"`
	Amount             decimal.Decimal `json:"amount"`
	InvoiceCurrency    string          `json:"invoice_currency"`
	ReceivedAmount     decimal.Decimal `json:"received_amount"`
	SettlementCurrency string          `json:"settlement_currency"`
	Method             PaymentMethod   `json:"method"`
	NewStatus          InvoiceStatus   `json:"new_status"`
}

func NewPaymentRegisteredEvent(inv *Invoice, p *Payment) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePaymentRegistered, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:          inv.ID,
		PaymentID:          p.ID,
		Amount:             p.Amount,
		InvoiceCurrency:    inv.Currency.String(),
		ReceivedAmount:     p.ReceivedAmount,
		SettlementCurrency: p.Currency.String(),
		Method:             p.Method,
		NewStatus:          inv.Status,
	}
}

// PaymentDeletedEvent is raised when a payment is reverted
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	NewStatus InvoiceStatus   `json:"new_status"`
}

func NewPaymentDeletedEvent(inv *Invoice, p *Payment) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeleted, AggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		PaymentID:       p.ID,
		Amount:          p.Amount,
		NewStatus:       inv.Status,
	}
}
