package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes fiscal documents that share the same engine.
type InvoiceType string

const (
	InvoiceTypeInvoice    InvoiceType = "invoice"
	InvoiceTypeQuote      InvoiceType = "quote"
	InvoiceTypeCreditNote InvoiceType = "credit_note"
	InvoiceTypeDebitNote  InvoiceType = "debit_note"
)

// IsValid checks if the type is a known InvoiceType
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeInvoice, InvoiceTypeQuote, InvoiceTypeCreditNote, InvoiceTypeDebitNote:
		return true
	}
	return false
}

// ClientSnapshot is a copy of the client data taken when the invoice is
// written, so later edits to the client do not alter fiscal documents.
type ClientSnapshot struct {
	ClientID *uuid.UUID
	Name     string
	Code     string
	TaxID    string
	Address  string
}

// InvoiceItem is a persisted line: the calculator input plus its results.
type InvoiceItem struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	LineNo    int
	LineItem
	Amounts LineAmounts
}

// DraftInput carries everything a draft can be created or edited with.
type DraftInput struct {
	Type             InvoiceType
	Client           ClientSnapshot
	PriceListID      *uuid.UUID
	Currency         string
	ExchangeRate     decimal.Decimal
	IssueDate        time.Time
	DueDate          *time.Time
	PaymentTermsDays int
	Notes            string
	Items            []LineItem
}

// Invoice is the aggregate root of the billing context.
type Invoice struct {
	shared.TenantAggregateRoot
	Number           string // empty until issued
	Type             InvoiceType
	Status           InvoiceStatus
	Client           ClientSnapshot
	PriceListID      *uuid.UUID
	Currency         valueobject.Currency
	ExchangeRate     decimal.Decimal
	IssueDate        time.Time
	DueDate          *time.Time
	PaymentTermsDays int
	Notes            string
	Items            []InvoiceItem
	Totals           InvoiceTotals
	PaidAmount       decimal.Decimal
	IssuedAt         *time.Time
	CancelledAt      *time.Time
}

// NewDraftInvoice validates in and builds a draft with freshly computed totals.
func NewDraftInvoice(tenantID uuid.UUID, in DraftInput) (*Invoice, error) {
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Status:              InvoiceStatusDraft,
		PaidAmount:          decimal.Zero,
	}
	if err := inv.applyDraft(in); err != nil {
		return nil, err
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// UpdateDraft replaces the header and items of a draft and recomputes totals.
func (inv *Invoice) UpdateDraft(in DraftInput) error {
	if _, err := Guard(inv.Status, ActionEdit); err != nil {
		return err
	}
	if err := inv.applyDraft(in); err != nil {
		return err
	}
	inv.Touch()
	return nil
}

func (inv *Invoice) applyDraft(in DraftInput) error {
	invType := in.Type
	if invType == "" {
		invType = InvoiceTypeInvoice
	}
	if !invType.IsValid() {
		return validationError("unknown invoice type %q", in.Type)
	}
	if strings.TrimSpace(in.Client.Name) == "" {
		return validationError("client name is required")
	}

	cur := valueobject.DefaultCurrency
	if in.Currency != "" {
		parsed, err := valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return validationError("%s", err.Error())
		}
		cur = parsed
	}

	rate := in.ExchangeRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	if !rate.IsPositive() {
		return validationError("exchange rate must be greater than 0, got %s", rate)
	}
	if in.PaymentTermsDays < 0 {
		return validationError("payment terms cannot be negative, got %d days", in.PaymentTermsDays)
	}

	issueDate := in.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	issueDate = truncateToDay(issueDate)
	dueDate, err := DueDate(issueDate, in.DueDate, in.PaymentTermsDays)
	if err != nil {
		return err
	}

	lines, totals, err := CalculateInvoice(in.Items, cur)
	if err != nil {
		return err
	}
	items := make([]InvoiceItem, len(in.Items))
	for i, li := range in.Items {
		items[i] = InvoiceItem{
			ID:        uuid.New(),
			InvoiceID: inv.ID,
			LineNo:    i + 1,
			LineItem:  li,
			Amounts:   lines[i],
		}
	}

	client := in.Client
	client.Name = strings.TrimSpace(client.Name)
	client.Code = strings.TrimSpace(client.Code)

	inv.Type = invType
	inv.Client = client
	inv.PriceListID = in.PriceListID
	inv.Currency = cur
	inv.ExchangeRate = rate
	inv.IssueDate = issueDate
	inv.DueDate = dueDate
	inv.PaymentTermsDays = in.PaymentTermsDays
	inv.Notes = in.Notes
	inv.Items = items
	inv.Totals = totals
	return nil
}

// DueDate derives the due date: an explicit date wins, otherwise issue date
// plus the payment terms, otherwise none.
func DueDate(issueDate time.Time, explicit *time.Time, termsDays int) (*time.Time, error) {
	if explicit != nil {
		d := truncateToDay(*explicit)
		if d.Before(truncateToDay(issueDate)) {
			return nil, validationError("due date %s is before issue date %s",
				d.Format(time.DateOnly), issueDate.Format(time.DateOnly))
		}
		return &d, nil
	}
	if termsDays > 0 {
		d := truncateToDay(issueDate).AddDate(0, 0, termsDays)
		return &d, nil
	}
	return nil, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// LineItems returns the calculator inputs of the invoice.
func (inv *Invoice) LineItems() []LineItem {
	out := make([]LineItem, len(inv.Items))
	for i, item := range inv.Items {
		out[i] = item.LineItem
	}
	return out
}

// PendingBalance is what remains to be paid.
func (inv *Invoice) PendingBalance() decimal.Decimal {
	pending := inv.Totals.GrandTotal.Sub(inv.PaidAmount)
	if pending.IsNegative() {
		return decimal.Zero
	}
	return pending
}

// Epsilon is the comparison tolerance for amounts in the invoice currency.
func (inv *Invoice) Epsilon() decimal.Decimal {
	return inv.Currency.Epsilon()
}

// NumberContext returns the rendering input for this invoice at time at.
func (inv *Invoice) NumberContext(prefix string, number int64, at time.Time) NumberContext {
	return NumberContext{
		Prefix:     prefix,
		Number:     number,
		Date:       at,
		ClientCode: inv.Client.Code,
		ClientName: inv.Client.Name,
	}
}

// CheckIssue validates that the draft can be issued without mutating it.
func (inv *Invoice) CheckIssue() (Transition, error) {
	t, err := Guard(inv.Status, ActionIssue)
	if err != nil {
		return Transition{}, err
	}
	if len(inv.Items) == 0 {
		return Transition{}, validationError("an invoice needs at least one line item")
	}
	return t, nil
}

// StockToDecrement is the stock the invoice consumes when issued.
func (inv *Invoice) StockToDecrement() []StockAdjustment {
	return stockAdjustments(inv.Items, StockDecrement)
}

// Issue records the allocated number and moves the draft to issued, or
// straight to paid when nothing is owed. Stock must have been decremented
// in the same unit of work.
func (inv *Invoice) Issue(number string, at time.Time) error {
	t, err := inv.CheckIssue()
	if err != nil {
		return err
	}
	if strings.TrimSpace(number) == "" {
		return validationError("an issued invoice needs a number")
	}
	status := DeriveStatus(inv.PaidAmount, inv.Totals.GrandTotal, inv.Epsilon())
	if !t.Allows(status) {
		return invalidTransition(inv.Status, ActionIssue)
	}
	inv.Number = number
	inv.Status = status
	inv.IssuedAt = &at
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	return nil
}

// Cancel moves the invoice to cancelled and returns the stock to restore.
func (inv *Invoice) Cancel(at time.Time) ([]StockAdjustment, error) {
	t, err := Guard(inv.Status, ActionCancel)
	if err != nil {
		return nil, err
	}
	var restore []StockAdjustment
	if t.Effects.Has(EffectRestoreStock) {
		restore = stockAdjustments(inv.Items, StockRestore)
	}
	previous := inv.Status
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &at
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv, previous))
	return restore, nil
}

// DeletePlan describes what removing an invoice entails.
type DeletePlan struct {
	Restore []StockAdjustment
	Forced  bool
	Warning string
}

// PrepareDelete checks whether the invoice may be removed. Drafts go freely.
// Any other state is a discouraged override that requires force.
func (inv *Invoice) PrepareDelete(force bool) (DeletePlan, error) {
	t, err := Guard(inv.Status, ActionDelete)
	if err != nil {
		return DeletePlan{}, err
	}

	plan := DeletePlan{}
	if t.Effects.Has(EffectAuditOverride) {
		if !force {
			return DeletePlan{}, shared.NewDomainError(CodeInvalidTransition, fmt.Sprintf(
				"invoice %s is %s; deleting it leaves a gap in the numbering and audit trail, confirm with force to proceed",
				inv.displayNumber(), inv.Status))
		}
		plan.Forced = true
		plan.Warning = fmt.Sprintf("invoice %s was deleted in status %s; its number will not be reused",
			inv.displayNumber(), inv.Status)
	}
	if t.Effects.Has(EffectRestoreStock) {
		plan.Restore = stockAdjustments(inv.Items, StockRestore)
	}
	inv.AddDomainEvent(NewInvoiceDeletedEvent(inv, plan.Forced))
	return plan, nil
}

func (inv *Invoice) displayNumber() string {
	if inv.Number == "" {
		return inv.ID.String()
	}
	return inv.Number
}
