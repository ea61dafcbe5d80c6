package billing

import (
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceTotals is always derived from the lines, never edited directly.
type InvoiceTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// AggregateTotals sums already-rounded line amounts. Because every summand is
// rounded, GrandTotal equals the sum of line totals exactly.
func AggregateTotals(lines []LineAmounts) (InvoiceTotals, error) {
	if len(lines) == 0 {
		return InvoiceTotals{}, validationError("an invoice needs at least one line item")
	}

	var t InvoiceTotals
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Gross)
		t.DiscountTotal = t.DiscountTotal.Add(l.Discount)
		t.TaxTotal = t.TaxTotal.Add(l.Tax)
	}
	t.GrandTotal = t.Subtotal.Sub(t.DiscountTotal).Add(t.TaxTotal)
	return t, nil
}

// CalculateInvoice runs CalculateLine over items and aggregates the result.
// The error names the offending line (1-based).
func CalculateInvoice(items []LineItem, cur valueobject.Currency) ([]LineAmounts, InvoiceTotals, error) {
	if len(items) == 0 {
		return nil, InvoiceTotals{}, validationError("an invoice needs at least one line item")
	}

	lines := make([]LineAmounts, 0, len(items))
	for i, item := range items {
		amounts, err := CalculateLine(item, cur)
		if err != nil {
			return nil, InvoiceTotals{}, validationError("line %d: %s", i+1, err.Error())
		}
		lines = append(lines, amounts)
	}

	totals, err := AggregateTotals(lines)
	if err != nil {
		return nil, InvoiceTotals{}, err
	}
	return lines, totals, nil
}
