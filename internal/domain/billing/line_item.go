package billing

import (
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is the calculator input for one invoice line.
type LineItem struct {
	ProductID       uuid.UUID
	VariantID       *uuid.UUID
	Code            string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
}

// LineAmounts are the rounded monetary figures of one line.
type LineAmounts struct {
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Taxable  decimal.Decimal `json:"taxable"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Validate checks the numeric domain of the line.
func (l LineItem) Validate() error {
	if !l.Quantity.IsPositive() {
		return validationError("quantity must be greater than 0, got %s", l.Quantity)
	}
	if l.UnitPrice.IsNegative() {
		return validationError("unit price cannot be negative, got %s", l.UnitPrice)
	}
	if l.DiscountPercent.IsNegative() || l.DiscountPercent.GreaterThan(hundred) {
		return validationError("discount percent must be between 0 and 100, got %s", l.DiscountPercent)
	}
	if l.TaxRate.IsNegative() {
		return validationError("tax rate cannot be negative, got %s", l.TaxRate)
	}
	return nil
}

// CalculateLine computes gross, discount, taxable, tax and total for one line.
//
// Gross and discount are rounded to the currency's minor unit from their raw
// products; taxable is derived from the rounded parts and tax is rounded from
// taxable, so Taxable+Tax == Total holds for the printed figures.
func CalculateLine(item LineItem, cur valueobject.Currency) (LineAmounts, error) {
	if err := item.Validate(); err != nil {
		return LineAmounts{}, err
	}

	rawGross := item.Quantity.Mul(item.UnitPrice)
	gross := cur.Round(rawGross)
	discount := cur.Round(rawGross.Mul(item.DiscountPercent).Div(hundred))
	taxable := gross.Sub(discount)
	tax := cur.Round(taxable.Mul(item.TaxRate).Div(hundred))

	return LineAmounts{
		Gross:    gross,
		Discount: discount,
		Taxable:  taxable,
		Tax:      tax,
		Total:    taxable.Add(tax),
	}, nil
}
