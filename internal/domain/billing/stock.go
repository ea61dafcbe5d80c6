package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockDirection tells the stock collaborator which way to move quantities.
type StockDirection string

const (
	StockDecrement StockDirection = "decrement"
	StockRestore   StockDirection = "restore"
)

// StockAdjustment is a stock movement the lifecycle requests. The engine
// never touches stock itself.
type StockAdjustment struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	Description string
	Quantity    decimal.Decimal
	Direction   StockDirection
}

type stockKey struct {
	product uuid.UUID
	variant uuid.UUID
}

// stockAdjustments merges item quantities per product and variant, keeping
// the order in which products first appear. Lines without a product are
// free text and move no stock.
func stockAdjustments(items []InvoiceItem, dir StockDirection) []StockAdjustment {
	index := make(map[stockKey]int, len(items))
	out := make([]StockAdjustment, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			continue
		}
		key := stockKey{product: item.ProductID}
		if item.VariantID != nil {
			key.variant = *item.VariantID
		}
		if i, ok := index[key]; ok {
			out[i].Quantity = out[i].Quantity.Add(item.Quantity)
			continue
		}
		index[key] = len(out)
		out = append(out, StockAdjustment{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Direction:   dir,
		})
	}
	return out
}
