package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLevelModel is the on-hand quantity of a product, or of one variant of
// it, that billing decrements on issue and restores on cancel. A product
// without a row is not stock-tracked.
type StockLevelModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_level_product,priority:1"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_level_product,priority:2"`
	VariantID *uuid.UUID      `gorm:"type:uuid;index:idx_stock_level_product,priority:3"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}
