package persistence

import (
	"context"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockGateway moves quantities on stock_levels inside the caller's
// transaction. A product row (variant_id NULL) holds the product total and
// optional variant rows hold per-variant stock; an adjustment for a variant
// moves both. Products without any row are untracked and skipped.
type GormStockGateway struct {
	db *gorm.DB
}

// NewGormStockGateway creates a new GormStockGateway
func NewGormStockGateway(db *gorm.DB) *GormStockGateway {
	return &GormStockGateway{db: db}
}

// Apply runs every adjustment in order and stops at the first shortfall
func (g *GormStockGateway) Apply(ctx context.Context, tenantID uuid.UUID, adjustments []billing.StockAdjustment) error {
	for _, adj := range adjustments {
		if adj.VariantID != nil {
			if err := g.move(ctx, tenantID, adj, adj.VariantID); err != nil {
				return err
			}
		}
		if err := g.move(ctx, tenantID, adj, nil); err != nil {
			return err
		}
	}
	return nil
}

func (g *GormStockGateway) move(ctx context.Context, tenantID uuid.UUID, adj billing.StockAdjustment, variantID *uuid.UUID) error {
	row := func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ? AND product_id = ?", tenantID, adj.ProductID)
		if variantID == nil {
			return db.Where("variant_id IS NULL")
		}
		return db.Where("variant_id = ?", *variantID)
	}
	levels := func() *gorm.DB {
		return g.db.WithContext(ctx).Model(&models.StockLevelModel{}).Scopes(row)
	}

	now := time.Now()
	if adj.Direction == billing.StockRestore {
		return levels().Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", adj.Quantity),
			"updated_at": now,
		}).Error
	}

	result := levels().
		Where("quantity >= ?", adj.Quantity).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", adj.Quantity),
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var tracked int64
	if err := levels().Count(&tracked).Error; err != nil {
		return err
	}
	if tracked == 0 {
		return nil
	}
	return billing.NewInsufficientStockError(adj.Description, adj.Quantity.String())
}

var _ billing.StockGateway = (*GormStockGateway)(nil)
