package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceDefaults seeds the numbering row of a tenant that has none yet.
type SequenceDefaults struct {
	Prefix  string
	Pattern string
}

// DefaultSequenceDefaults returns the built-in prefix and pattern
func DefaultSequenceDefaults() SequenceDefaults {
	return SequenceDefaults{Prefix: billing.DefaultPrefix, Pattern: billing.DefaultPattern}
}

// GormSequenceRepository implements billing.SequenceRepository using GORM
type GormSequenceRepository struct {
	db       *gorm.DB
	defaults SequenceDefaults
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB, defaults SequenceDefaults) *GormSequenceRepository {
	if defaults.Prefix == "" {
		defaults.Prefix = billing.DefaultPrefix
	}
	if defaults.Pattern == "" {
		defaults.Pattern = billing.DefaultPattern
	}
	return &GormSequenceRepository{db: db, defaults: defaults}
}

func (r *GormSequenceRepository) initial(tenantID uuid.UUID) *billing.InvoiceSequence {
	seq := billing.NewInvoiceSequence(tenantID)
	seq.Prefix = r.defaults.Prefix
	seq.Pattern = r.defaults.Pattern
	return seq
}

// Get returns the stored row, or an unsaved default sequence
func (r *GormSequenceRepository) Get(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSequence, error) {
	var model models.InvoiceSequenceModel
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.initial(tenantID), nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetForUpdate inserts the default row if missing, then locks it. Concurrent
// first allocations race on the insert and both end up locking the same row.
func (r *GormSequenceRepository) GetForUpdate(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSequence, error) {
	db := r.db.WithContext(ctx)

	seed := models.InvoiceSequenceModelFromDomain(r.initial(tenantID))
	seed.UpdatedAt = time.Now()
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, err
	}

	var model models.InvoiceSequenceModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save writes seq if the stored version is still seq.Version, then bumps it
func (r *GormSequenceRepository) Save(ctx context.Context, seq *billing.InvoiceSequence) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceSequenceModel{}).
		Where("tenant_id = ? AND version = ?", seq.TenantID, seq.Version).
		Updates(map[string]any{
			"prefix":      seq.Prefix,
			"pattern":     seq.Pattern,
			"next_number": seq.NextNumber,
			"version":     seq.Version + 1,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return billing.ErrSequenceConflict
	}
	seq.Version++
	seq.UpdatedAt = now
	return nil
}

var _ billing.SequenceRepository = (*GormSequenceRepository)(nil)
