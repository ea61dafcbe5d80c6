package billing

import (
	"context"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SequenceService manages the per-tenant invoice numbering.
type SequenceService struct {
	coordinator
	sequenceRepo billing.SequenceRepository
	now          func() time.Time
}

// NewSequenceService creates a new SequenceService
func NewSequenceService(scope TransactionScope, sequenceRepo billing.SequenceRepository, locker Locker, cfg ServiceConfig, logger *zap.Logger) *SequenceService {
	return &SequenceService{
		coordinator:  newCoordinator(scope, locker, cfg, logger),
		sequenceRepo: sequenceRepo,
		now:          time.Now,
	}
}

// Get returns the numbering configuration with a preview of the next number.
func (s *SequenceService) Get(ctx context.Context, tenantID uuid.UUID) (*SequenceResponse, error) {
	seq, err := s.sequenceRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, s.translate("load the invoice sequence", err)
	}
	resp := toSequenceResponse(seq)
	return &resp, nil
}

// Update changes prefix, pattern or next number. It holds the sequence lock
// so no issue can interleave with the change.
func (s *SequenceService) Update(ctx context.Context, tenantID uuid.UUID, req UpdateSequenceRequest) (*SequenceResponse, error) {
	unlock, err := s.lock(ctx, SequenceLockKey(tenantID), "the invoice sequence")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var saved *billing.InvoiceSequence
	err = s.executeAllocating(ctx, "update the invoice sequence", func(repos TransactionalRepositories) error {
		seq, err := repos.Sequences().GetForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		if err := seq.Configure(billing.SequenceSettings{
			Prefix:     req.Prefix,
			Pattern:    req.Pattern,
			NextNumber: req.NextNumber,
		}); err != nil {
			return err
		}
		if err := repos.Sequences().Save(ctx, seq); err != nil {
			return err
		}
		saved = seq
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice sequence updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("prefix", saved.Prefix),
		zap.String("pattern", saved.Pattern),
		zap.Int64("next_number", saved.NextNumber))

	resp := toSequenceResponse(saved)
	return &resp, nil
}

// Preview renders the number the next issue would receive. Values left out
// of req come from the stored sequence. Nothing is allocated.
func (s *SequenceService) Preview(ctx context.Context, tenantID uuid.UUID, req PreviewNumberRequest) (*PreviewNumberResponse, error) {
	seq, err := s.sequenceRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, s.translate("load the invoice sequence", err)
	}

	pattern, prefix, next := seq.Pattern, seq.Prefix, seq.NextNumber
	if req.Pattern != nil {
		pattern = *req.Pattern
	}
	if req.Prefix != nil {
		prefix = *req.Prefix
	}
	if req.NextNumber != nil {
		next = *req.NextNumber
	}

	number, err := billing.PreviewNumber(pattern, prefix, next, s.now(), req.ClientCode, req.ClientName)
	if err != nil {
		return nil, err
	}
	return &PreviewNumberResponse{Number: number}, nil
}
