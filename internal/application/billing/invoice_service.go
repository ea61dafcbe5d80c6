package billing

import (
	"context"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService handles the invoice lifecycle
type InvoiceService struct {
	coordinator
	invoiceRepo billing.InvoiceRepository
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService. invoiceRepo serves reads
// outside of transactions.
func NewInvoiceService(scope TransactionScope, invoiceRepo billing.InvoiceRepository, locker Locker, cfg ServiceConfig, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		coordinator: newCoordinator(scope, locker, cfg, logger),
		invoiceRepo: invoiceRepo,
		now:         time.Now,
	}
}

// Calculate computes live totals for unsaved lines.
func (s *InvoiceService) Calculate(_ context.Context, req CalculateRequest) (*CalculationResponse, error) {
	cur := valueobject.DefaultCurrency
	if req.Currency != "" {
		parsed, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, billing.NewValidationError("%s", err.Error())
		}
		cur = parsed
	}

	lines, totals, err := billing.CalculateInvoice(toLineItems(req.Items), cur)
	if err != nil {
		return nil, err
	}
	return &CalculationResponse{Currency: cur.String(), Lines: lines, Totals: totals}, nil
}

// CreateDraft validates the request and saves a new draft.
func (s *InvoiceService) CreateDraft(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, req InvoiceDraftRequest) (*InvoiceResponse, error) {
	inv, err := billing.NewDraftInvoice(tenantID, req.toDomain())
	if err != nil {
		return nil, err
	}
	if userID != nil {
		inv.SetCreatedBy(*userID)
	}

	err = s.execute(ctx, "create the invoice draft", func(repos TransactionalRepositories) error {
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		return recordEvents(ctx, repos, inv)
	})
	if err != nil {
		return nil, err
	}
	inv.ClearDomainEvents()

	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// UpdateDraft replaces header and items of a draft.
func (s *InvoiceService) UpdateDraft(ctx context.Context, tenantID, invoiceID uuid.UUID, req InvoiceDraftRequest) (*InvoiceResponse, error) {
	unlock, err := s.lock(ctx, InvoiceLockKey(tenantID, invoiceID), "the invoice")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var updated *billing.Invoice
	err = s.execute(ctx, "update the invoice draft", func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		expected := inv.Version
		if err := inv.UpdateDraft(req.toDomain()); err != nil {
			return err
		}
		inv.IncrementVersion()
		if err := repos.Invoices().Update(ctx, inv, expected); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ToInvoiceResponse(updated)
	return &resp, nil
}

// GetByID retrieves an invoice with its items.
func (s *InvoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, s.translate("load the invoice", err)
	}
	resp := ToInvoiceResponse(inv)
	return &resp, nil
}

// List retrieves invoices, newest first, with optional filters.
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceListItemResponse, int64, error) {
	invoices, total, err := s.invoiceRepo.List(ctx, tenantID, filter.toDomain())
	if err != nil {
		return nil, 0, s.translate("list invoices", err)
	}
	items := make([]InvoiceListItemResponse, len(invoices))
	for i := range invoices {
		items[i] = ToInvoiceListItemResponse(&invoices[i])
	}
	return items, total, nil
}

// Issue allocates an invoice number, decrements stock and moves the draft
// to issued, all in one transaction. Lock order is invoice, then sequence.
func (s *InvoiceService) Issue(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	unlock, err := s.lock(ctx, InvoiceLockKey(tenantID, invoiceID), "the invoice")
	if err != nil {
		return nil, err
	}
	defer unlock()

	unlockSeq, err := s.lock(ctx, SequenceLockKey(tenantID), "the invoice sequence")
	if err != nil {
		return nil, err
	}
	defer unlockSeq()

	var issued *billing.Invoice
	err = s.executeAllocating(ctx, "issue the invoice", func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if _, err := inv.CheckIssue(); err != nil {
			return err
		}
		expected := inv.Version

		if err := applyStock(ctx, repos, tenantID, inv.StockToDecrement()); err != nil {
			return err
		}

		seq, err := repos.Sequences().GetForUpdate(ctx, tenantID)
		if err != nil {
			return err
		}
		now := s.now()
		number, _ := seq.Allocate(inv.NumberContext(seq.Prefix, seq.NextNumber, now))
		if err := repos.Sequences().Save(ctx, seq); err != nil {
			return err
		}

		if err := inv.Issue(number, now); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, inv, expected); err != nil {
			return err
		}
		if err := recordEvents(ctx, repos, inv); err != nil {
			return err
		}
		issued = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	issued.ClearDomainEvents()

	s.logger.Info("invoice issued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("number", issued.Number),
		zap.String("grand_total", issued.Totals.GrandTotal.String()))

	resp := ToInvoiceResponse(issued)
	return &resp, nil
}

// Cancel voids the invoice and restores stock taken at issue.
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	unlock, err := s.lock(ctx, InvoiceLockKey(tenantID, invoiceID), "the invoice")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var cancelled *billing.Invoice
	err = s.execute(ctx, "cancel the invoice", func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		expected := inv.Version
		restore, err := inv.Cancel(s.now())
		if err != nil {
			return err
		}
		if err := applyStock(ctx, repos, tenantID, restore); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, inv, expected); err != nil {
			return err
		}
		if err := recordEvents(ctx, repos, inv); err != nil {
			return err
		}
		cancelled = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	cancelled.ClearDomainEvents()

	s.logger.Info("invoice cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("number", cancelled.Number))

	resp := ToInvoiceResponse(cancelled)
	return &resp, nil
}

// Delete removes an invoice. Drafts are deleted freely; anything else needs
// force and is reported back with a warning and audited through an event.
func (s *InvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID, force bool) (*DeleteInvoiceResponse, error) {
	unlock, err := s.lock(ctx, InvoiceLockKey(tenantID, invoiceID), "the invoice")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var plan billing.DeletePlan
	var number string
	var status billing.InvoiceStatus
	err = s.execute(ctx, "delete the invoice", func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		number, status = inv.Number, inv.Status
		plan, err = inv.PrepareDelete(force)
		if err != nil {
			return err
		}
		if err := applyStock(ctx, repos, tenantID, plan.Restore); err != nil {
			return err
		}
		if err := repos.Invoices().Delete(ctx, tenantID, invoiceID); err != nil {
			return err
		}
		return recordEvents(ctx, repos, inv)
	})
	if err != nil {
		return nil, err
	}

	if plan.Forced {
		s.logger.Warn("issued invoice deleted by override",
			zap.String("tenant_id", tenantID.String()),
			zap.String("invoice_id", invoiceID.String()),
			zap.String("number", number),
			zap.String("status", status.String()))
	}

	return &DeleteInvoiceResponse{ID: invoiceID, Forced: plan.Forced, Warning: plan.Warning}, nil
}

func applyStock(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, adjustments []billing.StockAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}
	return repos.Stock().Apply(ctx, tenantID, adjustments)
}
