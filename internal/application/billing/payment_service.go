package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultMovementsLimit = 20

// PaymentService registers and reverts payments and serves treasury views.
type PaymentService struct {
	coordinator
	paymentRepo billing.PaymentRepository
	reconciler  billing.Reconciler
	now         func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope TransactionScope, paymentRepo billing.PaymentRepository, locker Locker, cfg ServiceConfig, logger *zap.Logger) *PaymentService {
	c := newCoordinator(scope, locker, cfg, logger)
	return &PaymentService{
		coordinator: c,
		paymentRepo: paymentRepo,
		reconciler:  billing.NewReconciler(c.cfg.BaseCurrency),
		now:         time.Now,
	}
}

// Register applies a payment to an invoice. When idempotencyKey was already
// used the original payment is returned with replayed set and nothing is
// applied.
func (s *PaymentService) Register(ctx context.Context, tenantID, invoiceID uuid.UUID, userID *uuid.UUID, idempotencyKey string, req RegisterPaymentRequest) (resp *PaymentResponse, replayed bool, err error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)

	unlock, err := s.lock(ctx, InvoiceLockKey(tenantID, invoiceID), "the invoice")
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	var result PaymentResponse
	var inv *billing.Invoice
	err = s.execute(ctx, "register the payment", func(repos TransactionalRepositories) error {
		var err error
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}

		if idempotencyKey != "" {
			existing, err := repos.Payments().FindByIdempotencyKey(ctx, tenantID, idempotencyKey)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				if existing.InvoiceID != invoiceID {
					return billing.NewValidationError("idempotency key %q was already used for another invoice", idempotencyKey)
				}
				result = withInvoiceState(ToPaymentResponse(existing), inv)
				replayed = true
				return nil
			}
		}

		domainReq := billing.PaymentRequest{
			Amount:         req.Amount,
			Currency:       req.Currency,
			ReceivedAmount: req.ReceivedAmount,
			Method:         billing.PaymentMethod(req.Method),
			Reference:      req.Reference,
			Notes:          req.Notes,
			IdempotencyKey: idempotencyKey,
			CreatedBy:      userID,
		}
		if req.PaidAt != nil {
			domainReq.PaidAt = *req.PaidAt
		} else {
			domainReq.PaidAt = s.now()
		}
		if req.BankAccountID != nil {
			account, err := repos.BankAccounts().FindByID(ctx, tenantID, *req.BankAccountID)
			if err != nil {
				return err
			}
			domainReq.BankAccount = account
		}

		expected := inv.Version
		payment, err := s.reconciler.Apply(inv, domainReq)
		if err != nil {
			return err
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, inv, expected); err != nil {
			return err
		}
		if err := recordEvents(ctx, repos, inv); err != nil {
			return err
		}
		result = withInvoiceState(ToPaymentResponse(payment), inv)
		return nil
	})
	if err != nil {
		if shared.CodeOf(err) == billing.CodeOverpayment {
			s.logger.Warn("payment rejected",
				zap.String("tenant_id", tenantID.String()),
				zap.String("invoice_id", invoiceID.String()),
				zap.String("amount", req.Amount.String()),
				zap.Error(err))
		}
		return nil, false, err
	}
	if replayed {
		s.logger.Info("payment replayed",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("idempotency_key", idempotencyKey))
		return &result, true, nil
	}
	inv.ClearDomainEvents()

	s.logger.Info("payment registered",
		zap.String("tenant_id", tenantID.String()),
		zap.String("invoice_id", invoiceID.String()),
		zap.String("payment_id", result.ID.String()),
		zap.String("amount", result.Amount.String()),
		zap.String("invoice_status", result.InvoiceStatus))

	return &result, false, nil
}

// Delete reverts a payment. The invoice it belongs to is locked first so
// the revert serializes with every other operation on that invoice.
func (s *PaymentService) Delete(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, tenantID, paymentID)
	if err != nil {
		return nil, s.translate("load the payment", err)
	}

	unlock, err := s.lock(ctx, InvoiceLockKey(tenantID, payment.InvoiceID), "the invoice")
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result PaymentResponse
	var inv *billing.Invoice
	err = s.execute(ctx, "delete the payment", func(repos TransactionalRepositories) error {
		// Re-read under the lock; it may have been deleted meanwhile.
		p, err := repos.Payments().FindByID(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, tenantID, p.InvoiceID)
		if err != nil {
			return err
		}
		expected := inv.Version
		if err := s.reconciler.Revert(inv, p); err != nil {
			return err
		}
		if err := repos.Payments().Delete(ctx, tenantID, paymentID); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, inv, expected); err != nil {
			return err
		}
		if err := recordEvents(ctx, repos, inv); err != nil {
			return err
		}
		result = withInvoiceState(ToPaymentResponse(p), inv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.ClearDomainEvents()

	s.logger.Info("payment deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("invoice_status", result.InvoiceStatus))

	return &result, nil
}

// ListByInvoice returns the payments of one invoice, oldest first.
func (s *PaymentService) ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := s.paymentRepo.ListByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, s.translate("list payments", err)
	}
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out, nil
}

// AccountBalances sums received amounts per bank account.
func (s *PaymentService) AccountBalances(ctx context.Context, tenantID uuid.UUID) ([]billing.AccountBalance, error) {
	balances, err := s.paymentRepo.AccountBalances(ctx, tenantID)
	if err != nil {
		return nil, s.translate("load account balances", err)
	}
	return balances, nil
}

// RecentMovements returns the latest payments as treasury movements.
func (s *PaymentService) RecentMovements(ctx context.Context, tenantID uuid.UUID, limit int) ([]billing.Movement, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultMovementsLimit
	}
	movements, err := s.paymentRepo.RecentMovements(ctx, tenantID, limit)
	if err != nil {
		return nil, s.translate("load treasury movements", err)
	}
	return movements, nil
}
