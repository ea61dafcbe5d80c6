package billing

import (
	"context"
	"fmt"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MetricsRecorder receives billing activity. telemetry.BillingMetrics
// implements it with OpenTelemetry instruments.
type MetricsRecorder interface {
	RecordInvoiceIssued(ctx context.Context, invoiceType, currency string, grandTotal decimal.Decimal)
	RecordInvoiceCancelled(ctx context.Context, previousStatus string)
	RecordInvoiceDeleted(ctx context.Context, forced bool)
	RecordPaymentRegistered(ctx context.Context, method, currency string, amount decimal.Decimal, status string)
	RecordPaymentDeleted(ctx context.Context, status string)
}

// MetricsEventHandler turns delivered billing events into metrics.
type MetricsEventHandler struct {
	recorder MetricsRecorder
	logger   *zap.Logger
}

// NewMetricsEventHandler creates a new MetricsEventHandler
func NewMetricsEventHandler(recorder MetricsRecorder, logger *zap.Logger) *MetricsEventHandler {
	return &MetricsEventHandler{recorder: recorder, logger: logger}
}

// Name is the key the handler is deduplicated under
func (h *MetricsEventHandler) Name() string { return "billing.metrics" }

// EventTypes returns the event types this handler is interested in
func (h *MetricsEventHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceIssued,
		billing.EventTypeInvoiceCancelled,
		billing.EventTypeInvoiceDeleted,
		billing.EventTypePaymentRegistered,
		billing.EventTypePaymentDeleted,
	}
}

// Handle records the metric matching the event type
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.InvoiceIssuedEvent:
		h.recorder.RecordInvoiceIssued(ctx, string(e.InvoiceType), e.Currency, e.GrandTotal)
	case *billing.InvoiceCancelledEvent:
		h.recorder.RecordInvoiceCancelled(ctx, e.PreviousStatus.String())
	case *billing.InvoiceDeletedEvent:
		h.recorder.RecordInvoiceDeleted(ctx, e.Forced)
	case *billing.PaymentRegisteredEvent:
		h.recorder.RecordPaymentRegistered(ctx, string(e.Method), e.InvoiceCurrency, e.Amount, e.NewStatus.String())
	case *billing.PaymentDeletedEvent:
		h.recorder.RecordPaymentDeleted(ctx, e.NewStatus.String())
	default:
		h.logger.Error("unexpected event type",
			zap.String("event_type", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}

// ForcedDeleteAuditHandler writes an audit line for every invoice that was
// deleted by override.
type ForcedDeleteAuditHandler struct {
	logger *zap.Logger
}

// NewForcedDeleteAuditHandler creates a new ForcedDeleteAuditHandler
func NewForcedDeleteAuditHandler(logger *zap.Logger) *ForcedDeleteAuditHandler {
	return &ForcedDeleteAuditHandler{logger: logger.Named("audit")}
}

// Name is the key the handler is deduplicated under
func (h *ForcedDeleteAuditHandler) Name() string { return "billing.forced_delete_audit" }

// EventTypes returns the event types this handler is interested in
func (h *ForcedDeleteAuditHandler) EventTypes() []string {
	return []string{billing.EventTypeInvoiceDeleted}
}

// Handle logs forced deletions and ignores plain draft removals
func (h *ForcedDeleteAuditHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	deleted, ok := event.(*billing.InvoiceDeletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			billing.EventTypeInvoiceDeleted, event.EventType())
	}
	if !deleted.Forced {
		return nil
	}

	h.logger.Warn("invoice deleted by override",
		zap.String("event_id", deleted.EventID().String()),
		zap.String("tenant_id", deleted.TenantID().String()),
		zap.String("invoice_id", deleted.InvoiceID.String()),
		zap.String("invoice_number", deleted.InvoiceNumber),
		zap.String("previous_status", deleted.PreviousStatus.String()),
		zap.Time("occurred_at", deleted.OccurredAt()))
	return nil
}

var (
	_ shared.EventHandler = (*MetricsEventHandler)(nil)
	_ shared.EventHandler = (*ForcedDeleteAuditHandler)(nil)
)
