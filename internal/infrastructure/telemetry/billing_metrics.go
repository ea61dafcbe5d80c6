package telemetry

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
var (
	AttrInvoiceType    = attribute.Key("invoice_type")
	AttrCurrency       = attribute.Key("currency")
	AttrStatus         = attribute.Key("status")
	AttrPreviousStatus = attribute.Key("previous_status")
	AttrPaymentMethod  = attribute.Key("payment_method")
	AttrForced         = attribute.Key("forced")
	AttrHandler        = attribute.Key("handler")
	AttrEventType      = attribute.Key("event_type")
)

// amountBuckets cover invoice and payment amounts in major currency units.
var amountBuckets = []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000, 100000, 500000}

// BillingMetrics records invoicing activity as OpenTelemetry instruments.
// It is fed by the metrics event handler, so counts reflect delivered
// outbox events rather than attempted requests.
type BillingMetrics struct {
	invoicesIssued    metric.Int64Counter
	invoiceAmount     metric.Float64Histogram
	invoicesCancelled metric.Int64Counter
	invoicesDeleted   metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	paymentAmount     metric.Float64Histogram
	paymentsDeleted   metric.Int64Counter
	duplicates        metric.Int64Counter
}

// NewBillingMetrics creates the instruments on meter.
func NewBillingMetrics(meter metric.Meter) (*BillingMetrics, error) {
	if meter == nil {
		return nil, fmt.Errorf("billing metrics: meter cannot be nil")
	}

	m := &BillingMetrics{}
	var err error
	if m.invoicesIssued, err = meter.Int64Counter("billing_invoices_issued_total",
		metric.WithDescription("Invoices assigned a fiscal number"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.invoiceAmount, err = meter.Float64Histogram("billing_invoice_grand_total",
		metric.WithDescription("Grand total of issued invoices"),
		metric.WithExplicitBucketBoundaries(amountBuckets...)); err != nil {
		return nil, err
	}
	if m.invoicesCancelled, err = meter.Int64Counter("billing_invoices_cancelled_total",
		metric.WithDescription("Invoices cancelled"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.invoicesDeleted, err = meter.Int64Counter("billing_invoices_deleted_total",
		metric.WithDescription("Invoices deleted, by whether deletion was forced"),
		metric.WithUnit("{invoice}")); err != nil {
		return nil, err
	}
	if m.paymentsRecorded, err = meter.Int64Counter("billing_payments_registered_total",
		metric.WithDescription("Payments registered against invoices"),
		metric.WithUnit("{payment}")); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = meter.Float64Histogram("billing_payment_amount",
		metric.WithDescription("Payment amount in invoice currency"),
		metric.WithExplicitBucketBoundaries(amountBuckets...)); err != nil {
		return nil, err
	}
	if m.paymentsDeleted, err = meter.Int64Counter("billing_payments_deleted_total",
		metric.WithDescription("Payments deleted"),
		metric.WithUnit("{payment}")); err != nil {
		return nil, err
	}
	if m.duplicates, err = meter.Int64Counter("billing_event_redeliveries_total",
		metric.WithDescription("Outbox events skipped because the handler already processed them"),
		metric.WithUnit("{event}")); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordInvoiceIssued counts an issued invoice and its grand total.
func (m *BillingMetrics) RecordInvoiceIssued(ctx context.Context, invoiceType, currency string, grandTotal decimal.Decimal) {
	attrs := metric.WithAttributes(AttrInvoiceType.String(invoiceType), AttrCurrency.String(currency))
	m.invoicesIssued.Add(ctx, 1, attrs)
	m.invoiceAmount.Record(ctx, grandTotal.InexactFloat64(), attrs)
}

// RecordInvoiceCancelled counts a cancellation by the status it left.
func (m *BillingMetrics) RecordInvoiceCancelled(ctx context.Context, previousStatus string) {
	m.invoicesCancelled.Add(ctx, 1, metric.WithAttributes(AttrPreviousStatus.String(previousStatus)))
}

// RecordInvoiceDeleted counts a deletion.
func (m *BillingMetrics) RecordInvoiceDeleted(ctx context.Context, forced bool) {
	m.invoicesDeleted.Add(ctx, 1, metric.WithAttributes(AttrForced.String(strconv.FormatBool(forced))))
}

// RecordPaymentRegistered counts a payment and records its amount.
func (m *BillingMetrics) RecordPaymentRegistered(ctx context.Context, method, currency string, amount decimal.Decimal, status string) {
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(
		AttrPaymentMethod.String(method),
		AttrStatus.String(status),
	))
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), metric.WithAttributes(
		AttrPaymentMethod.String(method),
		AttrCurrency.String(currency),
	))
}

// RecordPaymentDeleted counts a deleted payment by the invoice status it produced.
func (m *BillingMetrics) RecordPaymentDeleted(ctx context.Context, status string) {
	m.paymentsDeleted.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
}

// RecordDuplicateDelivery counts an outbox event a handler had already seen.
func (m *BillingMetrics) RecordDuplicateDelivery(ctx context.Context, handler, eventType string) {
	m.duplicates.Add(ctx, 1, metric.WithAttributes(AttrHandler.String(handler), AttrEventType.String(eventType)))
}
