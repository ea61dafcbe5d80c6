package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys used by billing operations.
const (
	AttrTenantID  = attribute.Key("billing.tenant_id")
	AttrOperation = attribute.Key("billing.operation")
	AttrAttempt   = attribute.Key("billing.sequence.attempt")
)

// StartSpan starts an internal span named "billing.<operation>" on the
// global tracer provider. The caller ends the span.
func StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, AttrOperation.String(operation))
	return otel.GetTracerProvider().Tracer(InstrumentationName).Start(ctx,
		fmt.Sprintf("billing.%s", operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err, if any, and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AddEvent annotates the span active in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
