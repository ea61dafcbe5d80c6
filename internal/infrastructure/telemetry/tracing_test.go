package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useSpanRecorder installs a recording tracer provider for the test.
func useSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := useSpanRecorder(t)

	ctx, span := StartSpan(context.Background(), "invoice.issue", AttrTenantID.String("t-1"))
	AddEvent(ctx, "sequence_conflict", AttrAttempt.Int(1))
	EndSpan(span, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "billing.invoice.issue", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), AttrOperation.String("invoice.issue"))
	assert.Contains(t, ended[0].Attributes(), AttrTenantID.String("t-1"))
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "sequence_conflict", ended[0].Events()[0].Name)
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
}

func TestEndSpan_RecordsError(t *testing.T) {
	recorder := useSpanRecorder(t)

	_, span := StartSpan(context.Background(), "payment.register")
	EndSpan(span, errors.New("lock timeout"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "lock timeout", ended[0].Status().Description)
}
