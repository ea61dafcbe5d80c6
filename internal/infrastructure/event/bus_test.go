package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, billing.AggregateTypeInvoice, uuid.New(), tenantID),
		Data:            "test data",
	}
}

// testHandler records what it receives
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(billing.EventTypeInvoiceIssued)
	bus.Subscribe(handler)

	event := newTestEvent(billing.EventTypeInvoiceIssued, uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	issued := newTestHandler(billing.EventTypeInvoiceIssued)
	payments := newTestHandler(billing.EventTypePaymentRegistered, billing.EventTypePaymentDeleted)
	all := newTestHandler()
	bus.Subscribe(issued)
	bus.Subscribe(payments)
	bus.Subscribe(all)

	err := bus.Publish(context.Background(),
		newTestEvent(billing.EventTypeInvoiceIssued, uuid.New()),
		newTestEvent(billing.EventTypePaymentRegistered, uuid.New()),
		newTestEvent(billing.EventTypePaymentDeleted, uuid.New()),
	)

	require.NoError(t, err)
	assert.Len(t, issued.getHandled(), 1)
	assert.Len(t, payments.getHandled(), 2)
	assert.Len(t, all.getHandled(), 3)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler(billing.EventTypeInvoiceIssued)
	failing.err = errors.New("metrics backend down")
	healthy := newTestHandler(billing.EventTypeInvoiceIssued)
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent(billing.EventTypeInvoiceIssued, uuid.New()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics backend down")
	assert.Len(t, healthy.getHandled(), 1, "later handlers still run")
}

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(billing.EventTypeInvoiceDeleted)
	handler.panicWith = "boom"
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent(billing.EventTypeInvoiceDeleted, uuid.New()))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(billing.EventTypePaymentDeleted)
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent(billing.EventTypeInvoiceCreated, uuid.New()))

	require.NoError(t, err)
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(billing.EventTypeInvoiceIssued)
	bus.Subscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent(billing.EventTypeInvoiceIssued, uuid.New()))

	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent(billing.EventTypeInvoiceIssued, uuid.New()))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.running.Load())
	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.running.Load())
}
