package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/erp/billing/internal/domain/shared"
	"go.uber.org/zap"
)

// namedHandler is implemented by handlers that want a stable dedupe key
// independent of their Go type name.
type namedHandler interface {
	Name() string
}

// HandlerName returns the name a handler is deduplicated under.
func HandlerName(h shared.EventHandler) string {
	if n, ok := h.(namedHandler); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// DeliveryStats counts what an IdempotentHandler did with the deliveries it received.
type DeliveryStats struct {
	Handled    int64 `json:"handled"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// DuplicateObserver is told about every redelivery that was skipped.
type DuplicateObserver func(ctx context.Context, handler string, event shared.DomainEvent)

// IdempotentHandler lets the outbox redeliver freely: the wrapped handler
// sees each event at most once per TTL. The key is stored only after the
// handler succeeds, so a failed delivery is retried in full.
type IdempotentHandler struct {
	handler    shared.EventHandler
	name       string
	store      shared.IdempotencyStore
	config     shared.IdempotencyConfig
	logger     *zap.Logger
	onDup      DuplicateObserver
	handled    atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides TTL and enablement
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// OnDuplicate registers fn to be called for each skipped redelivery
func OnDuplicate(fn DuplicateObserver) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.onDup = fn
	}
}

// NewIdempotentHandler wraps handler with dedupe backed by store
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		name:    HandlerName(handler),
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Name returns the name of the wrapped handler
func (h *IdempotentHandler) Name() string {
	return h.name
}

// Handle delivers event to the wrapped handler unless it was already handled.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := shared.ProcessedKey(h.name, event.EventID())
	log := h.logger.With(zap.String("handler", h.name), zap.String("event_type", event.EventType()))

	seen, err := h.store.IsProcessed(ctx, key)
	switch {
	case err != nil:
		// Deliver anyway: handlers tolerate a duplicate, not a lost event.
		log.Warn("idempotency check failed, delivering anyway", zap.String("key", key), zap.Error(err))
	case seen:
		h.duplicates.Add(1)
		log.Debug("skipping redelivered event", zap.String("key", key))
		if h.onDup != nil {
			h.onDup(ctx, h.name, event)
		}
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		log.Error("event handler failed", zap.String("key", key), zap.Error(err))
		return err
	}
	h.handled.Add(1)

	if _, err := h.store.MarkProcessed(ctx, key, h.config.TTL); err != nil {
		log.Warn("failed to record processed event", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Stats returns a snapshot of the delivery counters
func (h *IdempotentHandler) Stats() DeliveryStats {
	return DeliveryStats{
		Handled:    h.handled.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// WrapHandlersWithIdempotency wraps every handler with the same store and options
func WrapHandlersWithIdempotency(
	handlers []shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, store, logger, opts...)
	}
	return wrapped
}
