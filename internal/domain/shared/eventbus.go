package shared

import "context"

// EventHandler reacts to events relayed from the outbox. Delivery is at
// least once: a handler may see the same InvoiceIssued or PaymentRegistered
// again after a crash and must tolerate it, or be wrapped for dedupe.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types wanted; empty means all of them.
	EventTypes() []string
}

// EventPublisher is where the outbox processor hands committed events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers. Without explicit event types the
// handler's own EventTypes apply.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is an EventPublisher and EventSubscriber with a lifecycle.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
