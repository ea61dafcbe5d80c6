package event

import (
	"context"
	"fmt"

	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxPublisher turns the events raised by an invoice or payment change
// into outbox rows inside the same transaction, so InvoiceIssued and
// PaymentRegistered exist only if the change that raised them committed.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// OutboxPublisherOption configures an OutboxPublisher
type OutboxPublisherOption func(*OutboxPublisher)

// WithMaxRetries sets how many failed deliveries an entry gets before it is dead
func WithMaxRetries(n int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// NewOutboxPublisher creates a publisher that serializes with serializer
func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{serializer: serializer, maxRetries: shared.DefaultMaxRetries}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishWithTx inserts one outbox row per distinct event through tx.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	entries, err := p.entries(events)
	if err != nil || len(entries) == 0 {
		return err
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// entries validates and serializes events. An event collected twice in one
// unit of work (same event ID) yields a single row.
func (p *OutboxPublisher) entries(events []shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	entries := make([]*shared.OutboxEntry, 0, len(events))
	seen := make(map[uuid.UUID]struct{}, len(events))
	for _, e := range events {
		if _, dup := seen[e.EventID()]; dup {
			continue
		}
		seen[e.EventID()] = struct{}{}

		if e.TenantID() == uuid.Nil {
			return nil, fmt.Errorf("event %s for %s %s has no tenant", e.EventType(), e.AggregateType(), e.AggregateID())
		}
		if !p.serializer.IsRegistered(e.EventType()) {
			return nil, fmt.Errorf("event type %s is not registered with the serializer", e.EventType())
		}
		payload, err := p.serializer.Serialize(e)
		if err != nil {
			return nil, err
		}
		entry := shared.NewOutboxEntry(e.TenantID(), e, payload)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}
	return entries, nil
}
