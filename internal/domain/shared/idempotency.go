package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore remembers which handler already processed which outbox
// event, so a redelivered InvoiceIssued is not counted or audited twice.
type IdempotencyStore interface {
	// MarkProcessed returns true if key was newly marked, false if it was
	// already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// ProcessedKey is the store key for handler having processed eventID. Keys
// are per handler: the audit handler failing must not suppress metrics.
func ProcessedKey(handler string, eventID uuid.UUID) string {
	return handler + ":" + eventID.String()
}

// IdempotencyConfig controls handler dedupe. TTL should outlive the outbox
// retry window; an entry redelivered after its key expired is handled again.
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h TTL with checking enabled.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
