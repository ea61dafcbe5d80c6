package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Locker serializes work on a key across goroutines or processes. Lock
// blocks until the key is free or ctx is done; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// InvoiceLockKey scopes a lock to one invoice.
func InvoiceLockKey(tenantID, invoiceID uuid.UUID) string {
	return fmt.Sprintf("billing:invoice:%s:%s", tenantID, invoiceID)
}

// SequenceLockKey scopes a lock to the numbering resource of a tenant.
func SequenceLockKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("billing:sequence:%s", tenantID)
}
