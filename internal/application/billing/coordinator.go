package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/erp/billing/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ServiceConfig tunes the billing services.
type ServiceConfig struct {
	// BaseCurrency is the currency exchange rates are quoted against.
	BaseCurrency valueobject.Currency
	// SequenceMaxAttempts bounds how many times an issue is retried after
	// losing a race on the invoice sequence.
	SequenceMaxAttempts int
	// LockTimeout bounds the wait for an invoice or sequence lock.
	LockTimeout time.Duration
}

// DefaultServiceConfig returns VES as base currency, 3 attempts and a 5s lock wait.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BaseCurrency:        valueobject.DefaultCurrency,
		SequenceMaxAttempts: 3,
		LockTimeout:         5 * time.Second,
	}
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	d := DefaultServiceConfig()
	if c.BaseCurrency == "" {
		c.BaseCurrency = d.BaseCurrency
	}
	if c.SequenceMaxAttempts <= 0 {
		c.SequenceMaxAttempts = d.SequenceMaxAttempts
	}
	if c.LockTimeout <= 0 {
		c.LockTimeout = d.LockTimeout
	}
	return c
}

// coordinator owns the locking, transaction and error translation rules
// every billing command follows.
type coordinator struct {
	scope  TransactionScope
	locker Locker
	cfg    ServiceConfig
	logger *zap.Logger
}

func newCoordinator(scope TransactionScope, locker Locker, cfg ServiceConfig, logger *zap.Logger) coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return coordinator{scope: scope, locker: locker, cfg: cfg.withDefaults(), logger: logger}
}

// lock waits at most LockTimeout for key. A timeout means nothing was
// applied and the caller may retry.
func (c coordinator) lock(ctx context.Context, key, resource string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, c.cfg.LockTimeout)
	defer cancel()

	unlock, err := c.locker.Lock(lockCtx, key)
	if err != nil {
		c.logger.Warn("billing lock not acquired",
			zap.String("key", key),
			zap.Error(err))
		return nil, shared.NewDomainError(shared.ErrConcurrencyConflict.Code,
			fmt.Sprintf("%s is busy with another operation; nothing was applied, retry", resource))
	}
	return unlock, nil
}

// execute runs fn in a transaction and translates infrastructure errors.
func (c coordinator) execute(ctx context.Context, op string, fn func(TransactionalRepositories) error) (err error) {
	ctx, span := telemetry.StartSpan(ctx, spanName(op))
	defer func() { telemetry.EndSpan(span, err) }()

	return c.translate(op, c.scope.Execute(ctx, fn))
}

// executeAllocating runs fn like execute, retrying the whole transaction
// when the sequence row was changed underneath it. Exhausting the attempts
// is a PersistenceFailure; the caller never sees SequenceConflict.
func (c coordinator) executeAllocating(ctx context.Context, op string, fn func(TransactionalRepositories) error) (result error) {
	ctx, span := telemetry.StartSpan(ctx, spanName(op))
	defer func() { telemetry.EndSpan(span, result) }()

	var err error
	for attempt := 1; attempt <= c.cfg.SequenceMaxAttempts; attempt++ {
		err = c.scope.Execute(ctx, fn)
		if !errors.Is(err, billing.ErrSequenceConflict) {
			return c.translate(op, err)
		}
		telemetry.AddEvent(ctx, "sequence_conflict", telemetry.AttrAttempt.Int(attempt))
		c.logger.Warn("invoice sequence conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.SequenceMaxAttempts))
	}
	c.logger.Error("invoice sequence conflict retries exhausted",
		zap.String("operation", op),
		zap.Error(err))
	return billing.NewPersistenceFailure(op)
}

// translate passes domain errors through and hides everything else behind
// PersistenceFailure after logging the cause.
func (c coordinator) translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if shared.CodeOf(err) != "" {
		return err
	}
	c.logger.Error("billing persistence failure",
		zap.String("operation", op),
		zap.Error(err))
	return billing.NewPersistenceFailure(op)
}

// spanName turns "issue the invoice" into "issue_invoice".
func spanName(op string) string {
	words := strings.Fields(op)
	kept := words[:0]
	for _, w := range words {
		if w != "the" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, "_")
}

// recordEvents writes the pending events of agg to the outbox.
func recordEvents(ctx context.Context, repos TransactionalRepositories, agg shared.AggregateRoot) error {
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return nil
	}
	return repos.Events().Record(ctx, events...)
}
