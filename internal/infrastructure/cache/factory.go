package cache

import (
	"context"
	"fmt"
	"time"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient opens a client and checks the server answers
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// Factory builds the lock and idempotency backends named in configuration.
// The Redis client is created on first use and shared.
type Factory struct {
	redisConfig config.RedisConfig
	logger      *zap.Logger
	client      *redis.Client
}

func NewFactory(redisCfg config.RedisConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{redisConfig: redisCfg, logger: logger}
}

// NewLocker returns the locker for cfg.LockBackend
func (f *Factory) NewLocker(ctx context.Context, cfg config.BillingConfig) (billingapp.Locker, error) {
	switch cfg.LockBackend {
	case config.BackendRedis:
		client, err := f.redis(ctx)
		if err != nil {
			return nil, err
		}
		f.logger.Info("using Redis locks", zap.Duration("ttl", cfg.LockTTL))
		return NewRedisLocker(client, cfg.LockTTL, WithLockLogger(f.logger)), nil
	case config.BackendMemory, "":
		f.logger.Info("using in-process locks")
		return NewInMemoryLocker(), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}

// NewIdempotencyStore returns the store for cfg.IdempotencyBackend
func (f *Factory) NewIdempotencyStore(ctx context.Context, cfg config.EventConfig) (shared.IdempotencyStore, error) {
	switch cfg.IdempotencyBackend {
	case config.BackendRedis:
		client, err := f.redis(ctx)
		if err != nil {
			return nil, err
		}
		return NewRedisIdempotencyStore(client, ""), nil
	case config.BackendMemory, "":
		f.logger.Warn("in-memory idempotency store does not dedupe across instances")
		return NewInMemoryIdempotencyStore(5 * time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.IdempotencyBackend)
	}
}

// Close releases the shared Redis client, if one was opened
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

func (f *Factory) redis(ctx context.Context) (*redis.Client, error) {
	if f.client != nil {
		return f.client, nil
	}
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, err
	}
	f.client = client
	return client, nil
}
