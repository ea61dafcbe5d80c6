package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "erp-billing", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "billing", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())

		assert.Equal(t, "VES", cfg.Billing.BaseCurrency)
		require.NoError(t, cfg.validate(), "the built-in base currency must pass validation")
		assert.Equal(t, BackendMemory, cfg.Billing.LockBackend)
		assert.Equal(t, 5*time.Second, cfg.Billing.LockTimeout)
		assert.Equal(t, 3, cfg.Billing.SequenceMaxAttempts)
		assert.Equal(t, "FAC", cfg.Billing.DefaultPrefix)
		assert.Equal(t, "{PREFIX}-{NUMBER}", cfg.Billing.DefaultPattern)
		assert.Equal(t, BackendMemory, cfg.Event.IdempotencyBackend)
		assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)
		assert.Equal(t, time.Second, cfg.Telemetry.DBLockWaitThresh)
	})

	t.Run("loads values from environment variables with BILLING prefix", func(t *testing.T) {
		t.Setenv("BILLING_APP_PORT", "9000")
		t.Setenv("BILLING_DATABASE_HOST", "testdb.local")
		t.Setenv("BILLING_DATABASE_PORT", "5433")
		t.Setenv("BILLING_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("BILLING_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("BILLING_BILLING_BASE_CURRENCY", "USD")
		t.Setenv("BILLING_BILLING_LOCK_BACKEND", "redis")
		t.Setenv("BILLING_BILLING_LOCK_TIMEOUT", "750ms")
		t.Setenv("BILLING_BILLING_DEFAULT_PATTERN", "{PREFIX}-{YEAR}-{NUMBER}")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "USD", cfg.Billing.BaseCurrency)
		assert.Equal(t, BackendRedis, cfg.Billing.LockBackend)
		assert.Equal(t, 750*time.Millisecond, cfg.Billing.LockTimeout)
		assert.Equal(t, "{PREFIX}-{YEAR}-{NUMBER}", cfg.Billing.DefaultPattern)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("BILLING_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("BILLING_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown base currency", func(t *testing.T) {
		t.Setenv("BILLING_BILLING_BASE_CURRENCY", "XXZ")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.base_currency")
	})

	t.Run("rejects unknown lock backend", func(t *testing.T) {
		t.Setenv("BILLING_BILLING_LOCK_BACKEND", "etcd")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.lock_backend")
	})

	t.Run("rejects default pattern without number placeholder", func(t *testing.T) {
		t.Setenv("BILLING_BILLING_DEFAULT_PATTERN", "{PREFIX}-{YEAR}")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "billing.default_pattern")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("BILLING_APP_ENV", "production")
		t.Setenv("BILLING_DATABASE_PASSWORD", "secure-password")
		t.Setenv("BILLING_DATABASE_SSLMODE", "require")
		t.Setenv("BILLING_BILLING_LOCK_BACKEND", "redis")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BILLING_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BILLING_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires distributed locks in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BILLING_BILLING_LOCK_BACKEND", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be 'redis' in production")
	})

	t.Run("rejects wildcard CORS in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("BILLING_HTTP_CORS_ALLOW_ORIGINS", "*")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cors_allow_origins")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
