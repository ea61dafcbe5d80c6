// Command server runs the billing HTTP API and the outbox processor.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/erp/billing/internal/domain/shared/valueobject"
	"github.com/erp/billing/internal/infrastructure/cache"
	"github.com/erp/billing/internal/infrastructure/config"
	"github.com/erp/billing/internal/infrastructure/event"
	"github.com/erp/billing/internal/infrastructure/logger"
	"github.com/erp/billing/internal/infrastructure/migration"
	"github.com/erp/billing/internal/infrastructure/persistence"
	"github.com/erp/billing/internal/infrastructure/telemetry"
	"github.com/erp/billing/internal/interfaces/http/handler"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/erp/billing/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.NewForEnvironment(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(cfg *config.Config, baseLog *zap.Logger) error {
	ctx := context.Background()

	// Telemetry first so the bridged logger and DB plugin see the real providers
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		ExportLogs:        cfg.Telemetry.Enabled,
	}, baseLog)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			baseLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log := providers.BridgeLogger(baseLog, level)

	log.Info("Starting billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithLockWaitThreshold(cfg.Telemetry.DBLockWaitThresh),
		logger.WithParameterizedQueries(!cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(ctx, &cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	poolStats, err := telemetry.InstrumentDB(db.DB, providers.Meter(), telemetry.DBConfig{
		TraceEnabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:   cfg.Telemetry.DBLogFullSQL,
		DBName:       cfg.Database.DBName,
	}, log)
	if err != nil {
		return err
	}
	defer func() { _ = poolStats.Unregister() }()

	if err := migrate(db, log); err != nil {
		return err
	}

	// Events are written to the outbox inside each billing transaction
	eventSerializer := event.NewEventSerializer()
	event.RegisterBillingEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	sequenceDefaults := persistence.SequenceDefaults{
		Prefix:  cfg.Billing.DefaultPrefix,
		Pattern: cfg.Billing.DefaultPattern,
	}
	scope := persistence.NewGormTransactionScope(db.DB, outboxPublisher, sequenceDefaults)

	// Locks and handler dedupe, in-process or Redis
	backends := cache.NewFactory(cfg.Redis, log)
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()
	locker, err := backends.NewLocker(ctx, cfg.Billing)
	if err != nil {
		return err
	}
	idempotencyStore, err := backends.NewIdempotencyStore(ctx, cfg.Event)
	if err != nil {
		return err
	}
	defer func() { _ = idempotencyStore.Close() }()

	// Application services
	baseCurrency, err := valueobject.ParseCurrency(cfg.Billing.BaseCurrency)
	if err != nil {
		return err
	}
	serviceCfg := billingapp.ServiceConfig{
		BaseCurrency:        baseCurrency,
		SequenceMaxAttempts: cfg.Billing.SequenceMaxAttempts,
		LockTimeout:         cfg.Billing.LockTimeout,
	}

	invoiceService := billingapp.NewInvoiceService(scope, persistence.NewGormInvoiceRepository(db.DB), locker, serviceCfg, log)
	paymentService := billingapp.NewPaymentService(scope, persistence.NewGormPaymentRepository(db.DB), locker, serviceCfg, log)
	sequenceService := billingapp.NewSequenceService(scope, persistence.NewGormSequenceRepository(db.DB, sequenceDefaults), locker, serviceCfg, log)
	bankAccountService := billingapp.NewBankAccountService(scope, persistence.NewGormBankAccountRepository(db.DB), locker, serviceCfg, log)

	// Event bus and handlers fed by the outbox processor
	eventBus := event.NewInMemoryEventBus(log)
	billingMetrics, err := telemetry.NewBillingMetrics(providers.Meter())
	if err != nil {
		return err
	}
	handlers := event.WrapHandlersWithIdempotency([]shared.EventHandler{
		billingapp.NewMetricsEventHandler(billingMetrics, log),
		billingapp.NewForcedDeleteAuditHandler(log),
	}, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyTTL,
			Enabled: true,
		}),
		event.OnDuplicate(func(ctx context.Context, name string, e shared.DomainEvent) {
			billingMetrics.RecordDuplicateDelivery(ctx, name, e.EventType())
		}),
	)
	for _, h := range handlers {
		eventBus.Subscribe(h)
	}

	if err := eventBus.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention

		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		return err
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: providers.Enabled(),
		CORS:           corsConfig,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, log)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	billingRoutes := router.NewBillingRoutes(router.BillingHandlers{
		Invoices:     handler.NewInvoiceHandler(invoiceService),
		Payments:     handler.NewPaymentHandler(paymentService),
		Sequence:     handler.NewSequenceHandler(sequenceService),
		BankAccounts: handler.NewBankAccountHandler(bankAccountService),
		Treasury:     handler.NewTreasuryHandler(paymentService),
	})
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(billingRoutes).
		Register(router.NewSystemRoutes(systemHandler)).
		Setup()
	log.Info("Routes registered", zap.Int("billing_routes", billingRoutes.RouteCount()))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("Server exited gracefully")
	return nil
}

// migrate brings the schema up to date from the embedded migrations
func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, "", log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool; it is left open.
	return m.Up()
}
