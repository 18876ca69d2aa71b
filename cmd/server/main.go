package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	receivingapp "github.com/resale/backoffice/internal/application/receiving"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/cache"
	"github.com/resale/backoffice/internal/infrastructure/config"
	"github.com/resale/backoffice/internal/infrastructure/event"
	"github.com/resale/backoffice/internal/infrastructure/logger"
	"github.com/resale/backoffice/internal/infrastructure/persistence"
	"github.com/resale/backoffice/internal/infrastructure/telemetry"
	"github.com/resale/backoffice/internal/interfaces/http/handler"
	"github.com/resale/backoffice/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Back-office Receiving API
//	@version		1.0
//	@description	Supplier invoice reconciliation and the Warehouse/Finance handoff workflow.

//	@contact.name	Back-office team

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	ActorName
//	@in							header
//	@name						X-Actor-Name
//	@description				Name of the person performing the operation

//	@securityDefinitions.apikey	ActorDepartment
//	@in							header
//	@name						X-Actor-Department
//	@description				WAREHOUSE or FINANCE

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry comes first so the logs bridge can wrap the base logger
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize OTel logs", zap.Error(err))
	}
	log := logsProvider.Bridge(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() { _ = log.Sync() }()

	log.Info("Starting back-office receiving service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:          cfg.Telemetry.ProfilingEnabled,
		ServerAddress:    cfg.Telemetry.ProfilingServer,
		ApplicationName:  cfg.Telemetry.ServiceName,
		ProfileCPU:       true,
		ProfileAlloc:     true,
		ProfileInuse:     true,
		ProfileGoroutine: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.SpanProfiles && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles not enabled", zap.Error(err))
		}
	}

	// Storage
	clock := shared.SystemClock{}
	ids := shared.UUIDGenerator{}

	var (
		invoiceRepo    receiving.InvoiceRepository
		creditNoteRepo receiving.CreditNoteRepository
		dbChecker      handler.DatabaseChecker
		db             *persistence.Database
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("Using the in-memory store, invoices are lost on restart")
		invoiceRepo = persistence.NewMemoryInvoiceRepository()
		creditNoteRepo = persistence.NewMemoryCreditNoteRepository()
	default:
		db, err = openDatabase(cfg, log)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		log.Info("Database connected", zap.String("driver", cfg.Database.Driver))
		invoiceRepo = persistence.NewGormInvoiceRepository(db.DB)
		creditNoteRepo = persistence.NewGormCreditNoteRepository(db.DB)
		dbChecker = db
	}

	stores, err := cache.Connect(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
		cache.WithClock(clock),
	)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	var suppliers receiving.SupplierDirectory
	staticSuppliers, err := cache.NewStaticSupplierDirectory(cfg.Suppliers.Names)
	if err != nil {
		log.Fatal("Invalid supplier directory", zap.Error(err))
	}
	suppliers = staticSuppliers
	if stores.Client != nil {
		suppliers = cache.NewCachedSupplierDirectory(staticSuppliers, stores.Client, cfg.Suppliers.CacheTTL, log)
	}

	// Events
	eventBus := event.NewInMemoryEventBus(log)
	var forwarder *event.KafkaForwarder
	if cfg.Kafka.Enabled {
		forwarder = event.NewKafkaForwarder(event.NewKafkaWriter(cfg.Kafka), event.NewEventSerializer(), log)
		eventBus.Subscribe(forwarder)
		log.Info("Forwarding domain events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	policy := receiving.Policy{
		Tolerance:       cfg.Workflow.Tolerance,
		SLAWarningDays:  cfg.Workflow.SLAWarningDays,
		SLACriticalDays: cfg.Workflow.SLACriticalDays,
	}
	invoiceService := receivingapp.NewInvoiceService(invoiceRepo, receiving.NewWorkflow(policy, ids, clock), clock, log)
	invoiceService.SetEventPublisher(eventBus)
	invoiceService.SetSupplierDirectory(suppliers)
	idemCfg := shared.DefaultIdempotencyConfig()
	if cfg.Workflow.IdempotencyTTL > 0 {
		idemCfg.TTL = cfg.Workflow.IdempotencyTTL
	}
	invoiceService.SetIdempotencyStore(stores.Idempotency, idemCfg)

	creditNoteService := receivingapp.NewCreditNoteService(invoiceRepo, creditNoteRepo, receiving.NewCreditNoteIssuer(ids, clock), log)
	creditNoteService.SetEventPublisher(eventBus)

	var workflowMetrics *telemetry.WorkflowMetrics
	if meterProvider.IsEnabled() {
		workflowMetrics, err = telemetry.NewWorkflowMetrics(telemetry.WorkflowMetricsConfig{
			Meter:  meterProvider.Meter("backoffice/receiving"),
			Logger: log,
			Queues: invoiceService,
		})
		if err != nil {
			log.Fatal("Failed to initialize workflow metrics", zap.Error(err))
		}
		invoiceService.SetWorkflowMetrics(workflowMetrics)
		creditNoteService.SetWorkflowMetrics(workflowMetrics)
		workflowMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.QueueDepthPeriod)
	}

	// HTTP
	var engineMeters *telemetry.MeterProvider
	if meterProvider.IsEnabled() {
		engineMeters = meterProvider
	}
	engine := router.NewEngine(router.EngineConfig{
		HTTP:             cfg.HTTP,
		ServiceName:      cfg.Telemetry.ServiceName,
		Logger:           log,
		TracingEnabled:   tracerProvider.IsEnabled(),
		MeterProvider:    engineMeters,
		ProfilingEnabled: profiler.IsEnabled(),
		Invoices:         handler.NewInvoiceHandler(invoiceService),
		CreditNotes:      handler.NewCreditNoteHandler(creditNoteService),
		System:           handler.NewSystemHandler(cfg.App.Name, version, dbChecker),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain in reverse order of construction
	if workflowMetrics != nil {
		workflowMetrics.Stop()
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			log.Warn("Kafka writer did not close cleanly", zap.Error(err))
		}
	}
	if err := stores.Close(); err != nil {
		log.Warn("Error closing stores", zap.Error(err))
	}
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Warn("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects the SQL store with the zap-backed GORM logger and the
// query tracing plugin. SQLite always gets its tables from the models;
// Postgres only when auto-migrate is configured, cmd/migrate otherwise.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
	)

	dbSystem := "postgresql"
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithTracing(tracing),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver == config.DriverSQLite && !cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
