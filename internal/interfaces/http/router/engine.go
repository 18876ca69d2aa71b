package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/resale/backoffice/internal/infrastructure/config"
	"github.com/resale/backoffice/internal/infrastructure/logger"
	"github.com/resale/backoffice/internal/infrastructure/telemetry"
	"github.com/resale/backoffice/internal/interfaces/http/handler"
	"github.com/resale/backoffice/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig is everything NewEngine wires into the gin engine
type EngineConfig struct {
	HTTP        config.HTTPConfig
	ServiceName string
	Logger      *zap.Logger

	TracingEnabled   bool
	MeterProvider    *telemetry.MeterProvider
	ProfilingEnabled bool

	Invoices    *handler.InvoiceHandler
	CreditNotes *handler.CreditNoteHandler
	System      *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware stack and every route
// of the back-office API.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id and the span must exist before the
	// request logger, and the actor before anything that labels by it.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Actor())
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: cfg.MeterProvider,
		Enabled:       cfg.MeterProvider != nil,
	}))
	engine.Use(middleware.ProfilingWithConfig(middleware.ProfilingConfig{
		Enabled:   cfg.ProfilingEnabled,
		SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
	}))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	corsConfig.MaxAge = 12 * time.Hour
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.System != nil {
		engine.GET("/health", cfg.System.Health)
	}

	r := NewRouter(engine, WithAPIVersion("v1"), WithLogger(log))
	if cfg.Invoices != nil {
		r.Register(InvoiceRoutes(cfg.Invoices, cfg.CreditNotes))
		r.Register(QueueRoutes(cfg.Invoices))
	}
	if cfg.System != nil {
		r.Register(NewDomainGroup("system", "/system").GET("/info", cfg.System.GetSystemInfo))
	}
	r.Setup()

	return engine
}

// InvoiceRoutes groups the invoice workflow and its credit notes
func InvoiceRoutes(invoices *handler.InvoiceHandler, creditNotes *handler.CreditNoteHandler) *DomainGroup {
	g := NewDomainGroup("invoices", "/invoices")
	g.POST("", invoices.CreateInvoice).
		GET("/:id", invoices.GetInvoice).
		POST("/:id/products", invoices.RegisterProducts).
		POST("/:id/inspections", invoices.InspectProducts).
		POST("/:id/defects", invoices.MarkDefective).
		POST("/:id/payments", invoices.RegisterPayment).
		POST("/:id/reject", invoices.Reject).
		POST("/:id/divergence", invoices.FlagDivergence).
		POST("/:id/resubmit", invoices.Resubmit).
		PATCH("/:id/notes", invoices.Annotate).
		POST("/:id/alerts/:alert_id/resolve", invoices.ResolveAlert)

	if creditNotes != nil {
		g.POST("/:id/credit-notes", creditNotes.IssueCreditNote).
			GET("/:id/credit-notes", creditNotes.ListCreditNotes)
	}
	return g
}

// QueueRoutes exposes the per-department work queues
func QueueRoutes(invoices *handler.InvoiceHandler) *DomainGroup {
	return NewDomainGroup("queues", "/queues").GET("/:department", invoices.ListQueue)
}
