// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sysdict/internal/domain/catalogs/variable"
	"sysdict/internal/infrastructure/http/v1/handlers"
	"sysdict/internal/infrastructure/http/v1/middleware"
	"sysdict/pkg/logger"
)

// DictionaryService is the manager surface exposed over HTTP.
type DictionaryService interface {
	handlers.CategoryService
	handlers.DictionaryService
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Service serves the category and entry endpoints
	Service DictionaryService

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation; nil disables authentication
	JWTValidator middleware.JWTValidator

	// History serves the audit endpoints; nil disables them
	History handlers.HistoryReader

	// HealthChecks are probed by /health/ready
	HealthChecks map[string]handlers.CheckFunc

	// HealthInfo feeds /health/info
	HealthInfo func() map[string]any

	// Metrics records HTTP request metrics; nil disables the middleware
	Metrics *middleware.HTTPMetrics

	// MetricsHandler is mounted at /metrics when set
	MetricsHandler http.Handler

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks, cfg.HealthInfo)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api/v1")
	{
		protected := api.Group("")
		if cfg.JWTValidator != nil {
			protected.Use(middleware.Auth(cfg.JWTValidator))
		} else {
			protected.Use(middleware.AnonymousAdmin())
		}

		registerSystemRoutes(protected.Group("/system"), cfg)
	}

	return router
}

// registerSystemRoutes registers the dictionary category and entry endpoints.
func registerSystemRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	read := middleware.RequirePermission(middleware.PermDictionaryRead)

	// --- CATEGORIES ---
	categories := rg.Group("/categories")
	{
		handler := handlers.NewDictionaryCategoryHandler(baseHandler, cfg.Service)
		categories.GET("/roots", read, handler.Roots)
		RegisterCatalogRoutes(categories, handler, middleware.PermDictionaryRead, middleware.PermDictionaryWrite)
	}

	// --- DICTIONARIES ---
	dictionaries := rg.Group("/dictionaries")
	{
		handler := handlers.NewDataDictionaryHandler(baseHandler, cfg.Service)
		dictionaries.GET("/by-category/:code", read, handler.ByCategory)
		RegisterCatalogRoutes(dictionaries, handler, middleware.PermDictionaryRead, middleware.PermDictionaryWrite)
	}

	// --- HISTORY ---
	if cfg.History != nil {
		audit := handlers.NewAuditHandler(baseHandler, cfg.History)
		categories.GET("/:id/history", read, audit.History(variable.EntityCategory))
		dictionaries.GET("/:id/history", read, audit.History(variable.EntityDictionary))
	}
}
