package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/shelfsense/backend/config"
)

// MetricsExporter observes requests and serves the scrape endpoint
type MetricsExporter interface {
	RequestObserver
	Handler() http.Handler
}

// SetupRouter creates and configures the Gin router. A nil exporter leaves
// out request metrics and the /metrics endpoint.
func SetupRouter(cfg *config.Config, handler *Handler, exporter MetricsExporter, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	if exporter != nil {
		router.Use(MetricsMiddleware(exporter))
		router.GET("/metrics", gin.WrapH(exporter.Handler()))
	}

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.POST("/extract", handler.Extract)

		products := v1.Group("/products")
		{
			products.POST("", handler.IngestProduct)
			products.GET("", handler.ListProducts)
			products.GET("/:id", handler.GetProduct)
		}

		identity := v1.Group("/identity")
		{
			identity.POST("/resolve", handler.ResolveIdentities)
			identity.POST("/resolve-catalog", handler.ResolveCatalog)
		}
	}

	return router
}
