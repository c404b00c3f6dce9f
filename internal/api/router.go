package api

import (
	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/revit-mcp-api/internal/api/middleware"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/config"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/metrics"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Dependencies are the wired services the router exposes
type Dependencies struct {
	Config     *config.Config
	DB         *gorm.DB // nil disables query history
	Cache      cache.Cache
	CloudWatch *metrics.Client
	Design     *services.DesignService
	Query      *query.Agent
	History    *services.HistoryService
	Provider   string // configured LLM provider name, empty when none
	Version    string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())
	router.Use(apimiddleware.SentryMiddleware())
	router.Use(apimiddleware.RequestTracking(deps.CloudWatch))
	router.Use(metrics.PrometheusMiddleware())
	router.Use(apimiddleware.CORS(cfg.CORSOrigins))

	// Public
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Cache, deps.Provider, deps.Version, cfg.Environment)
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, map[string]interface{}{
		"auth_mode":  cfg.AuthMode,
		"llm":        deps.Provider,
		"history":    deps.History.Enabled(),
		"cloudwatch": deps.CloudWatch.Enabled(),
	})
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	designHandler := handlers.NewDesignHandler(deps.Design)
	queryHandler := handlers.NewQueryHandler(deps.Query, deps.History)
	wsHandler := handlers.NewWSHandler(deps.Design, queryHandler, cfg.CORSOrigins)

	// Protected
	protected := router.Group("/")
	protected.Use(apimiddleware.Auth(cfg))
	{
		protected.POST("/generate", designHandler.Generate)
		protected.POST("/generate_revit_model", designHandler.GenerateModel)
		protected.POST("/process_revit_query", queryHandler.ProcessQuery)

		protected.GET("/api/revit/elements", handlers.RevitElements)
		protected.GET("/api/revit/properties", handlers.RevitProperties)

		protected.GET("/ws", wsHandler.Serve)
	}

	v1 := router.Group("/api/v1")
	v1.Use(apimiddleware.Auth(cfg))
	{
		v1.POST("/requirements/extract", designHandler.ExtractRequirements)
		v1.GET("/history", queryHandler.History)
	}

	return router
}
