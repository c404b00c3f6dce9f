package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/cache"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/database"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	welcomeMessage = "Welcome to the Revit MCP API"
	dbPingTimeout  = 2 * time.Second
)

type HealthHandler struct {
	db          *gorm.DB
	cache       cache.Cache
	provider    string
	version     string
	environment string
}

// NewHealthHandler creates the health handler. provider is the configured
// LLM provider name, or empty when requests fall back to heuristics.
func NewHealthHandler(db *gorm.DB, c cache.Cache, provider, version, environment string) *HealthHandler {
	return &HealthHandler{db: db, cache: c, provider: provider, version: version, environment: environment}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// HealthCheck reports service status. A configured but unreachable database
// makes the service "degraded"; the response is still 200.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"

	dbStatus := "disabled"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), dbPingTimeout)
		defer cancel()
		if err := database.Ping(ctx, h.db); err != nil {
			dbStatus = "unreachable"
			status = "degraded"
		} else {
			dbStatus = "connected"
		}
	}

	cacheName := "none"
	if h.cache != nil {
		cacheName = h.cache.Name()
	}

	provider := h.provider
	if provider == "" {
		provider = "heuristic"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"version":     h.version,
		"environment": h.environment,
		"database":    dbStatus,
		"cache":       cacheName,
		"llm":         provider,
	})
}
