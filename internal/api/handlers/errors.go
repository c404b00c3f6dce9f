package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, floorplan.ErrInvalidRequirements),
		errors.Is(err, services.ErrUnsupportedAction):
		return http.StatusBadRequest
	case errors.Is(err, floorplan.ErrDegenerateGeometry),
		errors.Is(err, query.ErrEmptyPrompt):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {error, request_id}. Server errors are reported to
// Sentry; client errors only logged by request tracking.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, logger.WithContext(c))
	}
	c.JSON(status, gin.H{
		"error":      err.Error(),
		"request_id": c.GetString("request_id"),
	})
}
