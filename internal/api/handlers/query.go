package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/agents/query"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/gin-gonic/gin"
)

type QueryHandler struct {
	agent   *query.Agent
	history *services.HistoryService
}

func NewQueryHandler(agent *query.Agent, history *services.HistoryService) *QueryHandler {
	return &QueryHandler{agent: agent, history: history}
}

// ProcessQuery handles POST /process_revit_query
func (h *QueryHandler) ProcessQuery(c *gin.Context) {
	var req query.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      fmt.Sprintf("invalid query: %v", err),
			"request_id": c.GetString("request_id"),
		})
		return
	}

	result, err := h.answer(c, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// answer runs the agent and stores the exchange when history is enabled.
// A failed history write never fails the query.
func (h *QueryHandler) answer(c *gin.Context, req *query.Request) (*query.Result, error) {
	return h.answerStream(c, req, nil)
}

func (h *QueryHandler) answerStream(c *gin.Context, req *query.Request, cb llm.StreamCallback) (*query.Result, error) {
	result, err := h.agent.ProcessStream(c.Request.Context(), req, cb)
	if err != nil {
		return nil, err
	}

	if h.history.Enabled() {
		if _, err := h.history.Record(c.Request.Context(), req.Prompt, result.Response, result.Source); err != nil {
			fields := logger.WithContext(c)
			fields["prompt_len"] = len(req.Prompt)
			logger.Warn("Failed to record query history: "+err.Error(), fields)
		}
	}
	return result, nil
}

// History handles GET /api/v1/history?limit=n
func (h *QueryHandler) History(c *gin.Context) {
	limit := services.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, services.ErrHistoryDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"count":   len(entries),
	})
}
