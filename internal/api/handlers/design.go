package handlers

import (
	"fmt"
	"net/http"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/logger"
	"github.com/Conceptual-Machines/revit-mcp-api/internal/services"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
	"github.com/gin-gonic/gin"
)

const (
	modelSuccessMessage = "Model generated successfully"
	modelFailureMessage = "Failed to generate model"
)

type DesignHandler struct {
	svc *services.DesignService
}

func NewDesignHandler(svc *services.DesignService) *DesignHandler {
	return &DesignHandler{svc: svc}
}

// ModelResponse is the body of POST /generate_revit_model
type ModelResponse struct {
	Success      bool                      `json:"success"`
	ModelData    *floorplan.GeneratedModel `json:"model_data"`
	Requirements *floorplan.Requirements   `json:"requirements,omitempty"`
	Source       string                    `json:"source,omitempty"`
	Message      string                    `json:"message"`
	Error        *string                   `json:"error"`
	Warnings     []floorplan.Warning       `json:"warnings"`
}

// Generate handles POST /generate
func (h *DesignHandler) Generate(c *gin.Context) {
	var req services.DesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", floorplan.ErrInvalidRequirements, err))
		return
	}

	result, err := h.svc.GenerateDesign(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"design":   result.Design,
		"message":  result.Message,
		"warnings": result.Warnings,
	})
}

// GenerateModel handles POST /generate_revit_model. Failures keep the
// response shape with success=false and an error message.
func (h *DesignHandler) GenerateModel(c *gin.Context) {
	var req services.ModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.modelFailure(c, fmt.Errorf("%w: %v", floorplan.ErrInvalidRequirements, err))
		return
	}

	result, err := h.svc.GenerateModel(c.Request.Context(), &req)
	if err != nil {
		h.modelFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, ModelResponse{
		Success:      true,
		ModelData:    result.Model,
		Requirements: &result.Requirements,
		Source:       result.Source,
		Message:      modelSuccessMessage,
		Warnings:     result.Warnings,
	})
}

func (h *DesignHandler) modelFailure(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Model generation failed", err, logger.WithContext(c))
	}
	msg := err.Error()
	c.JSON(status, ModelResponse{
		Success:   false,
		ModelData: &floorplan.GeneratedModel{},
		Message:   modelFailureMessage,
		Error:     &msg,
		Warnings:  []floorplan.Warning{},
	})
}

type extractRequest struct {
	Description string `json:"description" binding:"required"`
}

// ExtractRequirements handles POST /api/v1/requirements/extract
func (h *DesignHandler) ExtractRequirements(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", floorplan.ErrInvalidRequirements, err))
		return
	}

	result, err := h.svc.ExtractRequirements(c.Request.Context(), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
