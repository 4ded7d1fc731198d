package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradewise/gradewise-api/internal/service"
	"github.com/gradewise/gradewise-api/pkg/response"
)

// AnalysisHandler exposes the AI recap analysis endpoint.
type AnalysisHandler struct {
	analysis *service.AnalysisService
}

// NewAnalysisHandler constructs AnalysisHandler.
func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// Analyze godoc
// @Summary Generate a narrative analysis of one student's recap
// @Tags Analysis
// @Produce json
// @Param id path string true "Student ID"
// @Param period query string false "weekly, monthly or all-time" default(weekly)
// @Success 200 {object} response.Envelope
// @Router /students/{id}/analysis [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	result, err := h.analysis.Analyze(c.Request.Context(), c.Param("id"), periodQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
