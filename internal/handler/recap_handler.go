package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradewise/gradewise-api/internal/models"
	"github.com/gradewise/gradewise-api/internal/service"
	"github.com/gradewise/gradewise-api/pkg/response"
)

// RecapHandler exposes recap, leaderboard and export endpoints.
type RecapHandler struct {
	recaps *service.RecapService
}

// NewRecapHandler constructs RecapHandler.
func NewRecapHandler(recaps *service.RecapService) *RecapHandler {
	return &RecapHandler{recaps: recaps}
}

func periodQuery(c *gin.Context) models.Period {
	return models.Period(c.DefaultQuery("period", string(models.PeriodWeekly)))
}

// Recap godoc
// @Summary Ranked per-student recap for a period
// @Tags Recap
// @Produce json
// @Param period query string false "weekly, monthly or all-time" default(weekly)
// @Success 200 {object} response.Envelope
// @Router /recap [get]
func (h *RecapHandler) Recap(c *gin.Context) {
	entries, err := h.recaps.Recap(c.Request.Context(), periodQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Leaderboard godoc
// @Summary Weekly leaderboard
// @Tags Recap
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *RecapHandler) Leaderboard(c *gin.Context) {
	board, err := h.recaps.Leaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, board, nil)
}

// ExportCSV godoc
// @Summary Download the recap as CSV
// @Tags Recap
// @Produce text/csv
// @Param period query string false "weekly, monthly or all-time" default(weekly)
// @Success 200 {file} file
// @Router /recap/export/csv [get]
func (h *RecapHandler) ExportCSV(c *gin.Context) {
	file, err := h.recaps.ExportCSV(c.Request.Context(), periodQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// ExportPDF godoc
// @Summary Download the recap as PDF
// @Tags Recap
// @Produce application/pdf
// @Param period query string false "weekly, monthly or all-time" default(weekly)
// @Success 200 {file} file
// @Router /recap/export/pdf [get]
func (h *RecapHandler) ExportPDF(c *gin.Context) {
	file, err := h.recaps.ExportPDF(c.Request.Context(), periodQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
