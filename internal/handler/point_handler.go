package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gradewise/gradewise-api/internal/middleware"
	"github.com/gradewise/gradewise-api/internal/models"
	"github.com/gradewise/gradewise-api/internal/service"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
	"github.com/gradewise/gradewise-api/pkg/response"
)

// PointHandler exposes award and violation endpoints.
type PointHandler struct {
	points *service.PointService
}

// NewPointHandler constructs PointHandler.
func NewPointHandler(points *service.PointService) *PointHandler {
	return &PointHandler{points: points}
}

// Create godoc
// @Summary Record an award or violation
// @Tags Points
// @Accept json
// @Produce json
// @Param payload body service.CreatePointRequest true "Point payload"
// @Success 201 {object} response.Envelope
// @Router /points [post]
func (h *PointHandler) Create(c *gin.Context) {
	var req service.CreatePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.points.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List point records
// @Tags Points
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /points [get]
func (h *PointHandler) List(c *gin.Context) {
	filter := models.PointRecordFilter{StudentID: c.Query("studentId")}
	if from := c.Query("from"); from != "" {
		date, err := time.Parse(models.DateLayout, from)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return
		}
		filter.DateFrom = &date
	}
	if to := c.Query("to"); to != "" {
		date, err := time.Parse(models.DateLayout, to)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return
		}
		filter.DateTo = &date
	}
	if claims := middleware.CurrentClaims(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}

	records, err := h.points.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Delete godoc
// @Summary Delete a point record
// @Tags Points
// @Param id path string true "Point record ID"
// @Success 204
// @Router /points/{id} [delete]
func (h *PointHandler) Delete(c *gin.Context) {
	if err := h.points.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
