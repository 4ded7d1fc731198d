package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradewise/gradewise-api/internal/service"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
	"github.com/gradewise/gradewise-api/pkg/response"
)

// PositionHandler exposes class position endpoints.
type PositionHandler struct {
	positions *service.PositionService
}

// NewPositionHandler constructs PositionHandler.
func NewPositionHandler(positions *service.PositionService) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// List godoc
// @Summary List positions
// @Tags Positions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /positions [get]
func (h *PositionHandler) List(c *gin.Context) {
	positions, err := h.positions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, positions, nil)
}

// Create godoc
// @Summary Create a position
// @Tags Positions
// @Accept json
// @Produce json
// @Param payload body service.PositionRequest true "Position payload"
// @Success 201 {object} response.Envelope
// @Router /positions [post]
func (h *PositionHandler) Create(c *gin.Context) {
	var req service.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	position, err := h.positions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, position)
}

// Rename godoc
// @Summary Rename a position
// @Tags Positions
// @Accept json
// @Produce json
// @Param id path string true "Position ID"
// @Param payload body service.PositionRequest true "Position payload"
// @Success 200 {object} response.Envelope
// @Router /positions/{id} [put]
func (h *PositionHandler) Rename(c *gin.Context) {
	var req service.PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	position, err := h.positions.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// Delete godoc
// @Summary Delete a position and detach its holders
// @Tags Positions
// @Param id path string true "Position ID"
// @Success 204
// @Router /positions/{id} [delete]
func (h *PositionHandler) Delete(c *gin.Context) {
	if err := h.positions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
