package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mechfleet/maintenance-api/internal/models"
	"github.com/mechfleet/maintenance-api/internal/service"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
	"github.com/mechfleet/maintenance-api/pkg/response"
)

// ManufacturerHandler exposes manufacturer reference endpoints.
type ManufacturerHandler struct {
	manufacturers *service.ManufacturerService
	actors        actorResolver
}

// NewManufacturerHandler constructs ManufacturerHandler.
func NewManufacturerHandler(manufacturers *service.ManufacturerService, actors actorResolver) *ManufacturerHandler {
	return &ManufacturerHandler{manufacturers: manufacturers, actors: actors}
}

// List godoc
// @Summary List manufacturers
// @Tags Manufacturers
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manufacturers [get]
func (h *ManufacturerHandler) List(c *gin.Context) {
	manufacturers, err := h.manufacturers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manufacturers, nil)
}

// Get godoc
// @Summary Get manufacturer detail
// @Tags Manufacturers
// @Produce json
// @Param id path string true "Manufacturer ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manufacturers/{id} [get]
func (h *ManufacturerHandler) Get(c *gin.Context) {
	manufacturer, err := h.manufacturers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manufacturer, nil)
}

// Create godoc
// @Summary Create a manufacturer
// @Tags Manufacturers
// @Accept json
// @Produce json
// @Param payload body models.ManufacturerRequest true "Manufacturer payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /manufacturers [post]
func (h *ManufacturerHandler) Create(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ManufacturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	manufacturer, err := h.manufacturers.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, manufacturer)
}

// Update godoc
// @Summary Rename a manufacturer
// @Tags Manufacturers
// @Accept json
// @Produce json
// @Param id path string true "Manufacturer ID"
// @Param payload body models.ManufacturerRequest true "Manufacturer payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /manufacturers/{id} [put]
func (h *ManufacturerHandler) Update(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ManufacturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	manufacturer, err := h.manufacturers.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, manufacturer, nil)
}

// Delete godoc
// @Summary Delete a manufacturer
// @Tags Manufacturers
// @Param id path string true "Manufacturer ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /manufacturers/{id} [delete]
func (h *ManufacturerHandler) Delete(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.manufacturers.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
