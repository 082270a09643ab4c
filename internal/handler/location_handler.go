package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mechfleet/maintenance-api/internal/models"
	"github.com/mechfleet/maintenance-api/internal/service"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
	"github.com/mechfleet/maintenance-api/pkg/response"
)

// LocationHandler exposes branch and workshop endpoints.
type LocationHandler struct {
	locations *service.LocationService
	actors    actorResolver
}

// NewLocationHandler constructs LocationHandler.
func NewLocationHandler(locations *service.LocationService, actors actorResolver) *LocationHandler {
	return &LocationHandler{locations: locations, actors: actors}
}

// List godoc
// @Summary List locations
// @Tags Locations
// @Produce json
// @Param name query string false "Filter by name substring"
// @Param type query string false "BRANCH or WORKSHOP"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /locations [get]
func (h *LocationHandler) List(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.LocationFilter
	filter.Name = strings.TrimSpace(c.Query("name"))
	filter.LocationType = models.LocationType(c.Query("type"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	locations, total, err := h.locations.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get location detail
// @Tags Locations
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /locations/{id} [get]
func (h *LocationHandler) Get(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	location, err := h.locations.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Create godoc
// @Summary Create a location
// @Tags Locations
// @Accept json
// @Produce json
// @Param payload body models.LocationRequest true "Location payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /locations [post]
func (h *LocationHandler) Create(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	location, err := h.locations.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, location)
}

// Update godoc
// @Summary Update a location
// @Tags Locations
// @Accept json
// @Produce json
// @Param id path string true "Location ID"
// @Param payload body models.LocationRequest true "Location payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /locations/{id} [put]
func (h *LocationHandler) Update(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	location, err := h.locations.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, location, nil)
}

// Delete godoc
// @Summary Delete a location
// @Tags Locations
// @Param id path string true "Location ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /locations/{id} [delete]
func (h *LocationHandler) Delete(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.locations.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
