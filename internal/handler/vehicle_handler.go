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

// VehicleHandler exposes fleet vehicle endpoints.
type VehicleHandler struct {
	vehicles *service.VehicleService
	repairs  *service.RepairReportService
	actors   actorResolver
}

// NewVehicleHandler constructs VehicleHandler.
func NewVehicleHandler(vehicles *service.VehicleService, repairs *service.RepairReportService, actors actorResolver) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, repairs: repairs, actors: actors}
}

// List godoc
// @Summary List fleet vehicles
// @Tags Vehicles
// @Produce json
// @Param model query string false "Filter by model substring"
// @Param yearFrom query int false "Minimum model year"
// @Param yearTo query int false "Maximum model year"
// @Param vehicleType query string false "Filter by vehicle type"
// @Param fuelType query string false "Filter by fuel type"
// @Param availability query string false "Filter by availability"
// @Param manufacturerId query string false "Filter by manufacturer"
// @Param locationId query string false "Filter by branch"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /vehicles [get]
func (h *VehicleHandler) List(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.VehicleFilter
	filter.Model = strings.TrimSpace(c.Query("model"))
	if year, err := strconv.Atoi(c.Query("yearFrom")); err == nil {
		filter.YearFrom = year
	}
	if year, err := strconv.Atoi(c.Query("yearTo")); err == nil {
		filter.YearTo = year
	}
	filter.VehicleType = models.VehicleType(c.Query("vehicleType"))
	filter.FuelType = models.FuelType(c.Query("fuelType"))
	filter.Availability = models.VehicleAvailability(c.Query("availability"))
	filter.ManufacturerID = c.Query("manufacturerId")
	filter.LocationID = c.Query("locationId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	vehicles, total, err := h.vehicles.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vehicles, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get vehicle detail
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /vehicles/{id} [get]
func (h *VehicleHandler) Get(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	vehicle, err := h.vehicles.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vehicle, nil)
}

// Create godoc
// @Summary Register a vehicle
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param payload body models.VehicleRequest true "Vehicle payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /vehicles [post]
func (h *VehicleHandler) Create(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	vehicle, err := h.vehicles.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, vehicle)
}

// Update godoc
// @Summary Update a vehicle
// @Tags Vehicles
// @Accept json
// @Produce json
// @Param id path string true "Vehicle ID"
// @Param payload body models.VehicleRequest true "Vehicle payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /vehicles/{id} [put]
func (h *VehicleHandler) Update(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	vehicle, err := h.vehicles.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, vehicle, nil)
}

// Delete godoc
// @Summary Delete a vehicle
// @Tags Vehicles
// @Param id path string true "Vehicle ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /vehicles/{id} [delete]
func (h *VehicleHandler) Delete(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.vehicles.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RepairHistory godoc
// @Summary List historic repair reports of a vehicle in the caller's workshop
// @Tags Vehicles
// @Produce json
// @Param id path string true "Vehicle ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /vehicles/{id}/repair-history [get]
func (h *VehicleHandler) RepairHistory(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.repairs.VehicleHistory(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
