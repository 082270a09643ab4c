package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
	"github.com/mechfleet/maintenance-api/pkg/response"
)

type failureReportService interface {
	Create(ctx context.Context, actor authz.Actor, req models.CreateFailureReportRequest) (*models.FailureReportDetail, error)
	List(ctx context.Context, actor authz.Actor, filter models.FailureReportFilter) ([]models.FailureReportDetail, int, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error)
	Claim(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error)
	Release(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error)
	Assign(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error)
	Reassign(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error)
	Dismiss(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error)
	Resolve(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error)
}

// FailureReportHandler exposes the failure report workflow endpoints.
type FailureReportHandler struct {
	reports failureReportService
	actors  actorResolver
}

// NewFailureReportHandler constructs FailureReportHandler.
func NewFailureReportHandler(reports failureReportService, actors actorResolver) *FailureReportHandler {
	return &FailureReportHandler{reports: reports, actors: actors}
}

// List godoc
// @Summary List failure reports
// @Tags FailureReports
// @Produce json
// @Param status query string false "Filter by status"
// @Param vehicleId query string false "Filter by vehicle"
// @Param managedBy query string false "Filter by managing user"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports [get]
func (h *FailureReportHandler) List(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.FailureReportFilter
	filter.Status = models.FailureReportStatus(c.Query("status"))
	filter.VehicleID = c.Query("vehicleId")
	filter.ManagedBy = c.Query("managedBy")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	reports, total, err := h.reports.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get failure report detail
// @Tags FailureReports
// @Produce json
// @Param id path string true "Failure report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id} [get]
func (h *FailureReportHandler) Get(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Create godoc
// @Summary Report a vehicle failure
// @Tags FailureReports
// @Accept json
// @Produce json
// @Param payload body models.CreateFailureReportRequest true "Failure report payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports [post]
func (h *FailureReportHandler) Create(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.CreateFailureReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	report, err := h.reports.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Claim godoc
// @Summary Take exclusive management of a failure report
// @Tags FailureReports
// @Produce json
// @Param id path string true "Failure report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id}/claim [post]
func (h *FailureReportHandler) Claim(c *gin.Context) {
	h.transition(c, h.reports.Claim)
}

// Release godoc
// @Summary Give up management of a failure report
// @Tags FailureReports
// @Produce json
// @Param id path string true "Failure report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id}/release [post]
func (h *FailureReportHandler) Release(c *gin.Context) {
	h.transition(c, h.reports.Release)
}

// Dismiss godoc
// @Summary Dismiss a pending failure report
// @Tags FailureReports
// @Produce json
// @Param id path string true "Failure report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id}/dismiss [post]
func (h *FailureReportHandler) Dismiss(c *gin.Context) {
	h.transition(c, h.reports.Dismiss)
}

// Resolve godoc
// @Summary Resolve a failure report with a ready repair
// @Tags FailureReports
// @Produce json
// @Param id path string true "Failure report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id}/resolve [post]
func (h *FailureReportHandler) Resolve(c *gin.Context) {
	h.transition(c, h.reports.Resolve)
}

// Assign godoc
// @Summary Assign a workshop to a pending failure report
// @Tags FailureReports
// @Accept json
// @Produce json
// @Param id path string true "Failure report ID"
// @Param payload body models.AssignWorkshopRequest true "Workshop payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id}/assign [post]
func (h *FailureReportHandler) Assign(c *gin.Context) {
	h.workshopTransition(c, h.reports.Assign)
}

// Reassign godoc
// @Summary Move a failure report to a different workshop
// @Tags FailureReports
// @Accept json
// @Produce json
// @Param id path string true "Failure report ID"
// @Param payload body models.AssignWorkshopRequest true "Workshop payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /failure-reports/{id}/reassign [post]
func (h *FailureReportHandler) Reassign(c *gin.Context) {
	h.workshopTransition(c, h.reports.Reassign)
}

func (h *FailureReportHandler) transition(c *gin.Context, op func(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error)) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := op(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

func (h *FailureReportHandler) workshopTransition(c *gin.Context, op func(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error)) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.AssignWorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := op(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
