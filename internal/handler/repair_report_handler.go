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

type repairReportService interface {
	List(ctx context.Context, actor authz.Actor, filter models.RepairReportFilter) ([]models.RepairReportDetail, int, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportDetail, error)
	Update(ctx context.Context, actor authz.Actor, id string, req models.UpdateRepairReportRequest) (*models.RepairReportDetail, error)
	SetStatus(ctx context.Context, actor authz.Actor, id string, req models.RepairReportStatusRequest) (*models.RepairReportDetail, error)
	Reject(ctx context.Context, actor authz.Actor, id string, req models.RejectRepairReportRequest) (*models.RepairReportRejection, error)
	ListRejections(ctx context.Context, actor authz.Actor, id string) ([]models.RepairReportRejection, error)
	Rejections(ctx context.Context, actor authz.Actor, page, pageSize int) ([]models.RepairReportRejection, int, error)
	GetRejection(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportRejection, error)
	ExportCSV(ctx context.Context, actor authz.Actor) ([]byte, error)
	ExportPDF(ctx context.Context, actor authz.Actor) ([]byte, error)
}

// RepairReportHandler exposes repair report endpoints.
type RepairReportHandler struct {
	repairs repairReportService
	actors  actorResolver
}

// NewRepairReportHandler constructs RepairReportHandler.
func NewRepairReportHandler(repairs repairReportService, actors actorResolver) *RepairReportHandler {
	return &RepairReportHandler{repairs: repairs, actors: actors}
}

// List godoc
// @Summary List repair reports visible to the caller
// @Tags RepairReports
// @Produce json
// @Param status query string false "Filter by status"
// @Param vehicleId query string false "Filter by vehicle"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-reports [get]
func (h *RepairReportHandler) List(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.RepairReportFilter
	filter.Status = models.RepairReportStatus(c.Query("status"))
	filter.VehicleID = c.Query("vehicleId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	reports, total, err := h.repairs.List(c.Request.Context(), actor, filter)
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
// @Summary Get repair report detail
// @Tags RepairReports
// @Produce json
// @Param id path string true "Repair report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-reports/{id} [get]
func (h *RepairReportHandler) Get(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.repairs.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Update godoc
// @Summary Edit an active repair report
// @Tags RepairReports
// @Accept json
// @Produce json
// @Param id path string true "Repair report ID"
// @Param payload body models.UpdateRepairReportRequest true "Repair payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-reports/{id} [put]
func (h *RepairReportHandler) Update(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.UpdateRepairReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.repairs.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SetStatus godoc
// @Summary Flip a repair report between ACTIVE and READY
// @Tags RepairReports
// @Accept json
// @Produce json
// @Param id path string true "Repair report ID"
// @Param payload body models.RepairReportStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-reports/{id}/status [put]
func (h *RepairReportHandler) SetStatus(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.RepairReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.repairs.SetStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Reject godoc
// @Summary Reject a ready repair report
// @Tags RepairReports
// @Accept json
// @Produce json
// @Param id path string true "Repair report ID"
// @Param payload body models.RejectRepairReportRequest true "Rejection payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-reports/{id}/reject [post]
func (h *RepairReportHandler) Reject(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.RejectRepairReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rejection, err := h.repairs.Reject(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rejection)
}

// ListRejections godoc
// @Summary List the rejection ledger of a repair report
// @Tags RepairReports
// @Produce json
// @Param id path string true "Repair report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-reports/{id}/rejections [get]
func (h *RepairReportHandler) ListRejections(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	rejections, err := h.repairs.ListRejections(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rejections, nil)
}

// Rejections godoc
// @Summary List rejections across visible repair reports
// @Tags RepairReports
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-report-rejections [get]
func (h *RepairReportHandler) Rejections(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	rejections, total, err := h.repairs.Rejections(c.Request.Context(), actor, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rejections, &models.Pagination{
		Page:       page,
		PageSize:   limit,
		TotalCount: total,
	})
}

// GetRejection godoc
// @Summary Get one rejection record
// @Tags RepairReports
// @Produce json
// @Param id path string true "Rejection ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /repair-report-rejections/{id} [get]
func (h *RepairReportHandler) GetRejection(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}
	rejection, err := h.repairs.GetRejection(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rejection, nil)
}

// Export godoc
// @Summary Download the repair cost report
// @Tags RepairReports
// @Produce text/csv
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /repair-reports/export [get]
func (h *RepairReportHandler) Export(c *gin.Context) {
	actor, err := currentActor(c, h.actors)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		payload, err := h.repairs.ExportCSV(c.Request.Context(), actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="repair-costs.csv"`)
		c.Data(http.StatusOK, "text/csv", payload)
	case "pdf":
		payload, err := h.repairs.ExportPDF(c.Request.Context(), actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="repair-costs.pdf"`)
		c.Data(http.StatusOK, "application/pdf", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
