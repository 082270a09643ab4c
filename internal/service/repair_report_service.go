package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	"github.com/mechfleet/maintenance-api/internal/repository"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
	"github.com/mechfleet/maintenance-api/pkg/export"
)

const repairReportResource = "repair_report"

type repairReportStore interface {
	List(ctx context.Context, scope models.RepairReportScope, filter models.RepairReportFilter) ([]models.RepairReportDetail, int, error)
	FindDetailScoped(ctx context.Context, scope models.RepairReportScope, id string) (*models.RepairReportDetail, error)
	Update(ctx context.Context, id, conditionAnalysis, repairAction string, cost float64) error
	MarkReady(ctx context.Context, id string) error
	MarkActive(ctx context.Context, id string) error
	Reject(ctx context.Context, id, managerID, title, reason string) (*models.RepairReportRejection, error)
	ListRejections(ctx context.Context, repairReportID string) ([]models.RepairReportRejection, error)
	ListAllRejections(ctx context.Context, scope models.RepairReportScope, page, pageSize int) ([]models.RepairReportRejection, int, error)
	FindRejectionScoped(ctx context.Context, scope models.RepairReportScope, id string) (*models.RepairReportRejection, error)
	VehicleRepairHistory(ctx context.Context, workshopID, vehicleID string) ([]models.RepairReportDetail, error)
	ListForExport(ctx context.Context, scope models.RepairReportScope, limit int) ([]models.RepairReportDetail, error)
}

// RepairReportService orchestrates workshop-side repair report editing, the
// manager-side rejection flow and scoped read access.
type RepairReportService struct {
	repo          repairReportStore
	audit         auditLogger
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
	csvExporter   *export.CSVExporter
	pdfExporter   *export.PDFExporter
	exportMaxRows int
}

// NewRepairReportService builds a RepairReportService with sane defaults.
func NewRepairReportService(
	repo repairReportStore,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	exportMaxRows int,
) *RepairReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if exportMaxRows <= 0 {
		exportMaxRows = 10000
	}
	return &RepairReportService{
		repo:          repo,
		audit:         audit,
		validator:     validate,
		logger:        logger,
		metrics:       metrics,
		csvExporter:   export.NewCSVExporter(),
		pdfExporter:   export.NewPDFExporter(),
		exportMaxRows: exportMaxRows,
	}
}

// List returns the repair reports visible to the actor.
func (s *RepairReportService) List(ctx context.Context, actor authz.Actor, filter models.RepairReportFilter) ([]models.RepairReportDetail, int, error) {
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, 0, decisionError(d, "")
	}
	reports, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list repair reports")
	}
	return reports, total, nil
}

// Get returns one repair report when the actor's scope admits it.
func (s *RepairReportService) Get(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportDetail, error) {
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, decisionError(d, "")
	}
	return s.loadScoped(ctx, scope, id)
}

// Update edits the analysis, action and cost of an ACTIVE repair report on
// behalf of a workshop mechanic.
func (s *RepairReportService) Update(ctx context.Context, actor authz.Actor, id string, req models.UpdateRepairReportRequest) (*models.RepairReportDetail, error) {
	detail, err := s.loadForMechanic(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid repair report payload")
	}
	if req.Cost < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Cost cannot be negative.")
	}

	if err := s.repo.Update(ctx, detail.ID, req.ConditionAnalysis, req.RepairAction, req.Cost); err != nil {
		if errors.Is(err, repository.ErrRepairNotActive) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "Repair report cannot be modified if not in ACTIVE status.")
		}
		return nil, mapWorkflowError(err)
	}

	s.recordAudit(ctx, actor, models.AuditActionRepairUpdate, id, req)
	scope, _ := authz.RepairReportScopeFor(actor)
	return s.loadScoped(ctx, scope, id)
}

// SetStatus flips a repair report between ACTIVE and READY.
func (s *RepairReportService) SetStatus(ctx context.Context, actor authz.Actor, id string, req models.RepairReportStatusRequest) (*models.RepairReportDetail, error) {
	detail, err := s.loadForMechanic(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	switch req.Status {
	case models.RepairReady:
		err = s.repo.MarkReady(ctx, detail.ID)
	case models.RepairActive:
		err = s.repo.MarkActive(ctx, detail.ID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid target status")
	}
	if err != nil {
		return nil, mapWorkflowError(err)
	}

	s.metrics.RecordWorkflowTransition(repairReportResource, "status_"+string(req.Status))
	s.recordAudit(ctx, actor, models.AuditActionRepairStatus, id, req)
	scope, _ := authz.RepairReportScopeFor(actor)
	return s.loadScoped(ctx, scope, id)
}

// Reject records a rejection against a READY repair report and sends it back
// to the workshop as ACTIVE. Only the manager holding the parent failure
// report may reject.
func (s *RepairReportService) Reject(ctx context.Context, actor authz.Actor, id string, req models.RejectRepairReportRequest) (*models.RepairReportRejection, error) {
	if actor.Role != models.RoleManager {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, decisionError(d, "")
	}
	detail, err := s.loadScoped(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if d := authz.CanRejectRepairReport(actor, detail); d != authz.Allow {
		return nil, decisionError(d, "Repair report not found.")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}

	rejection, err := s.repo.Reject(ctx, detail.ID, actor.ID, req.Title, req.Reason)
	if err != nil {
		// The holder re-check runs under the row lock; losing the claim
		// between the scoped read and the commit surfaces like any other
		// out-of-scope report.
		if errors.Is(err, repository.ErrReportNotManaged) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Repair report not found.")
		}
		return nil, mapWorkflowError(err)
	}

	s.metrics.RecordWorkflowTransition(repairReportResource, "reject")
	s.recordAudit(ctx, actor, models.AuditActionRepairReject, id, req)
	return rejection, nil
}

// ListRejections returns the rejection ledger of a repair report the actor
// can see.
func (s *RepairReportService) ListRejections(ctx context.Context, actor authz.Actor, id string) ([]models.RepairReportRejection, error) {
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, decisionError(d, "")
	}
	detail, err := s.loadScoped(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	rejections, err := s.repo.ListRejections(ctx, detail.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rejections")
	}
	return rejections, nil
}

// Rejections returns every rejection whose parent repair report the actor can
// see.
func (s *RepairReportService) Rejections(ctx context.Context, actor authz.Actor, page, pageSize int) ([]models.RepairReportRejection, int, error) {
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, 0, decisionError(d, "")
	}
	rejections, total, err := s.repo.ListAllRejections(ctx, scope, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rejections")
	}
	return rejections, total, nil
}

// GetRejection returns one rejection when the actor's scope admits its parent.
func (s *RepairReportService) GetRejection(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportRejection, error) {
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, decisionError(d, "")
	}
	rejection, err := s.repo.FindRejectionScoped(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Rejection not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch rejection")
	}
	return rejection, nil
}

// VehicleHistory returns the historic repair reports of a vehicle currently
// in repair at the mechanic's workshop.
func (s *RepairReportService) VehicleHistory(ctx context.Context, actor authz.Actor, vehicleID string) ([]models.RepairReportDetail, error) {
	if d := authz.CanListVehicleRepairHistory(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	history, err := s.repo.VehicleRepairHistory(ctx, *actor.LocationID, vehicleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch repair history")
	}
	return history, nil
}

// ExportCSV renders the actor's visible repair reports as a CSV document.
func (s *RepairReportService) ExportCSV(ctx context.Context, actor authz.Actor) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.csvExporter.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return payload, nil
}

// ExportPDF renders the actor's visible repair reports as a PDF document.
func (s *RepairReportService) ExportPDF(ctx context.Context, actor authz.Actor) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, actor)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdfExporter.Render(*dataset, "Repair cost report")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return payload, nil
}

func (s *RepairReportService) exportDataset(ctx context.Context, actor authz.Actor) (*export.Dataset, error) {
	if d := authz.CanExportRepairReports(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, decisionError(d, "")
	}
	reports, err := s.repo.ListForExport(ctx, scope, s.exportMaxRows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch export rows")
	}

	dataset := &export.Dataset{
		Headers:        []string{"Report", "Vehicle", "Status", "Cost", "Last change"},
		NumericHeaders: []string{"Cost"},
	}
	for _, report := range reports {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Report":      report.Title,
			"Vehicle":     report.VehicleID,
			"Status":      string(report.Status),
			"Cost":        fmt.Sprintf("%.2f", report.Cost),
			"Last change": report.LastChangeDate.Format(time.RFC3339),
		})
	}
	return dataset, nil
}

// loadForMechanic resolves a repair report for a workshop mechanic, hiding
// reports of other workshops.
func (s *RepairReportService) loadForMechanic(ctx context.Context, actor authz.Actor, id string) (*models.RepairReportDetail, error) {
	if actor.Role != models.RoleMechanic {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	scope, d := authz.RepairReportScopeFor(actor)
	if d != authz.Allow {
		return nil, decisionError(d, "")
	}
	detail, err := s.loadScoped(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if d := authz.CanEditRepairReport(actor, detail); d != authz.Allow {
		return nil, decisionError(d, "Repair report not found.")
	}
	return detail, nil
}

func (s *RepairReportService) loadScoped(ctx context.Context, scope models.RepairReportScope, id string) (*models.RepairReportDetail, error) {
	detail, err := s.repo.FindDetailScoped(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Repair report not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch repair report")
	}
	return detail, nil
}

func (s *RepairReportService) recordAudit(ctx context.Context, actor authz.Actor, action, resourceID string, payload interface{}) {
	var values []byte
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			values = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   repairReportResource,
		ResourceID: &resourceID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
