package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	"github.com/mechfleet/maintenance-api/internal/repository"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

const failureReportResource = "failure_report"

type failureReportStore interface {
	List(ctx context.Context, filter models.FailureReportFilter) ([]models.FailureReportDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.FailureReport, error)
	FindDetailByID(ctx context.Context, id string) (*models.FailureReportDetail, error)
	CreateReported(ctx context.Context, report *models.FailureReport) error
	Claim(ctx context.Context, id, managerID string) error
	Release(ctx context.Context, id, managerID string) error
	Assign(ctx context.Context, id, workshopID, managerID string) (*models.RepairReport, error)
	Reassign(ctx context.Context, id, workshopID, managerID string) error
	Dismiss(ctx context.Context, id, managerID string) error
	Resolve(ctx context.Context, id, managerID string) error
}

type vehicleReader interface {
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
}

type locationReader interface {
	FindByID(ctx context.Context, id string) (*models.Location, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// FailureReportService orchestrates the failure report workflow: reporting,
// claiming, workshop assignment and the terminal transitions.
type FailureReportService struct {
	repo      failureReportStore
	vehicles  vehicleReader
	locations locationReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewFailureReportService builds a FailureReportService with sane defaults.
func NewFailureReportService(
	repo failureReportStore,
	vehicles vehicleReader,
	locations locationReader,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *FailureReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FailureReportService{
		repo:      repo,
		vehicles:  vehicles,
		locations: locations,
		audit:     audit,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
	}
}

// decisionError turns a deny decision into the matching API error. The
// notFoundMessage is used for DenyNotFound so out-of-scope resources are
// indistinguishable from absent ones.
func decisionError(d authz.Decision, notFoundMessage string) error {
	switch d {
	case authz.DenyNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMessage)
	case authz.DenyForbidden:
		return appErrors.Clone(appErrors.ErrForbidden, "")
	default:
		return nil
	}
}

// mapWorkflowError translates repository workflow sentinels into typed API
// errors carrying the client-facing messages.
func mapWorkflowError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "Failure report not found.")
	case errors.Is(err, repository.ErrVehicleAlreadyReported):
		return appErrors.Clone(appErrors.ErrConflict, "Vehicle is already reported as failure.")
	case errors.Is(err, repository.ErrReportNotOpen):
		return appErrors.Clone(appErrors.ErrInvalidState, "Failure report is not in PENDING/ASSIGNED/STOPPED status.")
	case errors.Is(err, repository.ErrReportManagedBySelf):
		return appErrors.Clone(appErrors.ErrConflict, "Failure report is already managed by you.")
	case errors.Is(err, repository.ErrReportManagedByOther):
		return appErrors.Clone(appErrors.ErrConflict, "Failure report is already managed by another manager.")
	case errors.Is(err, repository.ErrReportNotManaged):
		return appErrors.Clone(appErrors.ErrForbidden, "Failure report is not managed by you.")
	case errors.Is(err, repository.ErrReportNotPending):
		return appErrors.Clone(appErrors.ErrInvalidState, "Failure report is not in PENDING status.")
	case errors.Is(err, repository.ErrReportNotAssigned):
		return appErrors.Clone(appErrors.ErrInvalidState, "Failure report is not in ASSIGNED status.")
	case errors.Is(err, repository.ErrReportNotReassignable):
		return appErrors.Clone(appErrors.ErrInvalidState, "Failure report is not in ASSIGNED/STOPPED status.")
	case errors.Is(err, repository.ErrWorkshopAlreadyAssigned):
		return appErrors.Clone(appErrors.ErrConflict, "Failure report already has a workshop assigned.")
	case errors.Is(err, repository.ErrSameWorkshop):
		return appErrors.Clone(appErrors.ErrValidation, "Provided workshop is the same as current workshop.")
	case errors.Is(err, repository.ErrRepairNotActive):
		return appErrors.Clone(appErrors.ErrInvalidState, "Repair report is not in ACTIVE status.")
	case errors.Is(err, repository.ErrRepairNotReady):
		return appErrors.Clone(appErrors.ErrInvalidState, "Repair report is not in READY status.")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "workflow transition failed")
	}
}

// Create reports a vehicle failure on behalf of a branch user. The vehicle
// becomes unavailable as part of the same transaction.
func (s *FailureReportService) Create(ctx context.Context, actor authz.Actor, req models.CreateFailureReportRequest) (*models.FailureReportDetail, error) {
	if d := authz.CanCreateFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid failure report payload")
	}

	vehicle, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch vehicle")
	}
	if d := authz.CanReportVehicle(actor, vehicle); d != authz.Allow {
		return nil, decisionError(d, "There is no vehicle with provided ID assigned to your branch.")
	}

	report := &models.FailureReport{
		VehicleID:      req.VehicleID,
		Title:          req.Title,
		Description:    req.Description,
		ReportAuthorID: actor.ID,
	}
	if err := s.repo.CreateReported(ctx, report); err != nil {
		return nil, mapWorkflowError(err)
	}

	s.metrics.RecordWorkflowTransition(failureReportResource, "create")
	s.recordAudit(ctx, actor, models.AuditActionReportCreate, report.ID, report)

	return s.loadDetail(ctx, report.ID)
}

// List returns failure reports for managers and administrators.
func (s *FailureReportService) List(ctx context.Context, actor authz.Actor, filter models.FailureReportFilter) ([]models.FailureReportDetail, int, error) {
	if d := authz.CanReadFailureReports(actor); d != authz.Allow {
		return nil, 0, decisionError(d, "")
	}
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list failure reports")
	}
	return reports, total, nil
}

// Get returns one failure report with vehicle context.
func (s *FailureReportService) Get(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	if d := authz.CanReadFailureReports(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	return s.loadDetail(ctx, id)
}

// Claim takes exclusive management of an open failure report.
func (s *FailureReportService) Claim(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	if d := authz.CanClaimFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.repo.Claim(ctx, id, actor.ID); err != nil {
		return nil, mapWorkflowError(err)
	}
	s.metrics.RecordWorkflowTransition(failureReportResource, "claim")
	s.recordAudit(ctx, actor, models.AuditActionReportClaim, id, nil)
	return s.loadDetail(ctx, id)
}

// Release gives up management of a claimed failure report.
func (s *FailureReportService) Release(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	if d := authz.CanClaimFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.repo.Release(ctx, id, actor.ID); err != nil {
		return nil, mapWorkflowError(err)
	}
	s.metrics.RecordWorkflowTransition(failureReportResource, "release")
	s.recordAudit(ctx, actor, models.AuditActionReportRelease, id, nil)
	return s.loadDetail(ctx, id)
}

// Assign sends a PENDING report to a workshop, opening its repair report.
func (s *FailureReportService) Assign(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error) {
	if d := authz.CanClaimFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workshop payload")
	}
	if err := s.checkWorkshop(ctx, req.WorkshopID); err != nil {
		return nil, err
	}
	if _, err := s.repo.Assign(ctx, id, req.WorkshopID, actor.ID); err != nil {
		return nil, mapWorkflowError(err)
	}
	s.metrics.RecordWorkflowTransition(failureReportResource, "assign")
	s.recordAudit(ctx, actor, models.AuditActionReportAssign, id, req)
	return s.loadDetail(ctx, id)
}

// Reassign moves an ASSIGNED or STOPPED report to a different workshop.
func (s *FailureReportService) Reassign(ctx context.Context, actor authz.Actor, id string, req models.AssignWorkshopRequest) (*models.FailureReportDetail, error) {
	if d := authz.CanClaimFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workshop payload")
	}
	if err := s.checkWorkshop(ctx, req.WorkshopID); err != nil {
		return nil, err
	}
	if err := s.repo.Reassign(ctx, id, req.WorkshopID, actor.ID); err != nil {
		return nil, mapWorkflowError(err)
	}
	s.metrics.RecordWorkflowTransition(failureReportResource, "reassign")
	s.recordAudit(ctx, actor, models.AuditActionReportReassign, id, req)
	return s.loadDetail(ctx, id)
}

// Dismiss closes a PENDING report as rejected. The vehicle stays unavailable
// until an administrator inspects it.
func (s *FailureReportService) Dismiss(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	if d := authz.CanClaimFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.repo.Dismiss(ctx, id, actor.ID); err != nil {
		return nil, mapWorkflowError(err)
	}
	s.metrics.RecordWorkflowTransition(failureReportResource, "dismiss")
	s.recordAudit(ctx, actor, models.AuditActionReportDismiss, id, nil)
	return s.loadDetail(ctx, id)
}

// Resolve completes the case once the workshop marked the repair READY,
// restoring the vehicle to the fleet.
func (s *FailureReportService) Resolve(ctx context.Context, actor authz.Actor, id string) (*models.FailureReportDetail, error) {
	if d := authz.CanClaimFailureReport(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.repo.Resolve(ctx, id, actor.ID); err != nil {
		return nil, mapWorkflowError(err)
	}
	s.metrics.RecordWorkflowTransition(failureReportResource, "resolve")
	s.recordAudit(ctx, actor, models.AuditActionReportResolve, id, nil)
	return s.loadDetail(ctx, id)
}

func (s *FailureReportService) checkWorkshop(ctx context.Context, workshopID string) error {
	location, err := s.locations.FindByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Location not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch location")
	}
	if location.LocationType != models.LocationTypeWorkshop {
		return appErrors.Clone(appErrors.ErrValidation, "Provided location is not a workshop.")
	}
	return nil
}

func (s *FailureReportService) loadDetail(ctx context.Context, id string) (*models.FailureReportDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Failure report not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch failure report")
	}
	return detail, nil
}

func (s *FailureReportService) recordAudit(ctx context.Context, actor authz.Actor, action, resourceID string, payload interface{}) {
	var values []byte
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			values = raw
		}
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   failureReportResource,
		ResourceID: &resourceID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
