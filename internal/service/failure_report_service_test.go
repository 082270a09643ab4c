package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	"github.com/mechfleet/maintenance-api/internal/repository"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

type failureRepoStub struct {
	detail     *models.FailureReportDetail
	list       []models.FailureReportDetail
	createErr  error
	claimErr   error
	releaseErr error
	assignErr  error
	reassigErr error
	dismissErr error
	resolveErr error

	created    *models.FailureReport
	claimedBy  string
	assignedTo string
}

func (s *failureRepoStub) List(ctx context.Context, filter models.FailureReportFilter) ([]models.FailureReportDetail, int, error) {
	return s.list, len(s.list), nil
}

func (s *failureRepoStub) FindByID(ctx context.Context, id string) (*models.FailureReport, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return &s.detail.FailureReport, nil
}

func (s *failureRepoStub) FindDetailByID(ctx context.Context, id string) (*models.FailureReportDetail, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s *failureRepoStub) CreateReported(ctx context.Context, report *models.FailureReport) error {
	if s.createErr != nil {
		return s.createErr
	}
	report.ID = "fr-1"
	report.Status = models.FailurePending
	s.created = report
	return nil
}

func (s *failureRepoStub) Claim(ctx context.Context, id, managerID string) error {
	if s.claimErr != nil {
		return s.claimErr
	}
	s.claimedBy = managerID
	return nil
}

func (s *failureRepoStub) Release(ctx context.Context, id, managerID string) error {
	return s.releaseErr
}

func (s *failureRepoStub) Assign(ctx context.Context, id, workshopID, managerID string) (*models.RepairReport, error) {
	if s.assignErr != nil {
		return nil, s.assignErr
	}
	s.assignedTo = workshopID
	return &models.RepairReport{ID: "rr-1", FailureReportID: id, Status: models.RepairActive}, nil
}

func (s *failureRepoStub) Reassign(ctx context.Context, id, workshopID, managerID string) error {
	return s.reassigErr
}

func (s *failureRepoStub) Dismiss(ctx context.Context, id, managerID string) error {
	return s.dismissErr
}

func (s *failureRepoStub) Resolve(ctx context.Context, id, managerID string) error {
	return s.resolveErr
}

type vehicleReaderStub struct {
	vehicles map[string]*models.Vehicle
}

func (s vehicleReaderStub) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if vehicle, ok := s.vehicles[id]; ok {
		return vehicle, nil
	}
	return nil, sql.ErrNoRows
}

type locationReaderStub struct {
	locations map[string]*models.Location
}

func (s locationReaderStub) FindByID(ctx context.Context, id string) (*models.Location, error) {
	if location, ok := s.locations[id]; ok {
		return location, nil
	}
	return nil, sql.ErrNoRows
}

type auditStub struct {
	entries []*models.AuditLog
}

func (s *auditStub) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

const (
	branchID   = "6b1f8e7a-6c3b-4a27-9f20-0a4ad3b1c001"
	vehicleID  = "6b1f8e7a-6c3b-4a27-9f20-0a4ad3b1c002"
	workshopID = "6b1f8e7a-6c3b-4a27-9f20-0a4ad3b1c003"
)

func newFailureService(repo *failureRepoStub, vehicles vehicleReaderStub, locations locationReaderStub, audit *auditStub) *FailureReportService {
	return NewFailureReportService(repo, vehicles, locations, audit, nil, nil, nil)
}

func branchActor() authz.Actor {
	branch := branchID
	return authz.Actor{ID: "user-1", Role: models.RoleStandard, LocationID: &branch}
}

func managerActor() authz.Actor {
	return authz.Actor{ID: "mgr-1", Role: models.RoleManager}
}

func TestCreateFailureReport(t *testing.T) {
	repo := &failureRepoStub{}
	audit := &auditStub{}
	vehicles := vehicleReaderStub{vehicles: map[string]*models.Vehicle{
		vehicleID: {ID: vehicleID, LocationID: branchID},
	}}
	svc := newFailureService(repo, vehicles, locationReaderStub{}, audit)

	repo.detail = &models.FailureReportDetail{
		FailureReport: models.FailureReport{ID: "fr-1", Status: models.FailurePending},
	}

	detail, err := svc.Create(context.Background(), branchActor(), models.CreateFailureReportRequest{
		VehicleID:   vehicleID,
		Title:       "Coolant leak",
		Description: "Coolant pooling under the engine bay",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FailurePending, detail.Status)
	require.NotNil(t, repo.created)
	assert.Equal(t, "user-1", repo.created.ReportAuthorID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionReportCreate, audit.entries[0].Action)
}

func TestCreateFailureReportHidesForeignVehicle(t *testing.T) {
	repo := &failureRepoStub{}
	vehicles := vehicleReaderStub{vehicles: map[string]*models.Vehicle{
		vehicleID: {ID: vehicleID, LocationID: "other-branch"},
	}}
	svc := newFailureService(repo, vehicles, locationReaderStub{}, &auditStub{})

	_, err := svc.Create(context.Background(), branchActor(), models.CreateFailureReportRequest{
		VehicleID:   vehicleID,
		Title:       "Coolant leak",
		Description: "Coolant pooling under the engine bay",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "There is no vehicle with provided ID assigned to your branch.", appErr.Message)
}

func TestCreateFailureReportForbiddenForManagers(t *testing.T) {
	svc := newFailureService(&failureRepoStub{}, vehicleReaderStub{}, locationReaderStub{}, &auditStub{})

	_, err := svc.Create(context.Background(), managerActor(), models.CreateFailureReportRequest{
		VehicleID:   vehicleID,
		Title:       "t",
		Description: "d",
	})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateFailureReportConflict(t *testing.T) {
	repo := &failureRepoStub{createErr: repository.ErrVehicleAlreadyReported}
	vehicles := vehicleReaderStub{vehicles: map[string]*models.Vehicle{
		vehicleID: {ID: vehicleID, LocationID: branchID},
	}}
	svc := newFailureService(repo, vehicles, locationReaderStub{}, &auditStub{})

	_, err := svc.Create(context.Background(), branchActor(), models.CreateFailureReportRequest{
		VehicleID:   vehicleID,
		Title:       "Coolant leak",
		Description: "Coolant pooling under the engine bay",
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "Vehicle is already reported as failure.", appErr.Message)
}

func TestListFailureReportsRoleGate(t *testing.T) {
	repo := &failureRepoStub{list: []models.FailureReportDetail{{}}}
	svc := newFailureService(repo, vehicleReaderStub{}, locationReaderStub{}, &auditStub{})

	_, _, err := svc.List(context.Background(), branchActor(), models.FailureReportFilter{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	reports, total, err := svc.List(context.Background(), managerActor(), models.FailureReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, reports, 1)
}

func TestClaimMapsContention(t *testing.T) {
	cases := []struct {
		name     string
		repoErr  error
		wantCode string
		wantMsg  string
	}{
		{"held by other", repository.ErrReportManagedByOther, appErrors.ErrConflict.Code, "Failure report is already managed by another manager."},
		{"held by self", repository.ErrReportManagedBySelf, appErrors.ErrConflict.Code, "Failure report is already managed by you."},
		{"closed report", repository.ErrReportNotOpen, appErrors.ErrInvalidState.Code, "Failure report is not in PENDING/ASSIGNED/STOPPED status."},
		{"missing report", sql.ErrNoRows, appErrors.ErrNotFound.Code, "Failure report not found."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &failureRepoStub{claimErr: tc.repoErr}
			svc := newFailureService(repo, vehicleReaderStub{}, locationReaderStub{}, &auditStub{})

			_, err := svc.Claim(context.Background(), managerActor(), "fr-1")
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.wantCode, appErr.Code)
			assert.Equal(t, tc.wantMsg, appErr.Message)
		})
	}
}

func TestAssignValidatesWorkshop(t *testing.T) {
	repo := &failureRepoStub{
		detail: &models.FailureReportDetail{FailureReport: models.FailureReport{ID: "fr-1"}},
	}
	locations := locationReaderStub{locations: map[string]*models.Location{
		workshopID: {ID: workshopID, LocationType: models.LocationTypeBranch},
	}}
	svc := newFailureService(repo, vehicleReaderStub{}, locations, &auditStub{})

	_, err := svc.Assign(context.Background(), managerActor(), "fr-1", models.AssignWorkshopRequest{WorkshopID: workshopID})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Provided location is not a workshop.", appErr.Message)
}

func TestAssignHappyPath(t *testing.T) {
	repo := &failureRepoStub{
		detail: &models.FailureReportDetail{FailureReport: models.FailureReport{ID: "fr-1", Status: models.FailureAssigned}},
	}
	locations := locationReaderStub{locations: map[string]*models.Location{
		workshopID: {ID: workshopID, LocationType: models.LocationTypeWorkshop},
	}}
	audit := &auditStub{}
	svc := newFailureService(repo, vehicleReaderStub{}, locations, audit)

	detail, err := svc.Assign(context.Background(), managerActor(), "fr-1", models.AssignWorkshopRequest{WorkshopID: workshopID})
	require.NoError(t, err)
	assert.Equal(t, models.FailureAssigned, detail.Status)
	assert.Equal(t, workshopID, repo.assignedTo)
	require.Len(t, audit.entries, 1)
}

func TestReassignMapsSameWorkshop(t *testing.T) {
	repo := &failureRepoStub{reassigErr: repository.ErrSameWorkshop}
	locations := locationReaderStub{locations: map[string]*models.Location{
		workshopID: {ID: workshopID, LocationType: models.LocationTypeWorkshop},
	}}
	svc := newFailureService(repo, vehicleReaderStub{}, locations, &auditStub{})

	_, err := svc.Reassign(context.Background(), managerActor(), "fr-1", models.AssignWorkshopRequest{WorkshopID: workshopID})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Provided workshop is the same as current workshop.", appErr.Message)
}

func TestResolveMapsRepairNotReady(t *testing.T) {
	repo := &failureRepoStub{resolveErr: repository.ErrRepairNotReady}
	svc := newFailureService(repo, vehicleReaderStub{}, locationReaderStub{}, &auditStub{})

	_, err := svc.Resolve(context.Background(), managerActor(), "fr-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Equal(t, "Repair report is not in READY status.", appErr.Message)
}

func TestDismissMapsNotPending(t *testing.T) {
	repo := &failureRepoStub{dismissErr: repository.ErrReportNotPending}
	svc := newFailureService(repo, vehicleReaderStub{}, locationReaderStub{}, &auditStub{})

	_, err := svc.Dismiss(context.Background(), managerActor(), "fr-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	assert.Equal(t, "Failure report is not in PENDING status.", appErr.Message)
}

func TestReleaseMapsNotManaged(t *testing.T) {
	repo := &failureRepoStub{releaseErr: repository.ErrReportNotManaged}
	svc := newFailureService(repo, vehicleReaderStub{}, locationReaderStub{}, &auditStub{})

	_, err := svc.Release(context.Background(), managerActor(), "fr-1")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, "Failure report is not managed by you.", appErr.Message)
}
