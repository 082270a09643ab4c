package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/mechfleet/maintenance-api/internal/models"
)

func newFailureReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lockedRow(status models.FailureReportStatus, managedBy, workshopID *string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"vehicle_id", "status", "managed_by", "workshop_id"}).
		AddRow("veh-1", status, managedBy, workshopID)
}

func TestCreateReportedFlipsVehicleAvailability(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM vehicles WHERE id = $1 FOR UPDATE")).
		WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("veh-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM failure_reports WHERE vehicle_id")).
		WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicles SET availability")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO failure_reports")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	report := &models.FailureReport{
		VehicleID:      "veh-1",
		Title:          "Engine knocking",
		Description:    "Loud knocking above 2000 rpm",
		ReportAuthorID: "user-1",
	}
	require.NoError(t, repo.CreateReported(context.Background(), report))
	require.NotEmpty(t, report.ID)
	require.Equal(t, models.FailurePending, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportedRejectsSecondOpenReport(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM vehicles WHERE id = $1 FOR UPDATE")).
		WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("veh-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM failure_reports WHERE vehicle_id")).
		WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateReported(context.Background(), &models.FailureReport{VehicleID: "veh-1"})
	require.ErrorIs(t, err, ErrVehicleAlreadyReported)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimSetsManagedBy(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailurePending, nil, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE failure_reports SET managed_by")).
		WithArgs("fr-1", "mgr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Claim(context.Background(), "fr-1", "mgr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimContention(t *testing.T) {
	other := "mgr-2"
	self := "mgr-1"

	cases := []struct {
		name      string
		status    models.FailureReportStatus
		managedBy *string
		expected  error
	}{
		{"held by other", models.FailurePending, &other, ErrReportManagedByOther},
		{"held by self", models.FailurePending, &self, ErrReportManagedBySelf},
		{"terminal status", models.FailureResolved, nil, ErrReportNotOpen},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newFailureReportRepoMock(t)
			defer cleanup()

			repo := NewFailureReportRepository(db)
			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
				WithArgs("fr-1").
				WillReturnRows(lockedRow(tc.status, tc.managedBy, nil))
			mock.ExpectRollback()

			err := repo.Claim(context.Background(), "fr-1", "mgr-1")
			require.ErrorIs(t, err, tc.expected)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReleaseRequiresHolder(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	other := "mgr-2"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailurePending, &other, nil))
	mock.ExpectRollback()

	err := repo.Release(context.Background(), "fr-1", "mgr-1")
	require.ErrorIs(t, err, ErrReportNotManaged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignCreatesActiveRepairReport(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	self := "mgr-1"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailurePending, &self, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE failure_reports SET workshop_id")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO repair_reports")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	repair, err := repo.Assign(context.Background(), "fr-1", "ws-1", "mgr-1")
	require.NoError(t, err)
	require.Equal(t, models.RepairActive, repair.Status)
	require.Zero(t, repair.Cost)
	require.Equal(t, "fr-1", repair.FailureReportID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignRejectsNonPending(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	self := "mgr-1"
	ws := "ws-1"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailureAssigned, &self, &ws))
	mock.ExpectRollback()

	_, err := repo.Assign(context.Background(), "fr-1", "ws-2", "mgr-1")
	require.ErrorIs(t, err, ErrReportNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReassignRejectsSameWorkshop(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	self := "mgr-1"
	ws := "ws-1"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailureStopped, &self, &ws))
	mock.ExpectRollback()

	err := repo.Reassign(context.Background(), "fr-1", "ws-1", "mgr-1")
	require.ErrorIs(t, err, ErrSameWorkshop)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveArchivesRepairAndRestoresVehicle(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	self := "mgr-1"
	ws := "ws-1"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailureAssigned, &self, &ws))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status FROM repair_reports")).
		WithArgs("fr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("rr-1", models.RepairReady))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE repair_reports SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE failure_reports SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicles SET availability")).
		WithArgs("veh-1", models.VehicleAvailable).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Resolve(context.Background(), "fr-1", "mgr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRequiresReadyRepair(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	self := "mgr-1"
	ws := "ws-1"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailureAssigned, &self, &ws))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status FROM repair_reports")).
		WithArgs("fr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("rr-1", models.RepairActive))
	mock.ExpectRollback()

	err := repo.Resolve(context.Background(), "fr-1", "mgr-1")
	require.ErrorIs(t, err, ErrRepairNotReady)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDismissRequiresPending(t *testing.T) {
	db, mock, cleanup := newFailureReportRepoMock(t)
	defer cleanup()

	self := "mgr-1"
	ws := "ws-1"
	repo := NewFailureReportRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("fr-1").
		WillReturnRows(lockedRow(models.FailureAssigned, &self, &ws))
	mock.ExpectRollback()

	err := repo.Dismiss(context.Background(), "fr-1", "mgr-1")
	require.ErrorIs(t, err, ErrReportNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}
