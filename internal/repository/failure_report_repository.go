package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mechfleet/maintenance-api/internal/models"
)

// FailureReportRepository handles persistence of failure reports and the
// transactional workflow transitions that span them, their repair reports and
// the owning vehicle.
type FailureReportRepository struct {
	db *sqlx.DB
}

// NewFailureReportRepository constructs the repository.
func NewFailureReportRepository(db *sqlx.DB) *FailureReportRepository {
	return &FailureReportRepository{db: db}
}

// lockedFailureReport is the row image taken under FOR UPDATE before any
// transition decision.
type lockedFailureReport struct {
	VehicleID  string                     `db:"vehicle_id"`
	Status     models.FailureReportStatus `db:"status"`
	ManagedBy  *string                    `db:"managed_by"`
	WorkshopID *string                    `db:"workshop_id"`
}

func lockFailureReport(ctx context.Context, tx *sqlx.Tx, id string) (*lockedFailureReport, error) {
	const query = `SELECT vehicle_id, status, managed_by, workshop_id FROM failure_reports WHERE id = $1 FOR UPDATE`
	var row lockedFailureReport
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns failure reports with vehicle and workshop context.
func (r *FailureReportRepository) List(ctx context.Context, filter models.FailureReportFilter) ([]models.FailureReportDetail, int, error) {
	base := `FROM failure_reports fr
JOIN vehicles v ON v.id = fr.vehicle_id
LEFT JOIN locations w ON w.id = fr.workshop_id`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("fr.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.VehicleID != "" {
		conditions = append(conditions, fmt.Sprintf("fr.vehicle_id = $%d", len(args)+1))
		args = append(args, filter.VehicleID)
	}
	if filter.ManagedBy != "" {
		conditions = append(conditions, fmt.Sprintf("fr.managed_by = $%d", len(args)+1))
		args = append(args, filter.ManagedBy)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"report_date":        "fr.report_date",
		"last_status_change": "fr.last_status_change",
		"status":             "fr.status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "fr.report_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT fr.id, fr.vehicle_id, fr.title, fr.description, fr.workshop_id, fr.managed_by,
        fr.report_author_id, fr.report_date, fr.last_status_change, fr.status,
        v.vin AS vehicle_vin, v.model AS vehicle_model, w.name AS workshop_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var reports []models.FailureReportDetail
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list failure reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count failure reports: %w", err)
	}
	return reports, total, nil
}

// FindByID returns a failure report by its ID.
func (r *FailureReportRepository) FindByID(ctx context.Context, id string) (*models.FailureReport, error) {
	const query = `SELECT id, vehicle_id, title, description, workshop_id, managed_by, report_author_id,
        report_date, last_status_change, status FROM failure_reports WHERE id = $1`
	var report models.FailureReport
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// FindDetailByID returns a failure report with vehicle and workshop context.
func (r *FailureReportRepository) FindDetailByID(ctx context.Context, id string) (*models.FailureReportDetail, error) {
	const query = `SELECT fr.id, fr.vehicle_id, fr.title, fr.description, fr.workshop_id, fr.managed_by,
        fr.report_author_id, fr.report_date, fr.last_status_change, fr.status,
        v.vin AS vehicle_vin, v.model AS vehicle_model, w.name AS workshop_name
        FROM failure_reports fr
        JOIN vehicles v ON v.id = fr.vehicle_id
        LEFT JOIN locations w ON w.id = fr.workshop_id
        WHERE fr.id = $1`
	var detail models.FailureReportDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// HasOpenForVehicle reports whether the vehicle carries a failure report in a
// non-terminal status.
func (r *FailureReportRepository) HasOpenForVehicle(ctx context.Context, vehicleID string) (bool, error) {
	const query = `SELECT 1 FROM failure_reports WHERE vehicle_id = $1 AND status IN ('PENDING','ASSIGNED','STOPPED') LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, vehicleID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open failure report: %w", err)
	}
	return true, nil
}

// CreateReported inserts a PENDING failure report and flips the vehicle to
// UNAVAILABLE in one transaction. The vehicle row is locked so that two
// concurrent reports for the same vehicle cannot both pass the open-report
// check.
func (r *FailureReportRepository) CreateReported(ctx context.Context, report *models.FailureReport) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create failure report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var vehicleID string
	if err = tx.GetContext(ctx, &vehicleID, `SELECT id FROM vehicles WHERE id = $1 FOR UPDATE`, report.VehicleID); err != nil {
		return err
	}

	var open int
	err = tx.GetContext(ctx, &open, `SELECT 1 FROM failure_reports WHERE vehicle_id = $1 AND status IN ('PENDING','ASSIGNED','STOPPED') LIMIT 1`, report.VehicleID)
	if err == nil {
		return ErrVehicleAlreadyReported
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check open failure report: %w", err)
	}
	err = nil

	if _, err = tx.ExecContext(ctx, `UPDATE vehicles SET availability = $2 WHERE id = $1`, report.VehicleID, models.VehicleUnavailable); err != nil {
		return fmt.Errorf("set vehicle unavailable: %w", err)
	}

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.ReportDate.IsZero() {
		report.ReportDate = now
	}
	report.LastStatusChange = now
	report.Status = models.FailurePending
	report.ManagedBy = nil

	const insertQuery = `INSERT INTO failure_reports (id, vehicle_id, title, description, workshop_id, managed_by,
        report_author_id, report_date, last_status_change, status)
        VALUES (:id, :vehicle_id, :title, :description, :workshop_id, :managed_by, :report_author_id, :report_date, :last_status_change, :status)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, report); err != nil {
		return fmt.Errorf("insert failure report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create failure report: %w", err)
	}
	return nil
}

// Claim sets managed_by for an unclaimed open report. The row lock makes the
// claim a compare-and-set: a losing concurrent claimer observes the winner's
// value.
func (r *FailureReportRepository) Claim(ctx context.Context, id, managerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin claim: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockFailureReport(ctx, tx, id)
	if err != nil {
		return err
	}
	if !row.Status.IsOpen() {
		return ErrReportNotOpen
	}
	if row.ManagedBy != nil {
		if *row.ManagedBy == managerID {
			return ErrReportManagedBySelf
		}
		return ErrReportManagedByOther
	}

	if _, err = tx.ExecContext(ctx, `UPDATE failure_reports SET managed_by = $2 WHERE id = $1`, id, managerID); err != nil {
		return fmt.Errorf("claim failure report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit claim: %w", err)
	}
	return nil
}

// Release clears managed_by; only the current holder may release.
func (r *FailureReportRepository) Release(ctx context.Context, id, managerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockFailureReport(ctx, tx, id)
	if err != nil {
		return err
	}
	if !row.Status.IsOpen() {
		return ErrReportNotOpen
	}
	if row.ManagedBy == nil || *row.ManagedBy != managerID {
		return ErrReportNotManaged
	}

	if _, err = tx.ExecContext(ctx, `UPDATE failure_reports SET managed_by = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("release failure report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	return nil
}

// Assign moves a PENDING report to ASSIGNED, sets the workshop and creates the
// paired ACTIVE repair report with zero cost, all atomically.
func (r *FailureReportRepository) Assign(ctx context.Context, id, workshopID, managerID string) (repair *models.RepairReport, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assign: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockFailureReport(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if row.ManagedBy == nil || *row.ManagedBy != managerID {
		return nil, ErrReportNotManaged
	}
	if row.Status != models.FailurePending {
		return nil, ErrReportNotPending
	}
	if row.WorkshopID != nil {
		return nil, ErrWorkshopAlreadyAssigned
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE failure_reports SET workshop_id = $2, status = $3, last_status_change = $4 WHERE id = $1`,
		id, workshopID, models.FailureAssigned, now); err != nil {
		return nil, fmt.Errorf("assign workshop: %w", err)
	}

	repair = &models.RepairReport{
		ID:              uuid.NewString(),
		FailureReportID: id,
		Cost:            0,
		LastChangeDate:  now,
		Status:          models.RepairActive,
	}
	const insertQuery = `INSERT INTO repair_reports (id, failure_report_id, condition_analysis, repair_action, cost, last_change_date, status)
        VALUES (:id, :failure_report_id, :condition_analysis, :repair_action, :cost, :last_change_date, :status)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, repair); err != nil {
		return nil, fmt.Errorf("insert repair report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}
	return repair, nil
}

// Reassign replaces the workshop of an ASSIGNED or STOPPED report; the status
// is set back to ASSIGNED either way.
func (r *FailureReportRepository) Reassign(ctx context.Context, id, workshopID, managerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reassign: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockFailureReport(ctx, tx, id)
	if err != nil {
		return err
	}
	if row.ManagedBy == nil || *row.ManagedBy != managerID {
		return ErrReportNotManaged
	}
	if row.Status != models.FailureAssigned && row.Status != models.FailureStopped {
		return ErrReportNotReassignable
	}
	if row.WorkshopID != nil && *row.WorkshopID == workshopID {
		return ErrSameWorkshop
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE failure_reports SET workshop_id = $2, status = $3, last_status_change = $4 WHERE id = $1`,
		id, workshopID, models.FailureAssigned, now); err != nil {
		return fmt.Errorf("reassign workshop: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reassign: %w", err)
	}
	return nil
}

// Dismiss closes a PENDING report without touching the vehicle's availability;
// only resolve restores it.
func (r *FailureReportRepository) Dismiss(ctx context.Context, id, managerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin dismiss: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockFailureReport(ctx, tx, id)
	if err != nil {
		return err
	}
	if row.ManagedBy == nil || *row.ManagedBy != managerID {
		return ErrReportNotManaged
	}
	if row.Status != models.FailurePending {
		return ErrReportNotPending
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE failure_reports SET status = $2, last_status_change = $3 WHERE id = $1`,
		id, models.FailureDismissed, now); err != nil {
		return fmt.Errorf("dismiss failure report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit dismiss: %w", err)
	}
	return nil
}

// Resolve finishes the case: repair report HISTORIC, failure report RESOLVED,
// vehicle AVAILABLE. All three rows are locked and updated in one transaction
// so a concurrent reject cannot interleave.
func (r *FailureReportRepository) Resolve(ctx context.Context, id, managerID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row, err := lockFailureReport(ctx, tx, id)
	if err != nil {
		return err
	}
	if row.ManagedBy == nil || *row.ManagedBy != managerID {
		return ErrReportNotManaged
	}
	if row.Status != models.FailureAssigned {
		return ErrReportNotAssigned
	}

	var repair struct {
		ID     string                    `db:"id"`
		Status models.RepairReportStatus `db:"status"`
	}
	err = tx.GetContext(ctx, &repair, `SELECT id, status FROM repair_reports WHERE failure_report_id = $1 FOR UPDATE`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrRepairNotReady
		}
		return fmt.Errorf("lock repair report: %w", err)
	}
	if repair.Status != models.RepairReady {
		return ErrRepairNotReady
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE repair_reports SET status = $2, last_change_date = $3 WHERE id = $1`,
		repair.ID, models.RepairHistoric, now); err != nil {
		return fmt.Errorf("archive repair report: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE failure_reports SET status = $2, last_status_change = $3 WHERE id = $1`,
		id, models.FailureResolved, now); err != nil {
		return fmt.Errorf("resolve failure report: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE vehicles SET availability = $2 WHERE id = $1`,
		row.VehicleID, models.VehicleAvailable); err != nil {
		return fmt.Errorf("restore vehicle availability: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve: %w", err)
	}
	return nil
}
