package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mechfleet/maintenance-api/internal/models"
)

// RepairReportRepository handles persistence of repair reports and their
// rejection ledger.
type RepairReportRepository struct {
	db *sqlx.DB
}

// NewRepairReportRepository constructs the repository.
func NewRepairReportRepository(db *sqlx.DB) *RepairReportRepository {
	return &RepairReportRepository{db: db}
}

const repairDetailColumns = `rr.id, rr.failure_report_id, rr.condition_analysis, rr.repair_action, rr.cost,
        rr.last_change_date, rr.status,
        fr.title, fr.vehicle_id, fr.workshop_id, fr.managed_by, fr.report_date`

const repairDetailJoin = `FROM repair_reports rr
JOIN failure_reports fr ON fr.id = rr.failure_report_id`

// scopeCondition renders the visibility predicate for the given scope. The
// same predicate backs both list and detail reads, so a report absent from an
// actor's listing is equally absent from detail lookups.
//
// Mechanics see every report assigned to their workshop plus the historic
// reports of any vehicle currently under an open failure report at their
// workshop.
func scopeCondition(scope models.RepairReportScope, args []interface{}) (string, []interface{}) {
	switch {
	case scope.All:
		return "", args
	case scope.ManagedBy != "":
		args = append(args, scope.ManagedBy)
		return fmt.Sprintf("fr.managed_by = $%d", len(args)), args
	case scope.WorkshopID != "":
		args = append(args, scope.WorkshopID)
		n := len(args)
		cond := fmt.Sprintf(`(fr.workshop_id = $%d OR (rr.status = 'HISTORIC' AND fr.vehicle_id IN (
            SELECT f2.vehicle_id FROM failure_reports f2
            WHERE f2.workshop_id = $%d AND f2.status IN ('PENDING','ASSIGNED','STOPPED'))))`, n, n)
		return cond, args
	default:
		// An empty scope matches nothing; callers gate this upstream.
		return "1 = 0", args
	}
}

// List returns the repair reports visible under the scope.
func (r *RepairReportRepository) List(ctx context.Context, scope models.RepairReportScope, filter models.RepairReportFilter) ([]models.RepairReportDetail, int, error) {
	var conditions []string
	var args []interface{}

	if cond, a := scopeCondition(scope, args); cond != "" {
		conditions = append(conditions, cond)
		args = a
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("rr.status = $%d", len(args)))
	}
	if filter.VehicleID != "" {
		args = append(args, filter.VehicleID)
		conditions = append(conditions, fmt.Sprintf("fr.vehicle_id = $%d", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY rr.last_change_date DESC LIMIT %d OFFSET %d`,
		repairDetailColumns, repairDetailJoin, clause, size, offset)

	var reports []models.RepairReportDetail
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list repair reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", repairDetailJoin, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count repair reports: %w", err)
	}
	return reports, total, nil
}

// FindDetailScoped returns the repair report only when the scope admits it;
// out-of-scope ids surface as sql.ErrNoRows.
func (r *RepairReportRepository) FindDetailScoped(ctx context.Context, scope models.RepairReportScope, id string) (*models.RepairReportDetail, error) {
	args := []interface{}{id}
	cond, args := scopeCondition(scope, args)
	clause := "rr.id = $1"
	if cond != "" {
		clause += " AND " + cond
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s`, repairDetailColumns, repairDetailJoin, clause)
	var detail models.RepairReportDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update writes the analysis, action and cost of a repair report. The status
// guard lives in the statement itself so a concurrent READY flip cannot let a
// late edit through.
func (r *RepairReportRepository) Update(ctx context.Context, id, conditionAnalysis, repairAction string, cost float64) error {
	const query = `UPDATE repair_reports SET condition_analysis = $2, repair_action = $3, cost = $4, last_change_date = $5
        WHERE id = $1 AND status = 'ACTIVE'`
	result, err := r.db.ExecContext(ctx, query, id, conditionAnalysis, repairAction, cost, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update repair report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update repair report: %w", err)
	}
	if affected == 0 {
		return ErrRepairNotActive
	}
	return nil
}

// MarkReady flips an ACTIVE repair report to READY.
func (r *RepairReportRepository) MarkReady(ctx context.Context, id string) error {
	return r.flipStatus(ctx, id, models.RepairActive, models.RepairReady, ErrRepairNotActive)
}

// MarkActive flips a READY repair report back to ACTIVE.
func (r *RepairReportRepository) MarkActive(ctx context.Context, id string) error {
	return r.flipStatus(ctx, id, models.RepairReady, models.RepairActive, ErrRepairNotReady)
}

func (r *RepairReportRepository) flipStatus(ctx context.Context, id string, from, to models.RepairReportStatus, notInFrom error) error {
	const query = `UPDATE repair_reports SET status = $3, last_change_date = $4 WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("flip repair report status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("flip repair report status: %w", err)
	}
	if affected == 0 {
		return notInFrom
	}
	return nil
}

// Reject appends a rejection to the ledger and pushes the READY report back to
// ACTIVE in one transaction. The holder check runs against the parent failure
// report under its row lock, so a release-and-reclaim racing the manager's
// scoped read cannot slip a stale rejection through. The failure report is
// locked before the repair report, the same order Resolve takes.
func (r *RepairReportRepository) Reject(ctx context.Context, id, managerID, title, reason string) (rejection *models.RepairReportRejection, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reject: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var failureReportID string
	if err = tx.GetContext(ctx, &failureReportID, `SELECT failure_report_id FROM repair_reports WHERE id = $1`, id); err != nil {
		return nil, err
	}

	var parent struct {
		ManagedBy *string `db:"managed_by"`
	}
	if err = tx.GetContext(ctx, &parent, `SELECT managed_by FROM failure_reports WHERE id = $1 FOR UPDATE`, failureReportID); err != nil {
		return nil, fmt.Errorf("lock failure report: %w", err)
	}
	if parent.ManagedBy == nil || *parent.ManagedBy != managerID {
		return nil, ErrReportNotManaged
	}

	var status models.RepairReportStatus
	if err = tx.GetContext(ctx, &status, `SELECT status FROM repair_reports WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	if status != models.RepairReady {
		return nil, ErrRepairNotReady
	}

	now := time.Now().UTC()
	rejection = &models.RepairReportRejection{
		ID:             uuid.NewString(),
		RepairReportID: id,
		Title:          title,
		Reason:         reason,
		RejectionDate:  now,
	}
	const insertQuery = `INSERT INTO repair_report_rejections (id, repair_report_id, title, reason, rejection_date)
        VALUES (:id, :repair_report_id, :title, :reason, :rejection_date)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, rejection); err != nil {
		return nil, fmt.Errorf("insert rejection: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE repair_reports SET status = $2, last_change_date = $3 WHERE id = $1`,
		id, models.RepairActive, now); err != nil {
		return nil, fmt.Errorf("reactivate repair report: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reject: %w", err)
	}
	return rejection, nil
}

// ListRejections returns the rejection ledger of one repair report, oldest
// first.
func (r *RepairReportRepository) ListRejections(ctx context.Context, repairReportID string) ([]models.RepairReportRejection, error) {
	const query = `SELECT id, repair_report_id, title, reason, rejection_date
        FROM repair_report_rejections WHERE repair_report_id = $1 ORDER BY rejection_date ASC`
	var rejections []models.RepairReportRejection
	if err := r.db.SelectContext(ctx, &rejections, query, repairReportID); err != nil {
		return nil, fmt.Errorf("list rejections: %w", err)
	}
	return rejections, nil
}

const rejectionJoin = `FROM repair_report_rejections x
JOIN repair_reports rr ON rr.id = x.repair_report_id
JOIN failure_reports fr ON fr.id = rr.failure_report_id`

// ListAllRejections returns every rejection visible under the scope, newest
// first. Visibility follows the parent repair report.
func (r *RepairReportRepository) ListAllRejections(ctx context.Context, scope models.RepairReportScope, page, pageSize int) ([]models.RepairReportRejection, int, error) {
	var args []interface{}
	cond, args := scopeCondition(scope, args)
	clause := ""
	if cond != "" {
		clause = " WHERE " + cond
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT x.id, x.repair_report_id, x.title, x.reason, x.rejection_date %s%s
        ORDER BY x.rejection_date DESC LIMIT %d OFFSET %d`, rejectionJoin, clause, pageSize, offset)

	var rejections []models.RepairReportRejection
	if err := r.db.SelectContext(ctx, &rejections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list all rejections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", rejectionJoin, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rejections: %w", err)
	}
	return rejections, total, nil
}

// FindRejectionScoped returns one rejection only when the scope admits its
// parent repair report; out-of-scope ids surface as sql.ErrNoRows.
func (r *RepairReportRepository) FindRejectionScoped(ctx context.Context, scope models.RepairReportScope, id string) (*models.RepairReportRejection, error) {
	args := []interface{}{id}
	cond, args := scopeCondition(scope, args)
	clause := "x.id = $1"
	if cond != "" {
		clause += " AND " + cond
	}

	query := fmt.Sprintf(`SELECT x.id, x.repair_report_id, x.title, x.reason, x.rejection_date %s WHERE %s`,
		rejectionJoin, clause)
	var rejection models.RepairReportRejection
	if err := r.db.GetContext(ctx, &rejection, query, args...); err != nil {
		return nil, err
	}
	return &rejection, nil
}

// VehicleRepairHistory returns the historic repair reports of a vehicle that
// is currently under an open failure report at the given workshop. For any
// other vehicle the result is empty, indistinguishable from an unknown id.
func (r *RepairReportRepository) VehicleRepairHistory(ctx context.Context, workshopID, vehicleID string) ([]models.RepairReportDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
        WHERE rr.status = 'HISTORIC' AND fr.vehicle_id = $1
        AND EXISTS (SELECT 1 FROM failure_reports f2
            WHERE f2.vehicle_id = $1 AND f2.workshop_id = $2 AND f2.status IN ('PENDING','ASSIGNED','STOPPED'))
        ORDER BY rr.last_change_date DESC`, repairDetailColumns, repairDetailJoin)

	var reports []models.RepairReportDetail
	if err := r.db.SelectContext(ctx, &reports, query, vehicleID, workshopID); err != nil {
		return nil, fmt.Errorf("vehicle repair history: %w", err)
	}
	return reports, nil
}

// ListForExport returns every repair report in scope without pagination, for
// the cost export.
func (r *RepairReportRepository) ListForExport(ctx context.Context, scope models.RepairReportScope, limit int) ([]models.RepairReportDetail, error) {
	var args []interface{}
	cond, args := scopeCondition(scope, args)
	clause := ""
	if cond != "" {
		clause = " WHERE " + cond
	}
	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY rr.last_change_date DESC LIMIT %d`,
		repairDetailColumns, repairDetailJoin, clause, limit)

	var reports []models.RepairReportDetail
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("export repair reports: %w", err)
	}
	return reports, nil
}
