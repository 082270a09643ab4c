package models

import "time"

// FailureReportStatus represents the lifecycle of a failure report.
type FailureReportStatus string

const (
	FailurePending   FailureReportStatus = "PENDING"
	FailureAssigned  FailureReportStatus = "ASSIGNED"
	FailureStopped   FailureReportStatus = "STOPPED"
	FailureDismissed FailureReportStatus = "DISMISSED"
	FailureResolved  FailureReportStatus = "RESOLVED"
)

// OpenFailureStatuses are the non-terminal statuses. A vehicle carrying a
// report in any of them is unavailable and cannot be reported again.
var OpenFailureStatuses = []FailureReportStatus{FailurePending, FailureAssigned, FailureStopped}

// IsOpen reports whether the status is non-terminal.
func (s FailureReportStatus) IsOpen() bool {
	return s == FailurePending || s == FailureAssigned || s == FailureStopped
}

// FailureReport is one reported defect on one vehicle. ManagedBy is the
// exclusive claim token: at most one manager holds it while the report is open.
type FailureReport struct {
	ID               string              `db:"id" json:"id"`
	VehicleID        string              `db:"vehicle_id" json:"vehicle_id"`
	Title            string              `db:"title" json:"title"`
	Description      string              `db:"description" json:"description"`
	WorkshopID       *string             `db:"workshop_id" json:"workshop_id,omitempty"`
	ManagedBy        *string             `db:"managed_by" json:"managed_by,omitempty"`
	ReportAuthorID   string              `db:"report_author_id" json:"report_author_id"`
	ReportDate       time.Time           `db:"report_date" json:"report_date"`
	LastStatusChange time.Time           `db:"last_status_change" json:"last_status_change"`
	Status           FailureReportStatus `db:"status" json:"status"`
}

// FailureReportDetail enriches FailureReport with vehicle and workshop info.
type FailureReportDetail struct {
	FailureReport
	VehicleVIN   string  `db:"vehicle_vin" json:"vehicle_vin"`
	VehicleModel string  `db:"vehicle_model" json:"vehicle_model"`
	WorkshopName *string `db:"workshop_name" json:"workshop_name,omitempty"`
}

// CreateFailureReportRequest is the payload for reporting a vehicle failure.
type CreateFailureReportRequest struct {
	VehicleID   string `json:"vehicle_id" validate:"required,uuid4"`
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"required"`
}

// AssignWorkshopRequest is the payload for assigning or reassigning a
// workshop to a failure report.
type AssignWorkshopRequest struct {
	WorkshopID string `json:"workshop_id" validate:"required,uuid4"`
}

// FailureReportFilter captures filtering criteria for listing failure reports.
type FailureReportFilter struct {
	Status    FailureReportStatus
	VehicleID string
	ManagedBy string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
