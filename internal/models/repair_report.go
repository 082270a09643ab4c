package models

import "time"

// RepairReportStatus represents the lifecycle of a repair report.
type RepairReportStatus string

const (
	// RepairActive means the workshop mechanic may still edit the report.
	RepairActive RepairReportStatus = "ACTIVE"
	// RepairReady means the mechanic finished; the managing manager may
	// resolve the case or reject the work.
	RepairReady RepairReportStatus = "READY"
	// RepairHistoric is terminal, set when the failure report is resolved.
	RepairHistoric RepairReportStatus = "HISTORIC"
)

// RepairReport holds the workshop's analysis and cost for exactly one
// failure report.
type RepairReport struct {
	ID                string             `db:"id" json:"id"`
	FailureReportID   string             `db:"failure_report_id" json:"failure_report_id"`
	ConditionAnalysis string             `db:"condition_analysis" json:"condition_analysis"`
	RepairAction      string             `db:"repair_action" json:"repair_action"`
	Cost              float64            `db:"cost" json:"cost"`
	LastChangeDate    time.Time          `db:"last_change_date" json:"last_change_date"`
	Status            RepairReportStatus `db:"status" json:"status"`
}

// RepairReportDetail enriches RepairReport with parent failure report context
// used both for responses and authorization scoping.
type RepairReportDetail struct {
	RepairReport
	Title      string    `db:"title" json:"title"`
	VehicleID  string    `db:"vehicle_id" json:"vehicle_id"`
	WorkshopID *string   `db:"workshop_id" json:"workshop_id,omitempty"`
	ManagedBy  *string   `db:"managed_by" json:"managed_by,omitempty"`
	ReportDate time.Time `db:"report_date" json:"report_date"`
}

// RepairReportScope narrows list and detail queries to what an actor may see.
// Exactly one of the narrowing fields is set unless All is true.
type RepairReportScope struct {
	All bool
	// ManagedBy limits results to repair reports under failure reports the
	// manager holds.
	ManagedBy string
	// WorkshopID limits results to the mechanic's workshop, plus historic
	// reports of vehicles currently under an open report at that workshop.
	WorkshopID string
}

// RepairReportFilter captures filtering criteria for listing repair reports.
type RepairReportFilter struct {
	Status    RepairReportStatus
	VehicleID string
	Page      int
	PageSize  int
}

// UpdateRepairReportRequest is the payload for editing an active repair
// report.
type UpdateRepairReportRequest struct {
	ConditionAnalysis string  `json:"condition_analysis" validate:"required"`
	RepairAction      string  `json:"repair_action" validate:"required"`
	Cost              float64 `json:"cost"`
}

// RepairReportStatusRequest is the payload for flipping a repair report
// between ACTIVE and READY.
type RepairReportStatusRequest struct {
	Status RepairReportStatus `json:"status" validate:"required,oneof=ACTIVE READY"`
}

// RejectRepairReportRequest is the payload for rejecting a READY repair
// report.
type RejectRepairReportRequest struct {
	Title  string `json:"title" validate:"required,max=120"`
	Reason string `json:"reason" validate:"required"`
}

// RepairReportRejection is an append-only record of a manager rejecting a
// READY repair report. Never updated or deleted.
type RepairReportRejection struct {
	ID             string    `db:"id" json:"id"`
	RepairReportID string    `db:"repair_report_id" json:"repair_report_id"`
	Title          string    `db:"title" json:"title"`
	Reason         string    `db:"reason" json:"reason"`
	RejectionDate  time.Time `db:"rejection_date" json:"rejection_date"`
}
