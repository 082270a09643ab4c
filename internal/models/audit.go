package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionReportCreate   = "FAILURE_REPORT_CREATE"
	AuditActionReportClaim    = "FAILURE_REPORT_CLAIM"
	AuditActionReportRelease  = "FAILURE_REPORT_RELEASE"
	AuditActionReportAssign   = "FAILURE_REPORT_ASSIGN"
	AuditActionReportReassign = "FAILURE_REPORT_REASSIGN"
	AuditActionReportDismiss  = "FAILURE_REPORT_DISMISS"
	AuditActionReportResolve  = "FAILURE_REPORT_RESOLVE"
	AuditActionRepairUpdate   = "REPAIR_REPORT_UPDATE"
	AuditActionRepairStatus   = "REPAIR_REPORT_STATUS"
	AuditActionRepairReject   = "REPAIR_REPORT_REJECT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
