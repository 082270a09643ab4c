package authz

import (
	"github.com/mechfleet/maintenance-api/internal/models"
)

// Decision is the tri-state outcome of an authorization check. DenyNotFound is
// used where revealing the target's existence to the actor would leak
// information; callers must surface it exactly like an absent record.
type Decision int

const (
	Allow Decision = iota
	DenyForbidden
	DenyNotFound
)

// Actor identifies the requesting user for every gate and engine call. It is
// always passed explicitly; there is no ambient request context.
type Actor struct {
	ID        string
	Role      models.UserRole
	Superuser bool
	// LocationID is the branch assignment for standard users and the
	// workshop assignment for mechanics. Nil when unassigned.
	LocationID *string
}

func (a Actor) isAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanCreateFailureReport allows only branch-assigned standard users to report
// failures.
func CanCreateFailureReport(actor Actor) Decision {
	if actor.Role != models.RoleStandard {
		return DenyForbidden
	}
	if actor.LocationID == nil {
		return DenyForbidden
	}
	return Allow
}

// CanReportVehicle hides vehicles outside the author's branch: reporting one
// yields the same outcome as reporting a nonexistent id.
func CanReportVehicle(actor Actor, vehicle *models.Vehicle) Decision {
	if d := CanCreateFailureReport(actor); d != Allow {
		return d
	}
	if vehicle == nil || *actor.LocationID != vehicle.LocationID {
		return DenyNotFound
	}
	return Allow
}

// CanReadFailureReports gates full failure-report listing and detail access.
func CanReadFailureReports(actor Actor) Decision {
	if actor.Role == models.RoleManager || actor.isAdmin() {
		return Allow
	}
	return DenyForbidden
}

// CanClaimFailureReport gates the claim operation itself; contention with the
// current holder is the engine's concern, not the gate's.
func CanClaimFailureReport(actor Actor) Decision {
	if actor.Role != models.RoleManager {
		return DenyForbidden
	}
	return Allow
}

// CanEditRepairReport allows mechanics of the holding workshop to edit or flip
// the status of a repair report. Mechanics of other workshops get NotFound so
// report ids cannot be enumerated across workshops.
func CanEditRepairReport(actor Actor, report *models.RepairReportDetail) Decision {
	if actor.Role != models.RoleMechanic {
		return DenyForbidden
	}
	if actor.LocationID == nil {
		return DenyForbidden
	}
	if report.WorkshopID == nil || *report.WorkshopID != *actor.LocationID {
		return DenyNotFound
	}
	return Allow
}

// CanRejectRepairReport allows only the manager holding the parent failure
// report to reject. A manager who does not hold it cannot see the report at
// all, hence NotFound.
func CanRejectRepairReport(actor Actor, report *models.RepairReportDetail) Decision {
	if actor.Role != models.RoleManager {
		return DenyForbidden
	}
	if report.ManagedBy == nil || *report.ManagedBy != actor.ID {
		return DenyNotFound
	}
	return Allow
}

// RepairReportScopeFor derives the single scope predicate shared by repair
// report list and detail reads. Rejections inherit the same scope through
// their parent repair report.
func RepairReportScopeFor(actor Actor) (models.RepairReportScope, Decision) {
	switch {
	case actor.isAdmin():
		return models.RepairReportScope{All: true}, Allow
	case actor.Role == models.RoleManager:
		return models.RepairReportScope{ManagedBy: actor.ID}, Allow
	case actor.Role == models.RoleMechanic:
		if actor.LocationID == nil {
			return models.RepairReportScope{}, DenyForbidden
		}
		return models.RepairReportScope{WorkshopID: *actor.LocationID}, Allow
	default:
		return models.RepairReportScope{}, DenyForbidden
	}
}

// CanListVehicleRepairHistory gates the mechanic view of a vehicle's historic
// repair reports.
func CanListVehicleRepairHistory(actor Actor) Decision {
	if actor.Role != models.RoleMechanic || actor.LocationID == nil {
		return DenyForbidden
	}
	return Allow
}

// CanExportRepairReports gates the repair-cost export download.
func CanExportRepairReports(actor Actor) Decision {
	if actor.Role == models.RoleManager || actor.isAdmin() {
		return Allow
	}
	return DenyForbidden
}

// CanWriteReferenceData gates create/update/delete of locations, manufacturers
// and vehicles.
func CanWriteReferenceData(actor Actor) Decision {
	if actor.isAdmin() {
		return Allow
	}
	return DenyForbidden
}

// CanListLocations gates the full location listing.
func CanListLocations(actor Actor) Decision {
	if actor.Role == models.RoleManager || actor.isAdmin() {
		return Allow
	}
	return DenyForbidden
}
