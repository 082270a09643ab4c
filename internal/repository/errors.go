package repository

import "errors"

// Workflow precondition failures surfaced by transactional repository methods.
// Preconditions are re-checked under row locks, so these are authoritative
// even under concurrent callers; services translate them into typed API errors.
var (
	ErrVehicleAlreadyReported  = errors.New("vehicle already has an open failure report")
	ErrReportNotOpen           = errors.New("failure report is not in an open status")
	ErrReportManagedBySelf     = errors.New("failure report is already managed by the acting manager")
	ErrReportManagedByOther    = errors.New("failure report is already managed by another manager")
	ErrReportNotManaged        = errors.New("acting manager does not hold the failure report")
	ErrReportNotPending        = errors.New("failure report is not in PENDING status")
	ErrReportNotAssigned       = errors.New("failure report is not in ASSIGNED status")
	ErrReportNotReassignable   = errors.New("failure report is not in ASSIGNED or STOPPED status")
	ErrWorkshopAlreadyAssigned = errors.New("failure report already has a workshop assigned")
	ErrSameWorkshop            = errors.New("workshop is the same as the current workshop")
	ErrRepairNotActive         = errors.New("repair report is not in ACTIVE status")
	ErrRepairNotReady          = errors.New("repair report is not in READY status")
)
