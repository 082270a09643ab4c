package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

type vehicleStore interface {
	List(ctx context.Context, filter models.VehicleFilter) ([]models.VehicleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindDetailByID(ctx context.Context, id string) (*models.VehicleDetail, error)
	Create(ctx context.Context, vehicle *models.Vehicle) error
	Update(ctx context.Context, vehicle *models.Vehicle) error
	Delete(ctx context.Context, id string) error
}

type openReportChecker interface {
	HasOpenForVehicle(ctx context.Context, vehicleID string) (bool, error)
}

type manufacturerReader interface {
	FindByID(ctx context.Context, id string) (*models.Manufacturer, error)
}

// VehicleService manages the fleet: reads for operational roles and
// administrator-only writes.
type VehicleService struct {
	repo          vehicleStore
	openReports   openReportChecker
	locations     locationReader
	manufacturers manufacturerReader
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewVehicleService builds a VehicleService with sane defaults.
func NewVehicleService(
	repo vehicleStore,
	openReports openReportChecker,
	locations locationReader,
	manufacturers manufacturerReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *VehicleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &VehicleService{
		repo:          repo,
		openReports:   openReports,
		locations:     locations,
		manufacturers: manufacturers,
		validator:     validate,
		logger:        logger,
	}
}

// List returns vehicles. Branch users only see their own branch; managers and
// administrators see the whole fleet.
func (s *VehicleService) List(ctx context.Context, actor authz.Actor, filter models.VehicleFilter) ([]models.VehicleDetail, int, error) {
	switch actor.Role {
	case models.RoleManager, models.RoleAdmin:
	case models.RoleStandard:
		if actor.LocationID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "")
		}
		filter.LocationID = *actor.LocationID
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	vehicles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vehicles")
	}
	return vehicles, total, nil
}

// Get returns one vehicle. Branch users get NotFound for vehicles outside
// their branch.
func (s *VehicleService) Get(ctx context.Context, actor authz.Actor, id string) (*models.VehicleDetail, error) {
	switch actor.Role {
	case models.RoleManager, models.RoleAdmin, models.RoleStandard:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Vehicle not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch vehicle")
	}

	if actor.Role == models.RoleStandard {
		if actor.LocationID == nil || detail.LocationID != *actor.LocationID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "There is no vehicle with provided ID assigned to your branch.")
		}
	}
	return detail, nil
}

// Create registers a vehicle.
func (s *VehicleService) Create(ctx context.Context, actor authz.Actor, req models.VehicleRequest) (*models.VehicleDetail, error) {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validateReferences(ctx, req); err != nil {
		return nil, err
	}

	vehicle := &models.Vehicle{
		VIN:            req.VIN,
		Kilometers:     req.Kilometers,
		ManufacturerID: req.ManufacturerID,
		Model:          req.Model,
		Year:           req.Year,
		VehicleType:    req.VehicleType,
		FuelType:       req.FuelType,
		Availability:   req.Availability,
		LocationID:     req.LocationID,
	}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create vehicle")
	}
	return s.repo.FindDetailByID(ctx, vehicle.ID)
}

// Update rewrites a vehicle. Setting the availability to AVAILABLE is refused
// while the vehicle carries an open failure report.
func (s *VehicleService) Update(ctx context.Context, actor authz.Actor, id string, req models.VehicleRequest) (*models.VehicleDetail, error) {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validateReferences(ctx, req); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Vehicle not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch vehicle")
	}

	if req.Availability == models.VehicleAvailable && current.Availability == models.VehicleUnavailable {
		open, err := s.openReports.HasOpenForVehicle(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open failure reports")
		}
		if open {
			return nil, appErrors.Clone(appErrors.ErrValidation, "Vehicle has been reported as failure. It cannot be set as available.")
		}
	}

	vehicle := &models.Vehicle{
		ID:             id,
		VIN:            req.VIN,
		Kilometers:     req.Kilometers,
		ManufacturerID: req.ManufacturerID,
		Model:          req.Model,
		Year:           req.Year,
		VehicleType:    req.VehicleType,
		FuelType:       req.FuelType,
		Availability:   req.Availability,
		LocationID:     req.LocationID,
	}
	if err := s.repo.Update(ctx, vehicle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Vehicle not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update vehicle")
	}
	return s.repo.FindDetailByID(ctx, id)
}

// Delete removes a vehicle that carries no open failure report.
func (s *VehicleService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return decisionError(d, "")
	}

	open, err := s.openReports.HasOpenForVehicle(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open failure reports")
	}
	if open {
		return appErrors.Clone(appErrors.ErrConflict, "Vehicle has an open failure report. It cannot be deleted.")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Vehicle not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete vehicle")
	}
	return nil
}

func (s *VehicleService) validateReferences(ctx context.Context, req models.VehicleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vehicle payload")
	}

	if _, err := s.manufacturers.FindByID(ctx, req.ManufacturerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "Provided manufacturer does not exist.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch manufacturer")
	}

	location, err := s.locations.FindByID(ctx, req.LocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "Provided location does not exist.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch location")
	}
	if location.LocationType != models.LocationTypeBranch {
		return appErrors.Clone(appErrors.ErrValidation, "Vehicles can only be based at a branch.")
	}
	return nil
}
