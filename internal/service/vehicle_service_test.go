package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

type vehicleStoreStub struct {
	current *models.Vehicle
	detail  *models.VehicleDetail

	created bool
	updated bool
}

func (s *vehicleStoreStub) List(ctx context.Context, filter models.VehicleFilter) ([]models.VehicleDetail, int, error) {
	return nil, 0, nil
}

func (s *vehicleStoreStub) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if s.current == nil {
		return nil, sql.ErrNoRows
	}
	return s.current, nil
}

func (s *vehicleStoreStub) FindDetailByID(ctx context.Context, id string) (*models.VehicleDetail, error) {
	if s.detail == nil {
		return nil, sql.ErrNoRows
	}
	return s.detail, nil
}

func (s *vehicleStoreStub) Create(ctx context.Context, vehicle *models.Vehicle) error {
	s.created = true
	vehicle.ID = "veh-1"
	return nil
}

func (s *vehicleStoreStub) Update(ctx context.Context, vehicle *models.Vehicle) error {
	s.updated = true
	return nil
}

func (s *vehicleStoreStub) Delete(ctx context.Context, id string) error {
	return nil
}

type openReportsStub struct {
	open bool
}

func (s openReportsStub) HasOpenForVehicle(ctx context.Context, vehicleID string) (bool, error) {
	return s.open, nil
}

type manufacturerReaderStub struct {
	manufacturers map[string]*models.Manufacturer
}

func (s manufacturerReaderStub) FindByID(ctx context.Context, id string) (*models.Manufacturer, error) {
	if manufacturer, ok := s.manufacturers[id]; ok {
		return manufacturer, nil
	}
	return nil, sql.ErrNoRows
}

const manufacturerID = "6b1f8e7a-6c3b-4a27-9f20-0a4ad3b1c004"

func adminActor() authz.Actor {
	return authz.Actor{ID: "adm-1", Role: models.RoleAdmin, Superuser: true}
}

func validVehicleRequest() models.VehicleRequest {
	return models.VehicleRequest{
		VIN:            "WVWZZZ1JZ3W386752",
		Kilometers:     42000,
		ManufacturerID: manufacturerID,
		Model:          "Crafter",
		Year:           2019,
		VehicleType:    models.VehicleTypeTruck,
		FuelType:       models.FuelTypeDiesel,
		Availability:   models.VehicleUnavailable,
		LocationID:     branchID,
	}
}

func newVehicleService(repo *vehicleStoreStub, openReports openReportsStub) *VehicleService {
	manufacturers := manufacturerReaderStub{manufacturers: map[string]*models.Manufacturer{
		manufacturerID: {ID: manufacturerID, Name: "Volkswagen"},
	}}
	locations := locationReaderStub{locations: map[string]*models.Location{
		branchID: {ID: branchID, LocationType: models.LocationTypeBranch},
	}}
	return NewVehicleService(repo, openReports, locations, manufacturers, nil, nil)
}

func TestVehicleCreateRejectsAmbiguousVINLetters(t *testing.T) {
	repo := &vehicleStoreStub{}
	svc := newVehicleService(repo, openReportsStub{})

	req := validVehicleRequest()
	req.VIN = "WVWZZZ1JZ3W38675O"

	_, err := svc.Create(context.Background(), adminActor(), req)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.created)

	req.VIN = "WVWZZZ1JZ3W386752"
	repo.detail = &models.VehicleDetail{Vehicle: models.Vehicle{ID: "veh-1"}}
	_, err = svc.Create(context.Background(), adminActor(), req)
	require.NoError(t, err)
	assert.True(t, repo.created)
}

func TestVehicleAvailabilityFlipBlockedWhileReported(t *testing.T) {
	repo := &vehicleStoreStub{
		current: &models.Vehicle{ID: "veh-1", Availability: models.VehicleUnavailable},
		detail:  &models.VehicleDetail{Vehicle: models.Vehicle{ID: "veh-1"}},
	}
	svc := newVehicleService(repo, openReportsStub{open: true})

	req := validVehicleRequest()
	req.Availability = models.VehicleAvailable

	_, err := svc.Update(context.Background(), adminActor(), "veh-1", req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "Vehicle has been reported as failure. It cannot be set as available.", appErr.Message)
	assert.False(t, repo.updated)
}

func TestVehicleAvailabilityFlipAllowedWithoutOpenReport(t *testing.T) {
	repo := &vehicleStoreStub{
		current: &models.Vehicle{ID: "veh-1", Availability: models.VehicleUnavailable},
		detail:  &models.VehicleDetail{Vehicle: models.Vehicle{ID: "veh-1"}},
	}
	svc := newVehicleService(repo, openReportsStub{open: false})

	req := validVehicleRequest()
	req.Availability = models.VehicleAvailable

	_, err := svc.Update(context.Background(), adminActor(), "veh-1", req)
	require.NoError(t, err)
	assert.True(t, repo.updated)
}
