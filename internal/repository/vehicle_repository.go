package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mechfleet/maintenance-api/internal/models"
)

// VehicleRepository provides database access for fleet vehicles.
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a new instance of VehicleRepository.
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// List returns vehicles based on filters with total count.
func (r *VehicleRepository) List(ctx context.Context, filter models.VehicleFilter) ([]models.VehicleDetail, int, error) {
	base := `FROM vehicles v
JOIN manufacturers m ON m.id = v.manufacturer_id
JOIN locations l ON l.id = v.location_id`
	var conditions []string
	var args []interface{}

	if filter.Model != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(v.model) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Model)+"%")
	}
	if filter.YearFrom > 0 {
		conditions = append(conditions, fmt.Sprintf("v.year >= $%d", len(args)+1))
		args = append(args, filter.YearFrom)
	}
	if filter.YearTo > 0 {
		conditions = append(conditions, fmt.Sprintf("v.year <= $%d", len(args)+1))
		args = append(args, filter.YearTo)
	}
	if filter.VehicleType != "" {
		conditions = append(conditions, fmt.Sprintf("v.vehicle_type = $%d", len(args)+1))
		args = append(args, filter.VehicleType)
	}
	if filter.FuelType != "" {
		conditions = append(conditions, fmt.Sprintf("v.fuel_type = $%d", len(args)+1))
		args = append(args, filter.FuelType)
	}
	if filter.Availability != "" {
		conditions = append(conditions, fmt.Sprintf("v.availability = $%d", len(args)+1))
		args = append(args, filter.Availability)
	}
	if filter.ManufacturerID != "" {
		conditions = append(conditions, fmt.Sprintf("v.manufacturer_id = $%d", len(args)+1))
		args = append(args, filter.ManufacturerID)
	}
	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("v.location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"model":      "v.model",
		"year":       "v.year",
		"kilometers": "v.kilometers",
		"vin":        "v.vin",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "v.model"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT v.id, v.vin, v.kilometers, v.manufacturer_id, v.model, v.year, v.vehicle_type,
        v.fuel_type, v.availability, v.location_id,
        m.name AS manufacturer_name, l.name AS location_name
        %s%s ORDER BY %s %s LIMIT %d OFFSET %d`, base, clause, orderBy, order, size, offset)

	var vehicles []models.VehicleDetail
	if err := r.db.SelectContext(ctx, &vehicles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}
	return vehicles, total, nil
}

// FindByID returns a vehicle by identifier.
func (r *VehicleRepository) FindByID(ctx context.Context, id string) (*models.Vehicle, error) {
	const query = `SELECT id, vin, kilometers, manufacturer_id, model, year, vehicle_type, fuel_type, availability, location_id
        FROM vehicles WHERE id = $1`
	var vehicle models.Vehicle
	if err := r.db.GetContext(ctx, &vehicle, query, id); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindDetailByID returns a vehicle with manufacturer and location names.
func (r *VehicleRepository) FindDetailByID(ctx context.Context, id string) (*models.VehicleDetail, error) {
	const query = `SELECT v.id, v.vin, v.kilometers, v.manufacturer_id, v.model, v.year, v.vehicle_type,
        v.fuel_type, v.availability, v.location_id,
        m.name AS manufacturer_name, l.name AS location_name
        FROM vehicles v
        JOIN manufacturers m ON m.id = v.manufacturer_id
        JOIN locations l ON l.id = v.location_id
        WHERE v.id = $1`
	var detail models.VehicleDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a vehicle.
func (r *VehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.NewString()
	}
	const query = `INSERT INTO vehicles (id, vin, kilometers, manufacturer_id, model, year, vehicle_type, fuel_type, availability, location_id)
        VALUES (:id, :vin, :kilometers, :manufacturer_id, :model, :year, :vehicle_type, :fuel_type, :availability, :location_id)`
	if _, err := r.db.NamedExecContext(ctx, query, vehicle); err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	return nil
}

// Update rewrites a vehicle row.
func (r *VehicleRepository) Update(ctx context.Context, vehicle *models.Vehicle) error {
	const query = `UPDATE vehicles SET vin = :vin, kilometers = :kilometers, manufacturer_id = :manufacturer_id,
        model = :model, year = :year, vehicle_type = :vehicle_type, fuel_type = :fuel_type,
        availability = :availability, location_id = :location_id WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, vehicle)
	if err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a vehicle.
func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
