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

// LocationRepository provides database access for branch and workshop
// locations.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository creates a new instance of LocationRepository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// List returns locations based on filters with total count.
func (r *LocationRepository) List(ctx context.Context, filter models.LocationFilter) ([]models.Location, int, error) {
	base := `FROM locations WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.LocationType != "" {
		conditions = append(conditions, fmt.Sprintf("location_type = $%d", len(args)+1))
		args = append(args, filter.LocationType)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT id, name, phone_number, email, address, location_type %s%s ORDER BY name ASC LIMIT %d OFFSET %d`,
		base, clause, size, offset)

	var locations []models.Location
	if err := r.db.SelectContext(ctx, &locations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list locations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count locations: %w", err)
	}
	return locations, total, nil
}

// FindByID returns a location by identifier.
func (r *LocationRepository) FindByID(ctx context.Context, id string) (*models.Location, error) {
	const query = `SELECT id, name, phone_number, email, address, location_type FROM locations WHERE id = $1`
	var location models.Location
	if err := r.db.GetContext(ctx, &location, query, id); err != nil {
		return nil, err
	}
	return &location, nil
}

// Create inserts a location.
func (r *LocationRepository) Create(ctx context.Context, location *models.Location) error {
	if location.ID == "" {
		location.ID = uuid.NewString()
	}
	const query = `INSERT INTO locations (id, name, phone_number, email, address, location_type)
        VALUES (:id, :name, :phone_number, :email, :address, :location_type)`
	if _, err := r.db.NamedExecContext(ctx, query, location); err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// Update rewrites a location row. The location_type is immutable after
// creation.
func (r *LocationRepository) Update(ctx context.Context, location *models.Location) error {
	const query = `UPDATE locations SET name = :name, phone_number = :phone_number, email = :email, address = :address
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, location)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a location.
func (r *LocationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
