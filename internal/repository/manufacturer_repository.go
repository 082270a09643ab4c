package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mechfleet/maintenance-api/internal/models"
)

// ManufacturerRepository provides database access for vehicle manufacturers.
type ManufacturerRepository struct {
	db *sqlx.DB
}

// NewManufacturerRepository creates a new instance of ManufacturerRepository.
func NewManufacturerRepository(db *sqlx.DB) *ManufacturerRepository {
	return &ManufacturerRepository{db: db}
}

// List returns all manufacturers ordered by name.
func (r *ManufacturerRepository) List(ctx context.Context) ([]models.Manufacturer, error) {
	const query = `SELECT id, name FROM manufacturers ORDER BY name ASC`
	var manufacturers []models.Manufacturer
	if err := r.db.SelectContext(ctx, &manufacturers, query); err != nil {
		return nil, fmt.Errorf("list manufacturers: %w", err)
	}
	return manufacturers, nil
}

// FindByID returns a manufacturer by identifier.
func (r *ManufacturerRepository) FindByID(ctx context.Context, id string) (*models.Manufacturer, error) {
	const query = `SELECT id, name FROM manufacturers WHERE id = $1`
	var manufacturer models.Manufacturer
	if err := r.db.GetContext(ctx, &manufacturer, query, id); err != nil {
		return nil, err
	}
	return &manufacturer, nil
}

// Create inserts a manufacturer.
func (r *ManufacturerRepository) Create(ctx context.Context, manufacturer *models.Manufacturer) error {
	if manufacturer.ID == "" {
		manufacturer.ID = uuid.NewString()
	}
	const query = `INSERT INTO manufacturers (id, name) VALUES (:id, :name)`
	if _, err := r.db.NamedExecContext(ctx, query, manufacturer); err != nil {
		return fmt.Errorf("create manufacturer: %w", err)
	}
	return nil
}

// Update rewrites a manufacturer row.
func (r *ManufacturerRepository) Update(ctx context.Context, manufacturer *models.Manufacturer) error {
	result, err := r.db.NamedExecContext(ctx, `UPDATE manufacturers SET name = :name WHERE id = :id`, manufacturer)
	if err != nil {
		return fmt.Errorf("update manufacturer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update manufacturer: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a manufacturer.
func (r *ManufacturerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM manufacturers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete manufacturer: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete manufacturer: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
