package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

const manufacturerCacheKey = "reference:manufacturers"

type manufacturerStore interface {
	List(ctx context.Context) ([]models.Manufacturer, error)
	FindByID(ctx context.Context, id string) (*models.Manufacturer, error)
	Create(ctx context.Context, manufacturer *models.Manufacturer) error
	Update(ctx context.Context, manufacturer *models.Manufacturer) error
	Delete(ctx context.Context, id string) error
}

// ManufacturerService manages manufacturer reference data with a Redis
// read-through cache. Reads are open to every authenticated role.
type ManufacturerService struct {
	repo      manufacturerStore
	cache     cacheStore
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewManufacturerService builds a ManufacturerService with sane defaults.
func NewManufacturerService(
	repo manufacturerStore,
	cache cacheStore,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *ManufacturerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ManufacturerService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
	}
}

// List returns all manufacturers.
func (s *ManufacturerService) List(ctx context.Context) ([]models.Manufacturer, error) {
	if s.cache != nil {
		start := time.Now()
		var cached []models.Manufacturer
		if err := s.cache.Get(ctx, manufacturerCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			return cached, nil
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
	}

	manufacturers, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list manufacturers")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, manufacturerCacheKey, manufacturers, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache manufacturers", zap.Error(err))
		}
	}
	return manufacturers, nil
}

// Get returns one manufacturer.
func (s *ManufacturerService) Get(ctx context.Context, id string) (*models.Manufacturer, error) {
	manufacturer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Manufacturer not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch manufacturer")
	}
	return manufacturer, nil
}

// Create registers a manufacturer.
func (s *ManufacturerService) Create(ctx context.Context, actor authz.Actor, req models.ManufacturerRequest) (*models.Manufacturer, error) {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manufacturer payload")
	}

	manufacturer := &models.Manufacturer{Name: req.Name}
	if err := s.repo.Create(ctx, manufacturer); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create manufacturer")
	}
	s.invalidateCache(ctx)
	return manufacturer, nil
}

// Update renames a manufacturer.
func (s *ManufacturerService) Update(ctx context.Context, actor authz.Actor, id string, req models.ManufacturerRequest) (*models.Manufacturer, error) {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manufacturer payload")
	}

	manufacturer := &models.Manufacturer{ID: id, Name: req.Name}
	if err := s.repo.Update(ctx, manufacturer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Manufacturer not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update manufacturer")
	}
	s.invalidateCache(ctx)
	return manufacturer, nil
}

// Delete removes a manufacturer.
func (s *ManufacturerService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return decisionError(d, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Manufacturer not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete manufacturer")
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *ManufacturerService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, manufacturerCacheKey+"*"); err != nil {
		s.logger.Warn("failed to invalidate manufacturer cache", zap.Error(err))
	}
}
