package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mechfleet/maintenance-api/internal/authz"
	"github.com/mechfleet/maintenance-api/internal/models"
	appErrors "github.com/mechfleet/maintenance-api/pkg/errors"
)

const locationCachePrefix = "reference:locations"

type locationStore interface {
	List(ctx context.Context, filter models.LocationFilter) ([]models.Location, int, error)
	FindByID(ctx context.Context, id string) (*models.Location, error)
	Create(ctx context.Context, location *models.Location) error
	Update(ctx context.Context, location *models.Location) error
	Delete(ctx context.Context, id string) error
}

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cachedLocationList struct {
	Locations []models.Location `json:"locations"`
	Total     int               `json:"total"`
}

// LocationService manages branch and workshop reference data with a Redis
// read-through cache.
type LocationService struct {
	repo      locationStore
	cache     cacheStore
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewLocationService builds a LocationService with sane defaults.
func NewLocationService(
	repo locationStore,
	cache cacheStore,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
) *LocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &LocationService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
	}
}

// List returns locations for managers and administrators. Name-filtered
// lookups bypass the cache.
func (s *LocationService) List(ctx context.Context, actor authz.Actor, filter models.LocationFilter) ([]models.Location, int, error) {
	if d := authz.CanListLocations(actor); d != authz.Allow {
		return nil, 0, decisionError(d, "")
	}

	useCache := s.cache != nil && filter.Name == ""
	cacheKey := fmt.Sprintf("%s:%s:p%d:s%d", locationCachePrefix, filter.LocationType, filter.Page, filter.PageSize)

	if useCache {
		start := time.Now()
		var cached cachedLocationList
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(start))
			return cached.Locations, cached.Total, nil
		}
		s.metrics.RecordCacheOperation(false, time.Since(start))
	}

	locations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list locations")
	}

	if useCache {
		if err := s.cache.Set(ctx, cacheKey, cachedLocationList{Locations: locations, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache locations", zap.Error(err))
		}
	}
	return locations, total, nil
}

// Get returns one location.
func (s *LocationService) Get(ctx context.Context, actor authz.Actor, id string) (*models.Location, error) {
	if d := authz.CanListLocations(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	location, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Location not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch location")
	}
	return location, nil
}

// Create registers a location.
func (s *LocationService) Create(ctx context.Context, actor authz.Actor, req models.LocationRequest) (*models.Location, error) {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}

	location := &models.Location{
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Address:      req.Address,
		LocationType: req.LocationType,
	}
	if err := s.repo.Create(ctx, location); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create location")
	}
	s.invalidateCache(ctx)
	return location, nil
}

// Update rewrites a location's contact data.
func (s *LocationService) Update(ctx context.Context, actor authz.Actor, id string, req models.LocationRequest) (*models.Location, error) {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return nil, decisionError(d, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location payload")
	}

	location := &models.Location{
		ID:          id,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Address:     req.Address,
	}
	if err := s.repo.Update(ctx, location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Location not found.")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update location")
	}
	s.invalidateCache(ctx)
	return s.repo.FindByID(ctx, id)
}

// Delete removes a location.
func (s *LocationService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if d := authz.CanWriteReferenceData(actor); d != authz.Allow {
		return decisionError(d, "")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Location not found.")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete location")
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *LocationService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, locationCachePrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate location cache", zap.Error(err))
	}
}
