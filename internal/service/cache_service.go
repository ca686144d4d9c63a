package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService fronts the generated-schedule cache and records hit ratios.
// A disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get reports whether key was found and decoded into dest. Backend errors are
// logged and returned alongside a miss so callers can carry on uncached.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("schedule cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key; a non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("schedule cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate drops every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("schedule cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	s.logger.Debug("schedule cache invalidated", zap.String("pattern", pattern))
	return nil
}
