package services

import (
	"time"

	"tasktrack/backend/internal/cache"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Analytics views are cheap to cache and expensive to recompute; the TTL is
// short because mutations also invalidate eagerly via CachedTaskService.
const analyticsTTL = time.Minute

type CachedAnalyticsService struct {
	analytics AnalyticsService
	cache     *cache.RedisCache
}

func NewCachedAnalyticsService(analytics AnalyticsService, cacheInstance *cache.RedisCache) *CachedAnalyticsService {
	return &CachedAnalyticsService{
		analytics: analytics,
		cache:     cacheInstance,
	}
}

func (s *CachedAnalyticsService) Overview(db *gorm.DB, callerID uuid.UUID, now time.Time) (*OverviewStats, error) {
	key := cache.AnalyticsKey(callerID, "overview", 0)

	var cached OverviewStats
	if err := s.cache.Get(key, &cached); err == nil {
		return &cached, nil
	}

	stats, err := s.analytics.Overview(db, callerID, now)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, stats, analyticsTTL)
	return stats, nil
}

func (s *CachedAnalyticsService) CompletionRateSeries(db *gorm.DB, callerID uuid.UUID, periodDays int, now time.Time) ([]CompletionRatePoint, error) {
	key := cache.AnalyticsKey(callerID, "completion-rates", periodDays)

	var cached []CompletionRatePoint
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	points, err := s.analytics.CompletionRateSeries(db, callerID, periodDays, now)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, points, analyticsTTL)
	return points, nil
}

func (s *CachedAnalyticsService) OverdueBreakdown(db *gorm.DB, callerID uuid.UUID, now time.Time) (*OverdueReport, error) {
	key := cache.AnalyticsKey(callerID, "overdue-tasks", 0)

	var cached OverdueReport
	if err := s.cache.Get(key, &cached); err == nil {
		return &cached, nil
	}

	report, err := s.analytics.OverdueBreakdown(db, callerID, now)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, report, analyticsTTL)
	return report, nil
}

func (s *CachedAnalyticsService) Productivity(db *gorm.DB, callerID uuid.UUID, periodDays int, now time.Time) (*ProductivityStats, error) {
	key := cache.AnalyticsKey(callerID, "productivity", periodDays)

	var cached ProductivityStats
	if err := s.cache.Get(key, &cached); err == nil {
		return &cached, nil
	}

	stats, err := s.analytics.Productivity(db, callerID, periodDays, now)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, stats, analyticsTTL)
	return stats, nil
}

func (s *CachedAnalyticsService) CategoryRollup(db *gorm.DB, callerID uuid.UUID) ([]CategoryStats, error) {
	key := cache.AnalyticsKey(callerID, "categories", 0)

	var cached []CategoryStats
	if err := s.cache.Get(key, &cached); err == nil {
		return cached, nil
	}

	rollup, err := s.analytics.CategoryRollup(db, callerID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, rollup, analyticsTTL)
	return rollup, nil
}

// WarmUserAnalytics precomputes a user's default views; used by the nightly
// statistics job.
func (s *CachedAnalyticsService) WarmUserAnalytics(db *gorm.DB, callerID uuid.UUID, now time.Time) error {
	if _, err := s.Overview(db, callerID, now); err != nil {
		return err
	}
	if _, err := s.CompletionRateSeries(db, callerID, DefaultSeriesPeriodDays, now); err != nil {
		return err
	}
	if _, err := s.Productivity(db, callerID, DefaultProductivityPeriodDays, now); err != nil {
		return err
	}
	return nil
}
