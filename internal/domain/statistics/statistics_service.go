package statistics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
)

const (
	platformCacheKey = "stats:platform"
	platformCacheTTL = time.Minute
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GetPlatformStatistics(ctx context.Context) (*types.PlatformStatistics, error)
	GetUserStatistics(ctx context.Context, userID uuid.UUID) (*types.UserStatistics, error)
}

type ServiceImpl struct {
	repo   Repository
	cache  cache.Store
	logger *slog.Logger
}

func NewService(repo Repository, store cache.Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		cache:  store,
		logger: logger,
	}
}

// GetPlatformStatistics serves the admin dashboard; results are reused for a minute.
func (s *ServiceImpl) GetPlatformStatistics(ctx context.Context) (*types.PlatformStatistics, error) {
	l := s.logger.With(slog.String("method", "GetPlatformStatistics"))

	var cached types.PlatformStatistics
	if ok, err := s.cache.Get(ctx, platformCacheKey, &cached); err != nil {
		l.WarnContext(ctx, "Statistics cache lookup failed", slog.Any("error", err))
	} else if ok {
		return &cached, nil
	}

	stats, err := s.repo.PlatformStatistics(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to get platform statistics", slog.Any("error", err))
		return nil, fmt.Errorf("error loading platform statistics: %w", err)
	}
	if err := s.cache.Set(ctx, platformCacheKey, stats, platformCacheTTL); err != nil {
		l.WarnContext(ctx, "Failed to cache statistics", slog.Any("error", err))
	}
	l.InfoContext(ctx, "Successfully retrieved platform statistics")
	return stats, nil
}

func (s *ServiceImpl) GetUserStatistics(ctx context.Context, userID uuid.UUID) (*types.UserStatistics, error) {
	stats, err := s.repo.UserStatistics(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get user statistics", slog.String("method", "GetUserStatistics"), slog.Any("error", err))
		return nil, fmt.Errorf("error loading user statistics: %w", err)
	}
	return stats, nil
}
