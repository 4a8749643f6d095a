package statistics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// PlatformStatistics counts rows across the catalog, billing and usage tables.
	PlatformStatistics(ctx context.Context) (*types.PlatformStatistics, error)
	UserStatistics(ctx context.Context, userID uuid.UUID) (*types.UserStatistics, error)
}

const (
	platformStatisticsQuery = `SELECT
    (SELECT COUNT(*) FROM users WHERE is_active),
    (SELECT COUNT(*) FROM subscriptions WHERE plan = 'pro' AND status = 'active'),
    (SELECT COUNT(*) FROM prompt_catalog WHERE is_published),
    (SELECT COUNT(*) FROM timeline_prompts WHERE is_published),
    (SELECT COUNT(*) FROM community_prompts WHERE status = 'pending'),
    (SELECT COUNT(*) FROM chat_sessions),
    (SELECT COUNT(*) FROM user_products),
    NOW()`

	userStatisticsQuery = `SELECT
    (SELECT COUNT(*) FROM favorites WHERE user_id = $1),
    (SELECT COUNT(*) FROM prompt_catalog WHERE author_id = $1),
    (SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1),
    (SELECT COUNT(*) FROM user_products WHERE user_id = $1)`
)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepository(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) PlatformStatistics(ctx context.Context) (*types.PlatformStatistics, error) {
	ctx, span := otel.Tracer("StatisticsRepo").Start(ctx, "PlatformStatistics", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
	))
	defer span.End()

	var s types.PlatformStatistics
	err := r.pgpool.QueryRow(ctx, platformStatisticsQuery).Scan(
		&s.TotalUsers, &s.ProSubscribers, &s.PublishedPrompts, &s.TimelinePrompts,
		&s.PendingSubmissions, &s.ChatSessions, &s.AnalysedProducts, &s.GeneratedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to compute platform statistics", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error computing platform statistics: %w", err)
	}
	span.SetStatus(codes.Ok, "Platform statistics computed")
	return &s, nil
}

func (r *RepositoryImpl) UserStatistics(ctx context.Context, userID uuid.UUID) (*types.UserStatistics, error) {
	ctx, span := otel.Tracer("StatisticsRepo").Start(ctx, "UserStatistics", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	var s types.UserStatistics
	err := r.pgpool.QueryRow(ctx, userStatisticsQuery, userID).Scan(
		&s.Favorites, &s.CreatedPrompts, &s.ChatSessions, &s.AnalysedProducts,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error computing user statistics: %w", err)
	}
	span.SetStatus(codes.Ok, "User statistics computed")
	return &s, nil
}
