package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// AddFavorite reports whether a new row was stored.
	AddFavorite(ctx context.Context, userID, promptID uuid.UUID) (bool, error)
	RemoveFavorite(ctx context.Context, userID, promptID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Prompt, int, error)
	IsFavorite(ctx context.Context, userID, promptID uuid.UUID) (bool, error)
	FavoritedAmong(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

const (
	addFavoriteQuery = `INSERT INTO favorites (user_id, prompt_id) VALUES ($1, $2)
ON CONFLICT (user_id, prompt_id) DO NOTHING`

	removeFavoriteQuery = `DELETE FROM favorites WHERE user_id = $1 AND prompt_id = $2`

	isFavoriteQuery = `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND prompt_id = $2)`

	favoritedAmongQuery = `SELECT prompt_id FROM favorites WHERE user_id = $1 AND prompt_id = ANY($2)`

	countFavoritesQuery = `SELECT COUNT(*) FROM favorites f JOIN prompt_catalog c ON c.id = f.prompt_id WHERE f.user_id = $1`
)

var listFavoritesQuery = `SELECT ` + strings.Join(prompts.CatalogColumns("c"), ", ") + `
FROM favorites f
JOIN prompt_catalog c ON c.id = f.prompt_id
WHERE f.user_id = $1
ORDER BY f.created_at DESC, c.id
LIMIT $2 OFFSET $3`

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepositoryImpl(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) AddFavorite(ctx context.Context, userID, promptID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("FavoriteRepo").Start(ctx, "AddFavorite", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "favorites"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, addFavoriteQuery, userID, promptID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to add favorite", slog.String("method", "AddFavorite"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return false, fmt.Errorf("database error adding favorite: %w", err)
	}
	span.SetStatus(codes.Ok, "Favorite added")
	return tag.RowsAffected() > 0, nil
}

func (r *RepositoryImpl) RemoveFavorite(ctx context.Context, userID, promptID uuid.UUID) error {
	ctx, span := otel.Tracer("FavoriteRepo").Start(ctx, "RemoveFavorite", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.sql.table", "favorites"),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, removeFavoriteQuery, userID, promptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error removing favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("favorite not found: %w", types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Favorite removed")
	return nil
}

func (r *RepositoryImpl) ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Prompt, int, error) {
	ctx, span := otel.Tracer("FavoriteRepo").Start(ctx, "ListFavorites", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "favorites"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListFavorites"), slog.String("userID", userID.String()))

	var total int
	if err := r.pgpool.QueryRow(ctx, countFavoritesQuery, userID).Scan(&total); err != nil {
		l.ErrorContext(ctx, "Failed to count favorites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error counting favorites: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, listFavoritesQuery, userID, limit, offset)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query favorites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error listing favorites: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Prompt, 0, limit)
	for rows.Next() {
		p, err := prompts.ScanPrompt(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("database error scanning favorite: %w", err)
		}
		p.IsFavorite = true
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("database error reading favorites: %w", err)
	}

	span.SetStatus(codes.Ok, "Favorites listed")
	return out, total, nil
}

func (r *RepositoryImpl) IsFavorite(ctx context.Context, userID, promptID uuid.UUID) (bool, error) {
	var ok bool
	if err := r.pgpool.QueryRow(ctx, isFavoriteQuery, userID, promptID).Scan(&ok); err != nil {
		return false, fmt.Errorf("database error checking favorite: %w", err)
	}
	return ok, nil
}

func (r *RepositoryImpl) FavoritedAmong(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pgpool.Query(ctx, favoritedAmongQuery, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("database error checking favorites: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("database error scanning favorite id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
