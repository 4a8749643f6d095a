package prompts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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
	ListPrompts(ctx context.Context, filter types.PromptFilter) ([]*types.Prompt, error)
	CountPrompts(ctx context.Context, filter types.PromptFilter) (int, error)
	GetPrompt(ctx context.Context, id uuid.UUID) (*types.Prompt, error)
	// PromptRanks maps each published prompt among ids to its 0-based
	// position in the unfiltered catalog ordering. Unpublished or unknown ids
	// are absent from the result.
	PromptRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	CreatePrompt(ctx context.Context, authorID uuid.UUID, params types.CreatePromptParams) (*types.Prompt, error)
	DeletePrompt(ctx context.Context, kind types.PromptKind, id uuid.UUID) error
}

var catalogColumns = []string{
	"id", "kind", "author_id", "title", "description", "category", "tags",
	"prompt_text", "prompt_json", "segments", "duration",
	"thumbnail_url", "video_url", "is_published", "remixed_from", "created_at", "updated_at",
}

const promptRanksQuery = `SELECT id, rank FROM (
    SELECT id, ROW_NUMBER() OVER (ORDER BY created_at DESC, id) - 1 AS rank
    FROM prompt_catalog
    WHERE is_published
) ranked
WHERE id = ANY($1)`

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepositoryImpl(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// ScanPrompt reads one prompt_catalog row in catalogColumns order.
func ScanPrompt(row pgx.Row) (*types.Prompt, error) {
	var (
		p          types.Prompt
		promptJSON []byte
		segments   []byte
		duration   *float64
	)
	err := row.Scan(
		&p.ID, &p.Kind, &p.AuthorID, &p.Title, &p.Description, &p.Category, &p.Tags,
		&p.PromptText, &promptJSON, &segments, &duration,
		&p.ThumbnailURL, &p.VideoURL, &p.IsPublished, &p.RemixedFrom, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(promptJSON) > 0 {
		p.PromptJSON = json.RawMessage(promptJSON)
	}
	if len(segments) > 0 {
		if err := json.Unmarshal(segments, &p.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline of %s: %w", p.ID, err)
		}
	}
	if duration != nil {
		p.Duration = *duration
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// CatalogColumns returns the prompt_catalog columns, prefixed with alias when set.
func CatalogColumns(alias string) []string {
	if alias == "" {
		return catalogColumns
	}
	cols := make([]string, len(catalogColumns))
	for i, c := range catalogColumns {
		cols[i] = alias + "." + c
	}
	return cols
}

func applyFilter(b squirrel.SelectBuilder, f types.PromptFilter) squirrel.SelectBuilder {
	if f.AuthorID != nil {
		b = b.Where(squirrel.Eq{"author_id": *f.AuthorID})
		if !f.IncludeUnpublished {
			b = b.Where(squirrel.Eq{"is_published": true})
		}
	} else {
		b = b.Where(squirrel.Eq{"is_published": true})
	}
	if f.Kind != "" {
		b = b.Where(squirrel.Eq{"kind": string(f.Kind)})
	}
	if f.Category != "" {
		b = b.Where(squirrel.Eq{"category": f.Category})
	}
	if f.Tag != "" {
		b = b.Where(squirrel.Expr("? = ANY(tags)", strings.ToLower(f.Tag)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := db.ContainsPattern(s)
		b = b.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
			squirrel.ILike{"prompt_text": pattern},
		})
	}
	return b
}

func (r *RepositoryImpl) ListPrompts(ctx context.Context, filter types.PromptFilter) ([]*types.Prompt, error) {
	ctx, span := otel.Tracer("PromptRepo").Start(ctx, "ListPrompts", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "prompt_catalog"),
		attribute.Int("filter.limit", filter.Limit),
		attribute.Int("filter.offset", filter.Offset),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListPrompts"))

	query, args, err := applyFilter(psql.Select(catalogColumns...).From("prompt_catalog"), filter).
		OrderBy("created_at DESC", "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query prompts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error listing prompts: %w", err)
	}
	defer rows.Close()

	prompts := make([]*types.Prompt, 0, filter.Limit)
	for rows.Next() {
		p, err := ScanPrompt(rows)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan prompt row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading prompts: %w", err)
	}

	span.SetAttributes(attribute.Int("prompts.count", len(prompts)))
	span.SetStatus(codes.Ok, "Prompts listed")
	return prompts, nil
}

func (r *RepositoryImpl) CountPrompts(ctx context.Context, filter types.PromptFilter) (int, error) {
	ctx, span := otel.Tracer("PromptRepo").Start(ctx, "CountPrompts", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "prompt_catalog"),
	))
	defer span.End()

	query, args, err := applyFilter(psql.Select("COUNT(*)").From("prompt_catalog"), filter).ToSql()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.pgpool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Failed to count prompts", slog.String("method", "CountPrompts"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return 0, fmt.Errorf("database error counting prompts: %w", err)
	}
	span.SetStatus(codes.Ok, "Prompts counted")
	return total, nil
}

func (r *RepositoryImpl) GetPrompt(ctx context.Context, id uuid.UUID) (*types.Prompt, error) {
	ctx, span := otel.Tracer("PromptRepo").Start(ctx, "GetPrompt", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "prompt_catalog"),
		attribute.String("prompt.id", id.String()),
	))
	defer span.End()

	query, args, err := psql.Select(catalogColumns...).From("prompt_catalog").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get query: %w", err)
	}

	p, err := ScanPrompt(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no prompt")
			return nil, fmt.Errorf("prompt not found: %w", types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to fetch prompt", slog.String("method", "GetPrompt"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Prompt fetched")
	return p, nil
}

func (r *RepositoryImpl) PromptRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	ctx, span := otel.Tracer("PromptRepo").Start(ctx, "PromptRanks", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "prompt_catalog"),
		attribute.Int("prompts.requested", len(ids)),
	))
	defer span.End()

	ranks := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return ranks, nil
	}

	rows, err := r.pgpool.Query(ctx, promptRanksQuery, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error ranking prompts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   uuid.UUID
			rank int
		)
		if err := rows.Scan(&id, &rank); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan prompt rank: %w", err)
		}
		ranks[id] = rank
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB rows iteration failed")
		return nil, fmt.Errorf("error iterating prompt ranks: %w", err)
	}
	span.SetStatus(codes.Ok, "Prompts ranked")
	return ranks, nil
}

func (r *RepositoryImpl) CreatePrompt(ctx context.Context, authorID uuid.UUID, params types.CreatePromptParams) (*types.Prompt, error) {
	ctx, span := otel.Tracer("PromptRepo").Start(ctx, "CreatePrompt", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("prompt.kind", string(params.Kind)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreatePrompt"), slog.String("authorID", authorID.String()))

	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	p := &types.Prompt{
		Kind:         params.Kind,
		AuthorID:     &authorID,
		Title:        params.Title,
		Description:  params.Description,
		Category:     params.Category,
		Tags:         tags,
		ThumbnailURL: params.ThumbnailURL,
		VideoURL:     params.VideoURL,
		IsPublished:  params.IsPublished,
		RemixedFrom:  params.RemixedFrom,
	}

	var insert squirrel.InsertBuilder
	switch params.Kind {
	case types.PromptKindTimeline:
		segments, err := json.Marshal(params.Timeline)
		if err != nil {
			return nil, fmt.Errorf("encode timeline: %w", err)
		}
		p.Timeline = params.Timeline
		p.Duration = TimelineDuration(params.Timeline)
		insert = psql.Insert("timeline_prompts").
			Columns("author_id", "title", "description", "category", "tags", "duration", "segments",
				"thumbnail_url", "video_url", "is_published", "remixed_from").
			Values(authorID, params.Title, params.Description, params.Category, tags, p.Duration, segments,
				params.ThumbnailURL, params.VideoURL, params.IsPublished, params.RemixedFrom)
	default:
		var promptJSON []byte
		if len(params.PromptJSON) > 0 {
			promptJSON = params.PromptJSON
		}
		p.PromptText = params.PromptText
		p.PromptJSON = params.PromptJSON
		insert = psql.Insert("prompts").
			Columns("author_id", "title", "description", "category", "tags", "prompt_text", "prompt_json",
				"thumbnail_url", "video_url", "is_published", "remixed_from").
			Values(authorID, params.Title, params.Description, params.Category, tags, params.PromptText, promptJSON,
				params.ThumbnailURL, params.VideoURL, params.IsPublished, params.RemixedFrom)
	}

	query, args, err := insert.Suffix("RETURNING id, created_at, updated_at").ToSql()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.pgpool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		l.ErrorContext(ctx, "Failed to insert prompt", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error creating prompt: %w", err)
	}

	l.InfoContext(ctx, "Prompt created", slog.String("promptID", p.ID.String()), slog.String("kind", string(p.Kind)))
	span.SetStatus(codes.Ok, "Prompt created")
	return p, nil
}

func (r *RepositoryImpl) DeletePrompt(ctx context.Context, kind types.PromptKind, id uuid.UUID) error {
	ctx, span := otel.Tracer("PromptRepo").Start(ctx, "DeletePrompt", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("prompt.id", id.String()),
	))
	defer span.End()

	table := "prompts"
	if kind == types.PromptKindTimeline {
		table = "timeline_prompts"
	}

	query, args, err := psql.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}
	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("prompt not found: %w", types.ErrNotFound)
	}
	// favorites reference both prompt tables, so they are not cascaded
	if _, err := r.pgpool.Exec(ctx, `DELETE FROM favorites WHERE prompt_id = $1`, id); err != nil {
		r.logger.WarnContext(ctx, "Failed to drop favorites of deleted prompt", slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "Prompt deleted")
	return nil
}

// TimelineDuration is the end of the last segment.
func TimelineDuration(segments []types.TimelineSegment) float64 {
	var end float64
	for _, s := range segments {
		if s.End > end {
			end = s.End
		}
	}
	return end
}
