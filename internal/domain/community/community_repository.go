package community

import (
	"context"
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
	List(ctx context.Context, status types.CommunityStatus, filter types.CommunityFilter) ([]*types.CommunityPrompt, int, error)
	Get(ctx context.Context, id uuid.UUID) (*types.CommunityPrompt, error)
	Create(ctx context.Context, submittedBy uuid.UUID, params types.SubmitCommunityPromptParams) (*types.CommunityPrompt, error)
	// Like increments the likes of an approved prompt and returns the new count.
	Like(ctx context.Context, id uuid.UUID) (int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status types.CommunityStatus) error
}

var communityColumns = []string{
	"id", "submitted_by", "title", "description", "prompt_text", "author_name", "source_url",
	"category", "tags", "status", "likes", "created_at", "updated_at",
}

const (
	likeQuery = `UPDATE community_prompts SET likes = likes + 1, updated_at = NOW()
WHERE id = $1 AND status = 'approved'
RETURNING likes`

	setStatusQuery = `UPDATE community_prompts SET status = $2, updated_at = NOW() WHERE id = $1`
)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepositoryImpl(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func scanCommunityPrompt(row pgx.Row) (*types.CommunityPrompt, error) {
	var p types.CommunityPrompt
	err := row.Scan(&p.ID, &p.SubmittedBy, &p.Title, &p.Description, &p.PromptText, &p.AuthorName, &p.SourceURL,
		&p.Category, &p.Tags, &p.Status, &p.Likes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func applyCommunityFilter(b squirrel.SelectBuilder, status types.CommunityStatus, f types.CommunityFilter) squirrel.SelectBuilder {
	b = b.Where(squirrel.Eq{"status": string(status)})
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

func (r *RepositoryImpl) List(ctx context.Context, status types.CommunityStatus, filter types.CommunityFilter) ([]*types.CommunityPrompt, int, error) {
	ctx, span := otel.Tracer("CommunityRepo").Start(ctx, "List", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "community_prompts"),
		attribute.String("community.status", string(status)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "List"))

	countQuery, countArgs, err := applyCommunityFilter(psql.Select("COUNT(*)").From("community_prompts"), status, filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := r.pgpool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		l.ErrorContext(ctx, "Failed to count community prompts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error counting community prompts: %w", err)
	}

	order := []string{"created_at DESC", "id"}
	if filter.SortBy == "popular" {
		order = []string{"likes DESC", "created_at DESC", "id"}
	}
	query, args, err := applyCommunityFilter(psql.Select(communityColumns...).From("community_prompts"), status, filter).
		OrderBy(order...).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query community prompts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, 0, fmt.Errorf("database error listing community prompts: %w", err)
	}
	defer rows.Close()

	out := make([]*types.CommunityPrompt, 0, filter.Limit)
	for rows.Next() {
		p, err := scanCommunityPrompt(rows)
		if err != nil {
			span.RecordError(err)
			return nil, 0, fmt.Errorf("database error scanning community prompt: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("database error reading community prompts: %w", err)
	}

	span.SetStatus(codes.Ok, "Community prompts listed")
	return out, total, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*types.CommunityPrompt, error) {
	ctx, span := otel.Tracer("CommunityRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "community_prompts"),
	))
	defer span.End()

	query, args, err := psql.Select(communityColumns...).From("community_prompts").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get query: %w", err)
	}
	p, err := scanCommunityPrompt(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("community prompt not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching community prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Community prompt fetched")
	return p, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, submittedBy uuid.UUID, params types.SubmitCommunityPromptParams) (*types.CommunityPrompt, error) {
	ctx, span := otel.Tracer("CommunityRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "community_prompts"),
	))
	defer span.End()

	query, args, err := psql.Insert("community_prompts").
		Columns("submitted_by", "title", "description", "prompt_text", "author_name", "source_url", "category", "tags", "status").
		Values(submittedBy, params.Title, params.Description, params.PromptText, params.AuthorName, params.SourceURL,
			params.Category, params.Tags, string(types.CommunityPending)).
		Suffix("RETURNING " + strings.Join(communityColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	p, err := scanCommunityPrompt(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert community prompt", slog.String("method", "Create"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error submitting community prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Community prompt submitted")
	return p, nil
}

func (r *RepositoryImpl) Like(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, span := otel.Tracer("CommunityRepo").Start(ctx, "Like", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "community_prompts"),
	))
	defer span.End()

	var likes int
	if err := r.pgpool.QueryRow(ctx, likeQuery, id).Scan(&likes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("community prompt not found: %w", types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return 0, fmt.Errorf("database error liking community prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Community prompt liked")
	return likes, nil
}

func (r *RepositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, status types.CommunityStatus) error {
	ctx, span := otel.Tracer("CommunityRepo").Start(ctx, "SetStatus", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("community.status", string(status)),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, setStatusQuery, id, string(status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return fmt.Errorf("database error moderating community prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("community prompt not found: %w", types.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "Community prompt moderated")
	return nil
}
