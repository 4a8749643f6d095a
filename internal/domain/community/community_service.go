package community

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
	maxTitleLength  = 200
	maxPromptLength = 10000
	maxTags         = 15
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// List returns approved prompts only.
	List(ctx context.Context, filter types.CommunityFilter) ([]*types.CommunityPrompt, int, error)
	// ListByStatus is the moderation queue.
	ListByStatus(ctx context.Context, status types.CommunityStatus, filter types.CommunityFilter) ([]*types.CommunityPrompt, int, error)
	Submit(ctx context.Context, userID uuid.UUID, params types.SubmitCommunityPromptParams) (*types.CommunityPrompt, error)
	Like(ctx context.Context, id uuid.UUID) (int, error)
	Moderate(ctx context.Context, id uuid.UUID, status types.CommunityStatus) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewCommunityService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo}
}

func normalizeFilter(f types.CommunityFilter) types.CommunityFilter {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.SortBy != "popular" {
		f.SortBy = "recent"
	}
	return f
}

func (s *ServiceImpl) List(ctx context.Context, filter types.CommunityFilter) ([]*types.CommunityPrompt, int, error) {
	return s.ListByStatus(ctx, types.CommunityApproved, filter)
}

func (s *ServiceImpl) ListByStatus(ctx context.Context, status types.CommunityStatus, filter types.CommunityFilter) ([]*types.CommunityPrompt, int, error) {
	ctx, span := otel.Tracer("CommunityService").Start(ctx, "ListByStatus", trace.WithAttributes(
		attribute.String("community.status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", status, types.ErrBadRequest)
	}
	items, total, err := s.repo.List(ctx, status, normalizeFilter(filter))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list community prompts")
		return nil, 0, fmt.Errorf("error listing community prompts: %w", err)
	}
	span.SetStatus(codes.Ok, "Community prompts listed")
	return items, total, nil
}

// Submit stores a pending prompt. Tags found in the text are merged with the
// submitted ones.
func (s *ServiceImpl) Submit(ctx context.Context, userID uuid.UUID, params types.SubmitCommunityPromptParams) (*types.CommunityPrompt, error) {
	ctx, span := otel.Tracer("CommunityService").Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Submit"), slog.String("userID", userID.String()))

	params, err := normalizeSubmission(params)
	if err != nil {
		span.SetStatus(codes.Error, "invalid submission")
		return nil, err
	}

	p, err := s.repo.Create(ctx, userID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to submit")
		return nil, fmt.Errorf("error submitting community prompt: %w", err)
	}
	l.InfoContext(ctx, "Community prompt submitted", slog.String("id", p.ID.String()), slog.Any("tags", p.Tags))
	span.SetStatus(codes.Ok, "Community prompt submitted")
	return p, nil
}

func normalizeSubmission(p types.SubmitCommunityPromptParams) (types.SubmitCommunityPromptParams, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.PromptText = strings.TrimSpace(p.PromptText)
	p.Description = strings.TrimSpace(p.Description)
	p.AuthorName = strings.TrimSpace(p.AuthorName)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))

	switch {
	case p.Title == "":
		return p, fmt.Errorf("title is required: %w", types.ErrBadRequest)
	case utf8.RuneCountInString(p.Title) > maxTitleLength:
		return p, fmt.Errorf("title exceeds %d characters: %w", maxTitleLength, types.ErrBadRequest)
	case p.PromptText == "":
		return p, fmt.Errorf("prompt_text is required: %w", types.ErrBadRequest)
	case utf8.RuneCountInString(p.PromptText) > maxPromptLength:
		return p, fmt.Errorf("prompt_text exceeds %d characters: %w", maxPromptLength, types.ErrBadRequest)
	}
	if p.AuthorName == "" {
		p.AuthorName = "Anonymous"
	}
	if p.SourceURL != nil {
		src := strings.TrimSpace(*p.SourceURL)
		if src == "" {
			p.SourceURL = nil
		} else {
			u, err := url.Parse(src)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return p, fmt.Errorf("source_url must be an http(s) url: %w", types.ErrBadRequest)
			}
			p.SourceURL = &src
		}
	}

	p.Tags = MergeTags(p.Tags, DetectTags(p.Title+"\n"+p.Description+"\n"+p.PromptText))
	if len(p.Tags) > maxTags {
		p.Tags = p.Tags[:maxTags]
	}
	return p, nil
}

func (s *ServiceImpl) Like(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, span := otel.Tracer("CommunityService").Start(ctx, "Like", trace.WithAttributes(
		attribute.String("community.id", id.String()),
	))
	defer span.End()

	likes, err := s.repo.Like(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to like")
		return 0, fmt.Errorf("error liking community prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Liked")
	return likes, nil
}

func (s *ServiceImpl) Moderate(ctx context.Context, id uuid.UUID, status types.CommunityStatus) error {
	ctx, span := otel.Tracer("CommunityService").Start(ctx, "Moderate", trace.WithAttributes(
		attribute.String("community.id", id.String()),
		attribute.String("community.status", string(status)),
	))
	defer span.End()

	if !status.Valid() {
		return fmt.Errorf("unknown status %q: %w", status, types.ErrBadRequest)
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to moderate")
		return fmt.Errorf("error moderating community prompt: %w", err)
	}
	s.logger.InfoContext(ctx, "Community prompt moderated", slog.String("id", id.String()), slog.String("status", string(status)))
	span.SetStatus(codes.Ok, "Moderated")
	return nil
}
