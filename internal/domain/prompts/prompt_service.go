package prompts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
	maxTitleLength  = 200
	maxTags         = 10
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	ListPrompts(ctx context.Context, viewer *uuid.UUID, filter types.PromptFilter) (*types.PromptPage, error)
	GetPrompt(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*types.Prompt, types.SubscriptionFeatures, error)
	ExportPromptJSON(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) ([]byte, error)
	CreatePrompt(ctx context.Context, viewer uuid.UUID, params types.CreatePromptParams) (*types.Prompt, error)
	RemixPrompt(ctx context.Context, viewer uuid.UUID, id uuid.UUID, overrides types.RemixOverrides) (*types.Prompt, error)
	DeletePrompt(ctx context.Context, viewer uuid.UUID, id uuid.UUID) error
}

// FavoriteLookup reports which of ids the user has favorited.
type FavoriteLookup interface {
	FavoritedAmong(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	features  features.Source
	favorites FavoriteLookup
}

func NewPromptService(repo Repository, source features.Source, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		features: source,
	}
}

// WithFavorites enables IsFavorite marking on listings.
func (s *ServiceImpl) WithFavorites(lookup FavoriteLookup) *ServiceImpl {
	s.favorites = lookup
	return s
}

// Redact applies the gating rules to p as the item at position index of a
// listing. The author of a prompt always sees it in full.
func Redact(p *types.Prompt, f types.SubscriptionFeatures, index int, viewer *uuid.UUID) {
	owner := viewer != nil && p.AuthorID != nil && *p.AuthorID == *viewer
	if !owner && !f.CanViewPromptAt(index) {
		p.Locked = true
		p.PromptText = ""
		p.PromptJSON = nil
		p.Timeline = nil
		return
	}
	if !owner && !f.CanViewJSON {
		p.PromptJSON = nil
	}
}

// RankLookup reports where prompts sit in the unfiltered published catalog.
type RankLookup interface {
	PromptRanks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
}

// RedactListing redacts items by their position in the full published
// catalog, so searches, filters and favorites never pull a prompt into the
// free window. Prompts without a catalog position are locked for everyone but
// their author.
func RedactListing(ctx context.Context, ranks RankLookup, f types.SubscriptionFeatures, viewer *uuid.UUID, items []*types.Prompt) error {
	if f.Unlimited() || f.CanViewAllPrompts {
		for _, p := range items {
			Redact(p, f, 0, viewer)
		}
		return nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, p := range items {
		if !isAuthor(p, viewer) {
			ids = append(ids, p.ID)
		}
	}
	positions := map[uuid.UUID]int{}
	if len(ids) > 0 {
		var err error
		if positions, err = ranks.PromptRanks(ctx, ids); err != nil {
			return fmt.Errorf("error ranking prompts: %w", err)
		}
	}
	for _, p := range items {
		index, ok := positions[p.ID]
		if !ok {
			index = -1
		}
		Redact(p, f, index, viewer)
	}
	return nil
}

func normalizeFilter(f types.PromptFilter, viewer *uuid.UUID) types.PromptFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.IncludeUnpublished = viewer != nil && f.AuthorID != nil && *f.AuthorID == *viewer
	return f
}

func (s *ServiceImpl) ListPrompts(ctx context.Context, viewer *uuid.UUID, filter types.PromptFilter) (*types.PromptPage, error) {
	ctx, span := otel.Tracer("PromptService").Start(ctx, "ListPrompts", trace.WithAttributes(
		attribute.Bool("viewer.anonymous", viewer == nil),
		attribute.String("filter.kind", string(filter.Kind)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ListPrompts"))

	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, fmt.Errorf("unknown prompt kind %q: %w", filter.Kind, types.ErrBadRequest)
	}
	filter = normalizeFilter(filter, viewer)

	f, err := s.features.GetFeatures(ctx, viewer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to resolve features")
		return nil, fmt.Errorf("error resolving features: %w", err)
	}

	var (
		items []*types.Prompt
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.ListPrompts(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountPrompts(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Failed to list prompts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list prompts")
		return nil, fmt.Errorf("error listing prompts: %w", err)
	}

	if err := RedactListing(ctx, s.repo, f, viewer, items); err != nil {
		l.ErrorContext(ctx, "Failed to rank prompts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to rank prompts")
		return nil, err
	}
	s.markFavorites(ctx, viewer, items)

	span.SetAttributes(attribute.Int("prompts.total", total), attribute.Int("prompts.returned", len(items)))
	span.SetStatus(codes.Ok, "Prompts listed")
	return &types.PromptPage{
		Prompts:  items,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
		Features: f,
	}, nil
}

func (s *ServiceImpl) markFavorites(ctx context.Context, viewer *uuid.UUID, items []*types.Prompt) {
	if s.favorites == nil || viewer == nil || len(items) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	marked, err := s.favorites.FavoritedAmong(ctx, *viewer, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to mark favorites", slog.Any("error", err))
		return
	}
	for _, p := range items {
		p.IsFavorite = marked[p.ID]
	}
}

// loadVisible fetches a prompt, hiding unpublished prompts from everyone but
// their author.
func (s *ServiceImpl) loadVisible(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*types.Prompt, error) {
	p, err := s.repo.GetPrompt(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublished && !isAuthor(p, viewer) {
		return nil, fmt.Errorf("prompt not found: %w", types.ErrNotFound)
	}
	return p, nil
}

func isAuthor(p *types.Prompt, viewer *uuid.UUID) bool {
	return viewer != nil && p.AuthorID != nil && *p.AuthorID == *viewer
}

func (s *ServiceImpl) GetPrompt(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) (*types.Prompt, types.SubscriptionFeatures, error) {
	ctx, span := otel.Tracer("PromptService").Start(ctx, "GetPrompt", trace.WithAttributes(
		attribute.String("prompt.id", id.String()),
	))
	defer span.End()

	f, err := s.features.GetFeatures(ctx, viewer)
	if err != nil {
		span.RecordError(err)
		return nil, f, fmt.Errorf("error resolving features: %w", err)
	}

	p, err := s.loadVisible(ctx, viewer, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load prompt")
		return nil, f, fmt.Errorf("error loading prompt: %w", err)
	}

	if err := RedactListing(ctx, s.repo, f, viewer, []*types.Prompt{p}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to rank prompt")
		return nil, f, err
	}
	s.markFavorites(ctx, viewer, []*types.Prompt{p})

	span.SetAttributes(attribute.Bool("prompt.locked", p.Locked))
	span.SetStatus(codes.Ok, "Prompt loaded")
	return p, f, nil
}

type timelineDocument struct {
	Title    string                  `json:"title"`
	Duration float64                 `json:"duration"`
	Segments []types.TimelineSegment `json:"segments"`
}

type regularDocument struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// ExportDocument renders the canonical JSON document of p, indented.
func ExportDocument(p *types.Prompt) ([]byte, error) {
	if p.Kind == types.PromptKindTimeline {
		return json.MarshalIndent(timelineDocument{
			Title:    p.Title,
			Duration: p.Duration,
			Segments: p.Timeline,
		}, "", "  ")
	}
	if len(p.PromptJSON) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, p.PromptJSON, "", "  "); err != nil {
			return nil, fmt.Errorf("stored prompt json is invalid: %w", err)
		}
		return buf.Bytes(), nil
	}
	return json.MarshalIndent(regularDocument{Title: p.Title, Prompt: p.PromptText}, "", "  ")
}

func (s *ServiceImpl) ExportPromptJSON(ctx context.Context, viewer *uuid.UUID, id uuid.UUID) ([]byte, error) {
	ctx, span := otel.Tracer("PromptService").Start(ctx, "ExportPromptJSON", trace.WithAttributes(
		attribute.String("prompt.id", id.String()),
	))
	defer span.End()

	f, err := s.features.GetFeatures(ctx, viewer)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error resolving features: %w", err)
	}
	if err := f.Require(types.FeatureViewJSON); err != nil {
		span.SetStatus(codes.Error, "upgrade required")
		return nil, err
	}

	p, err := s.loadVisible(ctx, viewer, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load prompt")
		return nil, fmt.Errorf("error loading prompt: %w", err)
	}

	doc, err := ExportDocument(p)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to render prompt document", slog.String("promptID", id.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Prompt exported")
	return doc, nil
}

func (s *ServiceImpl) CreatePrompt(ctx context.Context, viewer uuid.UUID, params types.CreatePromptParams) (*types.Prompt, error) {
	ctx, span := otel.Tracer("PromptService").Start(ctx, "CreatePrompt", trace.WithAttributes(
		attribute.String("user.id", viewer.String()),
	))
	defer span.End()

	f, err := s.features.GetFeatures(ctx, &viewer)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error resolving features: %w", err)
	}
	if err := f.Require(types.FeatureCreate); err != nil {
		span.SetStatus(codes.Error, "upgrade required")
		return nil, err
	}

	params, err = ValidateCreate(params)
	if err != nil {
		span.SetStatus(codes.Error, "invalid params")
		return nil, err
	}

	p, err := s.repo.CreatePrompt(ctx, viewer, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create prompt")
		return nil, fmt.Errorf("error creating prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Prompt created")
	return p, nil
}

func (s *ServiceImpl) RemixPrompt(ctx context.Context, viewer uuid.UUID, id uuid.UUID, overrides types.RemixOverrides) (*types.Prompt, error) {
	ctx, span := otel.Tracer("PromptService").Start(ctx, "RemixPrompt", trace.WithAttributes(
		attribute.String("user.id", viewer.String()),
		attribute.String("prompt.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RemixPrompt"), slog.String("promptID", id.String()))

	f, err := s.features.GetFeatures(ctx, &viewer)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error resolving features: %w", err)
	}
	if err := f.Require(types.FeatureRemix); err != nil {
		span.SetStatus(codes.Error, "upgrade required")
		return nil, err
	}

	src, err := s.loadVisible(ctx, &viewer, id)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error loading remix source: %w", err)
	}

	params := types.CreatePromptParams{
		Kind:         src.Kind,
		Title:        src.Title + " (remix)",
		Description:  src.Description,
		Category:     src.Category,
		Tags:         append([]string(nil), src.Tags...),
		PromptText:   src.PromptText,
		PromptJSON:   src.PromptJSON,
		Timeline:     append([]types.TimelineSegment(nil), src.Timeline...),
		ThumbnailURL: src.ThumbnailURL,
		VideoURL:     src.VideoURL,
		IsPublished:  false,
		RemixedFrom:  &src.ID,
	}
	if overrides.Title != nil {
		params.Title = *overrides.Title
	}
	if overrides.PromptText != nil {
		params.PromptText = *overrides.PromptText
	}
	if len(overrides.PromptJSON) > 0 {
		params.PromptJSON = overrides.PromptJSON
	}
	if overrides.Tags != nil {
		params.Tags = overrides.Tags
	}

	params, err = ValidateCreate(params)
	if err != nil {
		span.SetStatus(codes.Error, "invalid overrides")
		return nil, err
	}

	p, err := s.repo.CreatePrompt(ctx, viewer, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to store remix", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to remix prompt")
		return nil, fmt.Errorf("error remixing prompt: %w", err)
	}
	l.InfoContext(ctx, "Prompt remixed", slog.String("remixID", p.ID.String()))
	span.SetStatus(codes.Ok, "Prompt remixed")
	return p, nil
}

func (s *ServiceImpl) DeletePrompt(ctx context.Context, viewer uuid.UUID, id uuid.UUID) error {
	ctx, span := otel.Tracer("PromptService").Start(ctx, "DeletePrompt", trace.WithAttributes(
		attribute.String("prompt.id", id.String()),
	))
	defer span.End()

	p, err := s.repo.GetPrompt(ctx, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error loading prompt: %w", err)
	}
	if !isAuthor(p, &viewer) {
		span.SetStatus(codes.Error, "not the owner")
		return fmt.Errorf("only the author can delete a prompt: %w", types.ErrForbidden)
	}
	if err := s.repo.DeletePrompt(ctx, p.Kind, id); err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to delete prompt", slog.String("promptID", id.String()), slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete prompt")
		return fmt.Errorf("error deleting prompt: %w", err)
	}
	span.SetStatus(codes.Ok, "Prompt deleted")
	return nil
}

// ValidateCreate checks and normalizes new prompt params.
func ValidateCreate(p types.CreatePromptParams) (types.CreatePromptParams, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return p, fmt.Errorf("title is required: %w", types.ErrBadRequest)
	}
	if utf8.RuneCountInString(p.Title) > maxTitleLength {
		return p, fmt.Errorf("title exceeds %d characters: %w", maxTitleLength, types.ErrBadRequest)
	}
	if p.Kind == "" {
		p.Kind = types.PromptKindRegular
	}
	if !p.Kind.Valid() {
		return p, fmt.Errorf("unknown prompt kind %q: %w", p.Kind, types.ErrBadRequest)
	}
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	tags, err := normalizeTags(p.Tags)
	if err != nil {
		return p, err
	}
	p.Tags = tags

	switch p.Kind {
	case types.PromptKindTimeline:
		if err := validateTimeline(p.Timeline); err != nil {
			return p, err
		}
		p.PromptText = ""
		p.PromptJSON = nil
	default:
		p.PromptText = strings.TrimSpace(p.PromptText)
		if len(p.PromptJSON) > 0 {
			trimmed := bytes.TrimSpace(p.PromptJSON)
			if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '{' {
				return p, fmt.Errorf("prompt_json must be a JSON object: %w", types.ErrBadRequest)
			}
			p.PromptJSON = json.RawMessage(trimmed)
		}
		if p.PromptText == "" && len(p.PromptJSON) == 0 {
			return p, fmt.Errorf("prompt_text or prompt_json is required: %w", types.ErrBadRequest)
		}
		p.Timeline = nil
	}
	return p, nil
}

func normalizeTags(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, fmt.Errorf("at most %d tags: %w", maxTags, types.ErrBadRequest)
	}
	return out, nil
}

func validateTimeline(segments []types.TimelineSegment) error {
	if len(segments) == 0 {
		return fmt.Errorf("timeline needs at least one segment: %w", types.ErrBadRequest)
	}
	prevEnd := 0.0
	for i, seg := range segments {
		switch {
		case seg.Start < 0:
			return fmt.Errorf("segment %d starts before 0: %w", i, types.ErrBadRequest)
		case seg.End <= seg.Start:
			return fmt.Errorf("segment %d must end after it starts: %w", i, types.ErrBadRequest)
		case seg.Start < prevEnd:
			return fmt.Errorf("segment %d overlaps the previous one: %w", i, types.ErrBadRequest)
		case strings.TrimSpace(seg.Scene) == "":
			return fmt.Errorf("segment %d has no scene: %w", i, types.ErrBadRequest)
		}
		prevEnd = seg.End
	}
	return nil
}
