package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	AddFavorite(ctx context.Context, userID, promptID uuid.UUID) error
	RemoveFavorite(ctx context.Context, userID, promptID uuid.UUID) error
	ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) (*types.PromptPage, error)
	IsFavorite(ctx context.Context, userID, promptID uuid.UUID) (bool, error)
}

// PromptLookup loads prompts and their catalog positions.
type PromptLookup interface {
	prompts.RankLookup
	GetPrompt(ctx context.Context, id uuid.UUID) (*types.Prompt, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	prompts  PromptLookup
	features features.Source
}

func NewFavoriteService(repo Repository, lookup PromptLookup, source features.Source, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		prompts:  lookup,
		features: source,
	}
}

func (s *ServiceImpl) require(ctx context.Context, userID uuid.UUID) (types.SubscriptionFeatures, error) {
	f, err := s.features.GetFeatures(ctx, &userID)
	if err != nil {
		return f, fmt.Errorf("error resolving features: %w", err)
	}
	return f, f.Require(types.FeatureFavorite)
}

// AddFavorite is idempotent.
func (s *ServiceImpl) AddFavorite(ctx context.Context, userID, promptID uuid.UUID) error {
	ctx, span := otel.Tracer("FavoriteService").Start(ctx, "AddFavorite", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("prompt.id", promptID.String()),
	))
	defer span.End()

	if _, err := s.require(ctx, userID); err != nil {
		span.SetStatus(codes.Error, "not allowed")
		return err
	}

	p, err := s.prompts.GetPrompt(ctx, promptID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error loading prompt: %w", err)
	}
	if !p.IsPublished && (p.AuthorID == nil || *p.AuthorID != userID) {
		return fmt.Errorf("prompt not found: %w", types.ErrNotFound)
	}

	added, err := s.repo.AddFavorite(ctx, userID, promptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to add favorite")
		return fmt.Errorf("error adding favorite: %w", err)
	}
	span.SetAttributes(attribute.Bool("favorite.new", added))
	span.SetStatus(codes.Ok, "Favorite added")
	return nil
}

func (s *ServiceImpl) RemoveFavorite(ctx context.Context, userID, promptID uuid.UUID) error {
	ctx, span := otel.Tracer("FavoriteService").Start(ctx, "RemoveFavorite", trace.WithAttributes(
		attribute.String("prompt.id", promptID.String()),
	))
	defer span.End()

	if _, err := s.require(ctx, userID); err != nil {
		span.SetStatus(codes.Error, "not allowed")
		return err
	}
	if err := s.repo.RemoveFavorite(ctx, userID, promptID); err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.logger.ErrorContext(ctx, "Failed to remove favorite", slog.String("method", "RemoveFavorite"), slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to remove favorite")
		return fmt.Errorf("error removing favorite: %w", err)
	}
	span.SetStatus(codes.Ok, "Favorite removed")
	return nil
}

// ListFavorites is available on every plan so downgraded users keep seeing
// what they saved, redacted like any other listing.
func (s *ServiceImpl) ListFavorites(ctx context.Context, userID uuid.UUID, limit, offset int) (*types.PromptPage, error) {
	ctx, span := otel.Tracer("FavoriteService").Start(ctx, "ListFavorites", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if limit <= 0 {
		limit = prompts.DefaultPageSize
	}
	if limit > prompts.MaxPageSize {
		limit = prompts.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	f, err := s.features.GetFeatures(ctx, &userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error resolving features: %w", err)
	}

	items, total, err := s.repo.ListFavorites(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list favorites")
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	if err := prompts.RedactListing(ctx, s.prompts, f, &userID, items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to rank favorites")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Favorites listed")
	return &types.PromptPage{Prompts: items, Total: total, Limit: limit, Offset: offset, Features: f}, nil
}

func (s *ServiceImpl) IsFavorite(ctx context.Context, userID, promptID uuid.UUID) (bool, error) {
	ok, err := s.repo.IsFavorite(ctx, userID, promptID)
	if err != nil {
		return false, fmt.Errorf("error checking favorite: %w", err)
	}
	return ok, nil
}
