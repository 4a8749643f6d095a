package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

const maxBioLength = 500

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// GetProfile never fails with ErrNotFound for an existing user: a missing
	// profile row is recreated from the user record.
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.Profile, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   types.ProfileRepository
}

func NewUserProfilesService(repo types.ProfileRepository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func (s *ServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetProfile"), slog.String("userID", userID.String()))

	profile, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, types.ErrNotFound) {
		l.WarnContext(ctx, "Profile missing, creating from user record")
		profile, err = s.repo.EnsureProfile(ctx, userID)
	}
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to load profile", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load profile")
		return nil, fmt.Errorf("error loading profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile loaded")
	return profile, nil
}

func (s *ServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	params, err := normalizeUpdate(params)
	if err != nil {
		span.SetStatus(codes.Error, "invalid params")
		return nil, err
	}

	if !params.Empty() {
		// the row may predate sign-up provisioning
		if _, err := s.GetProfile(ctx, userID); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if err := s.repo.UpdateProfile(ctx, userID, params); err != nil {
			if !errors.Is(err, types.ErrConflict) {
				l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to update profile")
			return nil, fmt.Errorf("error updating profile: %w", err)
		}
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return s.GetProfile(ctx, userID)
}

func normalizeUpdate(p types.UpdateProfileParams) (types.UpdateProfileParams, error) {
	if p.Username != nil {
		u := strings.ToLower(strings.TrimSpace(*p.Username))
		if u != "" && !usernamePattern.MatchString(u) {
			return p, fmt.Errorf("username must be 3-30 lowercase letters, digits or underscores: %w", types.ErrBadRequest)
		}
		p.Username = &u
	}
	if p.Website != nil {
		w := strings.TrimSpace(*p.Website)
		if w != "" {
			parsed, err := url.Parse(w)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return p, fmt.Errorf("website must be an http(s) url: %w", types.ErrBadRequest)
			}
		}
	}
	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > maxBioLength {
		return p, fmt.Errorf("bio exceeds %d characters: %w", maxBioLength, types.ErrBadRequest)
	}
	return p, nil
}
