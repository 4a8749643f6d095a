package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

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

var _ types.ProfileRepository = (*RepositoryImpl)(nil)

const (
	getProfileQuery = `SELECT id, email, username, display_name, avatar_url, bio, website, role, created_at, updated_at
FROM profiles
WHERE id = $1`

	// ensureProfileQuery backfills a profile for users created before
	// provisioning moved into the sign-up transaction.
	ensureProfileQuery = `INSERT INTO profiles (id, email, display_name, avatar_url, role)
SELECT id, email, display_name, avatar_url, role FROM users WHERE id = $1
ON CONFLICT (id) DO NOTHING`
)

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewPostgresProfileRepo(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "profiles"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetProfile"), slog.String("userID", userID.String()))

	var p types.Profile
	err := r.pgpool.QueryRow(ctx, getProfileQuery, userID).Scan(
		&p.ID, &p.Email, &p.Username, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.Website, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no profile")
			return nil, fmt.Errorf("profile not found: %w", types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to fetch profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	return &p, nil
}

// EnsureProfile creates the profile row from the user record when it is
// missing and returns it.
func (r *RepositoryImpl) EnsureProfile(ctx context.Context, userID uuid.UUID) (*types.Profile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "EnsureProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "profiles"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "EnsureProfile"), slog.String("userID", userID.String()))

	tag, err := r.pgpool.Exec(ctx, ensureProfileQuery, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to backfill profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error creating profile: %w", err)
	}
	if tag.RowsAffected() > 0 {
		l.InfoContext(ctx, "Backfilled missing profile")
	}

	span.SetStatus(codes.Ok, "Profile ensured")
	return r.GetProfile(ctx, userID)
}

// UpdateProfile applies the set fields. Display name and avatar are mirrored
// onto the user record in the same transaction.
func (r *RepositoryImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) error {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "profiles"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	if params.Empty() {
		span.SetStatus(codes.Ok, "nothing to update")
		return nil
	}

	updateBuilder := squirrel.Update("profiles").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"id": userID})
	userBuilder := squirrel.Update("users").
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{"id": userID})

	var set, mirrored bool
	if updateBuilder, set = setOptional(updateBuilder, "username", params.Username); set {
		span.SetAttributes(attribute.Bool("update.username", true))
	}
	updateBuilder, _ = setOptional(updateBuilder, "bio", params.Bio)
	updateBuilder, _ = setOptional(updateBuilder, "website", params.Website)
	if updateBuilder, set = setOptional(updateBuilder, "display_name", params.DisplayName); set {
		userBuilder, _ = setOptional(userBuilder, "display_name", params.DisplayName)
		mirrored = true
	}
	if updateBuilder, set = setOptional(updateBuilder, "avatar_url", params.AvatarURL); set {
		userBuilder, _ = setOptional(userBuilder, "avatar_url", params.AvatarURL)
		mirrored = true
	}
	updateBuilder = updateBuilder.Set("updated_at", squirrel.Expr("NOW()"))

	query, args, err := updateBuilder.ToSql()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		rollback(ctx, tx, l)
		if db.IsUniqueViolation(err) {
			l.WarnContext(ctx, "Username already taken", slog.Any("error", err))
			span.SetStatus(codes.Error, "Username conflict")
			return fmt.Errorf("username already taken: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to update profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		rollback(ctx, tx, l)
		span.SetStatus(codes.Error, "profile missing")
		return fmt.Errorf("profile not found: %w", types.ErrNotFound)
	}

	if mirrored {
		userQuery, userArgs, err := userBuilder.Set("updated_at", squirrel.Expr("NOW()")).ToSql()
		if err != nil {
			rollback(ctx, tx, l)
			return fmt.Errorf("failed to build user update query: %w", err)
		}
		if _, err := tx.Exec(ctx, userQuery, userArgs...); err != nil {
			rollback(ctx, tx, l)
			l.ErrorContext(ctx, "Failed to mirror profile onto user", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB update failed")
			return fmt.Errorf("database error updating user: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("failed to commit profile update: %w", err)
	}

	l.InfoContext(ctx, "Profile updated")
	span.SetStatus(codes.Ok, "Profile updated")
	return nil
}
