package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/common"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/db"
)

// NewUser holds what is known about a user at sign-up. PasswordHash is nil
// for accounts created through an OAuth provider.
type NewUser struct {
	Email        string
	PasswordHash *string
	DisplayName  *string
	AvatarURL    *string
}

// AuthRepository persists users, refresh sessions and OAuth identities.
type AuthRepository interface {
	// CreateUser inserts the user, its profile and a free subscription in one transaction.
	CreateUser(ctx context.Context, u NewUser) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error

	CreateUserSession(ctx context.Context, userID uuid.UUID, hashedRefreshToken, userAgent, clientIP string, expiresAt time.Time) (*types.UserSession, error)
	// ConsumeUserSession revokes a live session and returns its owner in one
	// statement, so a refresh token can be redeemed at most once.
	ConsumeUserSession(ctx context.Context, hashedToken string) (uuid.UUID, error)
	RevokeUserSession(ctx context.Context, hashedToken string) error
	RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error

	GetUserByOAuthIdentity(ctx context.Context, provider, providerUserID string) (*types.User, error)
	LinkOAuthIdentity(ctx context.Context, identity types.OAuthIdentity) error
}

var _ AuthRepository = (*PostgresAuthRepository)(nil)

const (
	userColumns = `id, email, password_hash, display_name, avatar_url, role, is_active, last_login_at, created_at, updated_at`

	createUserQuery = `INSERT INTO users (email, password_hash, display_name, avatar_url)
VALUES ($1, $2, $3, $4)
RETURNING ` + userColumns

	createProfileQuery = `INSERT INTO profiles (id, email, display_name, avatar_url, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

	createDefaultSubscriptionQuery = `INSERT INTO subscriptions (user_id, plan, status)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`

	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	updateLastLoginQuery = `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`

	createSessionQuery = `INSERT INTO user_sessions (user_id, refresh_token_hash, user_agent, client_ip, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	consumeSessionQuery = `UPDATE user_sessions SET revoked_at = NOW()
WHERE refresh_token_hash = $1 AND revoked_at IS NULL AND expires_at > NOW()
RETURNING user_id`

	revokeSessionQuery     = `UPDATE user_sessions SET revoked_at = NOW() WHERE refresh_token_hash = $1 AND revoked_at IS NULL`
	revokeAllSessionsQuery = `UPDATE user_sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`

	getUserByOAuthQuery = `SELECT u.id, u.email, u.password_hash, u.display_name, u.avatar_url, u.role, u.is_active,
       u.last_login_at, u.created_at, u.updated_at
FROM user_oauth_identities oi
JOIN users u ON u.id = oi.user_id
WHERE oi.provider = $1 AND oi.provider_user_id = $2`

	linkOAuthQuery = `INSERT INTO user_oauth_identities (provider, provider_user_id, user_id, email)
VALUES ($1, $2, $3, $4)
ON CONFLICT (provider, provider_user_id) DO UPDATE SET email = EXCLUDED.email`
)

type PostgresAuthRepository struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewPostgresAuthRepository(pgpool db.Querier, logger *slog.Logger) *PostgresAuthRepository {
	return &PostgresAuthRepository{logger: logger, pgpool: pgpool}
}

func startSpan(ctx context.Context, method, table string) (context.Context, trace.Span) {
	return otel.Tracer("AuthRepo").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
	))
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	if err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL,
		&u.Role, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresAuthRepository) CreateUser(ctx context.Context, nu NewUser) (*types.User, error) {
	ctx, span := startSpan(ctx, "CreateUser", "users")
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateUser"))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(ctx)
	}()

	email := strings.TrimSpace(nu.Email)
	user, err := scanUser(tx.QueryRow(ctx, createUserQuery, email, nu.PasswordHash, nu.DisplayName, nu.AvatarURL))
	if err != nil {
		if db.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate email")
			return nil, common.ErrUserAlreadyExists
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert user failed")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.Exec(ctx, createProfileQuery, user.ID, user.Email, user.DisplayName, user.AvatarURL, user.Role); err != nil {
		l.ErrorContext(ctx, "Failed to insert profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert profile failed")
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if _, err := tx.Exec(ctx, createDefaultSubscriptionQuery, user.ID, types.PlanFree, types.StatusIncomplete); err != nil {
		l.ErrorContext(ctx, "Failed to insert default subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert subscription failed")
		return nil, fmt.Errorf("failed to create default subscription: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	l.InfoContext(ctx, "User provisioned", slog.String("user_id", user.ID.String()))
	span.SetStatus(codes.Ok, "User created")
	return user, nil
}

func (r *PostgresAuthRepository) getUser(ctx context.Context, method, query string, args ...any) (*types.User, error) {
	ctx, span := startSpan(ctx, method, "users")
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no user")
			return nil, common.ErrUserNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to fetch user", slog.String("method", method), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	span.SetStatus(codes.Ok, "User fetched")
	return user, nil
}

func (r *PostgresAuthRepository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return r.getUser(ctx, "GetUserByEmail", getUserByEmailQuery, strings.TrimSpace(email))
}

func (r *PostgresAuthRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return r.getUser(ctx, "GetUserByID", getUserByIDQuery, userID)
}

func (r *PostgresAuthRepository) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	ctx, span := startSpan(ctx, "UpdateLastLogin", "users")
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, updateLastLoginQuery, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrUserNotFound
	}
	span.SetStatus(codes.Ok, "Last login updated")
	return nil
}

func (r *PostgresAuthRepository) CreateUserSession(ctx context.Context, userID uuid.UUID, hashedRefreshToken, userAgent, clientIP string, expiresAt time.Time) (*types.UserSession, error) {
	ctx, span := startSpan(ctx, "CreateUserSession", "user_sessions")
	defer span.End()

	session := &types.UserSession{
		UserID:           userID,
		RefreshTokenHash: hashedRefreshToken,
		UserAgent:        userAgent,
		ClientIP:         clientIP,
		ExpiresAt:        expiresAt,
	}
	err := r.pgpool.QueryRow(ctx, createSessionQuery, userID, hashedRefreshToken, userAgent, clientIP, expiresAt).
		Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create session", slog.String("method", "CreateUserSession"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	span.SetStatus(codes.Ok, "Session created")
	return session, nil
}

func (r *PostgresAuthRepository) ConsumeUserSession(ctx context.Context, hashedToken string) (uuid.UUID, error) {
	ctx, span := startSpan(ctx, "ConsumeUserSession", "user_sessions")
	defer span.End()

	var userID uuid.UUID
	if err := r.pgpool.QueryRow(ctx, consumeSessionQuery, hashedToken).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no live session")
			return uuid.Nil, common.ErrSessionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return uuid.Nil, fmt.Errorf("failed to consume session: %w", err)
	}
	span.SetStatus(codes.Ok, "Session consumed")
	return userID, nil
}

func (r *PostgresAuthRepository) RevokeUserSession(ctx context.Context, hashedToken string) error {
	ctx, span := startSpan(ctx, "RevokeUserSession", "user_sessions")
	defer span.End()

	if _, err := r.pgpool.Exec(ctx, revokeSessionQuery, hashedToken); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	span.SetStatus(codes.Ok, "Session revoked")
	return nil
}

func (r *PostgresAuthRepository) RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	ctx, span := startSpan(ctx, "RevokeAllUserSessions", "user_sessions")
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, revokeAllSessionsQuery, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	span.SetAttributes(attribute.Int64("sessions.revoked", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "Sessions revoked")
	return nil
}

func (r *PostgresAuthRepository) GetUserByOAuthIdentity(ctx context.Context, provider, providerUserID string) (*types.User, error) {
	return r.getUser(ctx, "GetUserByOAuthIdentity", getUserByOAuthQuery, provider, providerUserID)
}

func (r *PostgresAuthRepository) LinkOAuthIdentity(ctx context.Context, identity types.OAuthIdentity) error {
	ctx, span := startSpan(ctx, "LinkOAuthIdentity", "user_oauth_identities")
	defer span.End()

	_, err := r.pgpool.Exec(ctx, linkOAuthQuery, identity.Provider, identity.ProviderUserID, identity.UserID, identity.Email)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to link oauth identity",
			slog.String("method", "LinkOAuthIdentity"),
			slog.String("provider", identity.Provider),
			slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("failed to link oauth identity: %w", err)
	}
	span.SetStatus(codes.Ok, "Identity linked")
	return nil
}
