package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/common"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/repository"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
	UserAgent   string
	ClientIP    string
}

type LoginParams struct {
	Email     string
	Password  string
	UserAgent string
	ClientIP  string
}

// OAuthParams is the provider profile returned by a completed OAuth flow.
type OAuthParams struct {
	Provider       string
	ProviderUserID string
	Email          string
	DisplayName    string
	AvatarURL      string
	UserAgent      string
	ClientIP       string
}

// AuthResult is returned by every successful sign-in.
type AuthResult struct {
	User   *types.User
	Tokens *types.TokenPair
}

type AuthService struct {
	repo       repository.AuthRepository
	tokens     TokenManager
	logger     *slog.Logger
	refreshTTL time.Duration
}

func NewAuthService(repo repository.AuthRepository, tokenManager TokenManager, logger *slog.Logger, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       repo,
		tokens:     tokenManager,
		logger:     logger,
		refreshTTL: refreshTTL,
	}
}

// HashToken is how refresh tokens are stored in user_sessions.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *AuthService) RegisterUser(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RegisterUser")
	defer span.End()

	l := s.logger.With(slog.String("method", "RegisterUser"))

	email := normalizeEmail(params.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		span.SetStatus(codes.Error, "invalid email")
		return nil, fmt.Errorf("invalid email address: %w", types.ErrBadRequest)
	}
	if len(params.Password) < MinPasswordLength {
		span.SetStatus(codes.Error, "weak password")
		return nil, fmt.Errorf("password must be at least %d characters: %w", MinPasswordLength, types.ErrBadRequest)
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash failed")
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, repository.NewUser{
		Email:        email,
		PasswordHash: &hash,
		DisplayName:  optional(params.DisplayName),
	})
	if err != nil {
		if !errors.Is(err, common.ErrUserAlreadyExists) {
			l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create user failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	tokens, err := s.issueSession(ctx, user, params.UserAgent, params.ClientIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue session failed")
		return nil, err
	}

	l.InfoContext(ctx, "User registered", slog.String("user_id", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AuthService) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(params.Email))
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			span.SetStatus(codes.Error, "unknown email")
			return nil, common.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	if user.PasswordHash == nil {
		// OAuth-only account
		span.SetStatus(codes.Error, "no password")
		return nil, common.ErrInvalidCredentials
	}
	ok, err := CheckPassword(*user.PasswordHash, params.Password)
	if err != nil {
		l.ErrorContext(ctx, "Stored password hash is unreadable", slog.String("user_id", user.ID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash compare failed")
		return nil, common.ErrInvalidCredentials
	}
	if !ok {
		span.SetStatus(codes.Error, "wrong password")
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "inactive")
		return nil, common.ErrUserInactive
	}

	tokens, err := s.issueSession(ctx, user, params.UserAgent, params.ClientIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue session failed")
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		l.WarnContext(ctx, "Failed to update last login", slog.String("user_id", user.ID.String()), slog.Any("error", err))
	} else {
		now := time.Now()
		user.LastLoginAt = &now
	}

	span.SetStatus(codes.Ok, "Logged in")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// RefreshToken rotates the refresh token. The presented session is revoked
// atomically before a new pair is issued, so concurrent reuse yields one pair.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken, userAgent, clientIP string) (*types.TokenPair, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RefreshToken")
	defer span.End()

	l := s.logger.With(slog.String("method", "RefreshToken"))

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return nil, common.ErrInvalidToken
	}

	userID, err := s.repo.ConsumeUserSession(ctx, HashToken(refreshToken))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session lookup failed")
		return nil, err
	}
	if userID.String() != claims.UserID {
		l.WarnContext(ctx, "Refresh token subject does not match session", slog.String("user_id", userID.String()))
		span.SetStatus(codes.Error, "subject mismatch")
		return nil, common.ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}
	if !user.IsActive {
		_ = s.repo.RevokeAllUserSessions(ctx, user.ID)
		span.SetStatus(codes.Error, "inactive")
		return nil, common.ErrUserInactive
	}

	tokens, err := s.issueSession(ctx, user, userAgent, clientIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue session failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Token refreshed")
	return tokens, nil
}

// Logout revokes the session behind refreshToken. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Logout")
	defer span.End()

	if strings.TrimSpace(refreshToken) == "" {
		span.SetStatus(codes.Error, "missing token")
		return fmt.Errorf("refresh token is required: %w", types.ErrBadRequest)
	}
	if err := s.repo.RevokeUserSession(ctx, HashToken(refreshToken)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke failed")
		return err
	}
	span.SetStatus(codes.Ok, "Logged out")
	return nil
}

// LogoutAll revokes every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LogoutAll", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.repo.RevokeAllUserSessions(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "revoke failed")
		return err
	}
	span.SetStatus(codes.Ok, "Sessions revoked")
	return nil
}

// ValidateSession checks an access token and that its user is still active.
func (s *AuthService) ValidateSession(ctx context.Context, accessToken string) (*types.Claims, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ValidateSession")
	defer span.End()

	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return nil, common.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		span.SetStatus(codes.Error, "bad subject")
		return nil, common.ErrInvalidToken
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			span.SetStatus(codes.Error, "user gone")
			return nil, common.ErrInvalidToken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, err
	}
	if !user.IsActive {
		span.SetStatus(codes.Error, "inactive")
		return nil, common.ErrUserInactive
	}
	span.SetStatus(codes.Ok, "Session valid")
	return claims, nil
}

// LoginWithOAuth signs in the user linked to the provider account. An
// unlinked account is attached to the user with the same email, or a new
// user is provisioned.
func (s *AuthService) LoginWithOAuth(ctx context.Context, params OAuthParams) (*AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LoginWithOAuth", trace.WithAttributes(
		attribute.String("oauth.provider", params.Provider),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "LoginWithOAuth"), slog.String("provider", params.Provider))

	if params.Provider == "" || params.ProviderUserID == "" {
		span.SetStatus(codes.Error, "missing identity")
		return nil, fmt.Errorf("provider identity is required: %w", types.ErrBadRequest)
	}

	user, err := s.repo.GetUserByOAuthIdentity(ctx, params.Provider, params.ProviderUserID)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrUserNotFound):
		user, err = s.linkOrCreate(ctx, params)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "provision failed")
			return nil, err
		}
		l.InfoContext(ctx, "OAuth identity linked", slog.String("user_id", user.ID.String()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}

	if !user.IsActive {
		span.SetStatus(codes.Error, "inactive")
		return nil, common.ErrUserInactive
	}

	tokens, err := s.issueSession(ctx, user, params.UserAgent, params.ClientIP)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue session failed")
		return nil, err
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		l.WarnContext(ctx, "Failed to update last login", slog.Any("error", err))
	}
	span.SetStatus(codes.Ok, "Logged in")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AuthService) linkOrCreate(ctx context.Context, params OAuthParams) (*types.User, error) {
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, fmt.Errorf("provider did not share an email: %w", types.ErrBadRequest)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, common.ErrUserNotFound) {
		user, err = s.repo.CreateUser(ctx, repository.NewUser{
			Email:       email,
			DisplayName: optional(params.DisplayName),
			AvatarURL:   optional(params.AvatarURL),
		})
	}
	if err != nil {
		return nil, err
	}

	err = s.repo.LinkOAuthIdentity(ctx, types.OAuthIdentity{
		Provider:       params.Provider,
		ProviderUserID: params.ProviderUserID,
		UserID:         user.ID,
		Email:          email,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *types.User, userAgent, clientIP string) (*types.TokenPair, error) {
	tokens, err := s.tokens.GenerateTokenPair(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	if _, err := s.repo.CreateUserSession(ctx, user.ID, HashToken(tokens.RefreshToken), userAgent, clientIP, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return tokens, nil
}
