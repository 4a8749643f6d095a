package servicetest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/common"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/repository"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/service"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

// MockTokenManager implements TokenManager for tests.
type MockTokenManager struct {
	GenerateFunc func(userID, email, role string) (*types.TokenPair, error)
	AccessFunc   func(token string) (*types.Claims, error)
	RefreshFunc  func(token string) (*types.Claims, error)

	issued int
}

func (m *MockTokenManager) GenerateTokenPair(userID, email, role string) (*types.TokenPair, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(userID, email, role)
	}
	m.issued++
	// distinct refresh tokens keep session hashes unique
	return &types.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh-" + userID + "-" + strings.Repeat("x", m.issued),
		ExpiresAt:    time.Now().Add(time.Hour),
		TokenType:    "Bearer",
	}, nil
}

func (m *MockTokenManager) ValidateAccessToken(tokenString string) (*types.Claims, error) {
	if m.AccessFunc != nil {
		return m.AccessFunc(tokenString)
	}
	return nil, common.ErrInvalidToken
}

func (m *MockTokenManager) ValidateRefreshToken(tokenString string) (*types.Claims, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(tokenString)
	}
	// tokens minted by GenerateTokenPair carry the user id
	if rest, ok := strings.CutPrefix(tokenString, "refresh-"); ok && len(rest) >= 36 {
		return &types.Claims{UserID: rest[:36], TokenType: types.RefreshToken}, nil
	}
	return nil, common.ErrInvalidToken
}

// MockAuthRepo is an in-memory AuthRepository.
type MockAuthRepo struct {
	Users      map[string]*types.User
	Sessions   map[string]*types.UserSession
	Identities map[string]uuid.UUID
	// Provisioned records user ids that got a profile and subscription.
	Provisioned map[uuid.UUID]bool
}

var _ repository.AuthRepository = (*MockAuthRepo)(nil)

func NewMockAuthRepo() *MockAuthRepo {
	return &MockAuthRepo{
		Users:       make(map[string]*types.User),
		Sessions:    make(map[string]*types.UserSession),
		Identities:  make(map[string]uuid.UUID),
		Provisioned: make(map[uuid.UUID]bool),
	}
}

func identityKey(provider, providerUserID string) string {
	return provider + ":" + providerUserID
}

func (m *MockAuthRepo) CreateUser(_ context.Context, nu repository.NewUser) (*types.User, error) {
	if _, exists := m.Users[nu.Email]; exists {
		return nil, common.ErrUserAlreadyExists
	}
	user := &types.User{
		ID:           uuid.New(),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		DisplayName:  nu.DisplayName,
		AvatarURL:    nu.AvatarURL,
		Role:         types.RoleMember,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.Users[nu.Email] = user
	m.Provisioned[user.ID] = true
	return CloneUser(user), nil
}

func (m *MockAuthRepo) GetUserByEmail(_ context.Context, email string) (*types.User, error) {
	user, ok := m.Users[email]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return CloneUser(user), nil
}

func (m *MockAuthRepo) GetUserByID(_ context.Context, userID uuid.UUID) (*types.User, error) {
	for _, user := range m.Users {
		if user.ID == userID {
			return CloneUser(user), nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (m *MockAuthRepo) UpdateLastLogin(_ context.Context, userID uuid.UUID) error {
	for _, user := range m.Users {
		if user.ID == userID {
			now := time.Now()
			user.LastLoginAt = &now
			return nil
		}
	}
	return common.ErrUserNotFound
}

func (m *MockAuthRepo) CreateUserSession(_ context.Context, userID uuid.UUID, hashedRefreshToken, userAgent, clientIP string, expiresAt time.Time) (*types.UserSession, error) {
	session := &types.UserSession{
		ID:               uuid.New(),
		UserID:           userID,
		RefreshTokenHash: hashedRefreshToken,
		UserAgent:        userAgent,
		ClientIP:         clientIP,
		ExpiresAt:        expiresAt,
		CreatedAt:        time.Now(),
	}
	m.Sessions[hashedRefreshToken] = session
	return session, nil
}

func (m *MockAuthRepo) ConsumeUserSession(_ context.Context, hashedToken string) (uuid.UUID, error) {
	session, ok := m.Sessions[hashedToken]
	if !ok || session.RevokedAt != nil || session.ExpiresAt.Before(time.Now()) {
		return uuid.Nil, common.ErrSessionNotFound
	}
	now := time.Now()
	session.RevokedAt = &now
	return session.UserID, nil
}

func (m *MockAuthRepo) RevokeUserSession(_ context.Context, hashedToken string) error {
	if session, ok := m.Sessions[hashedToken]; ok && session.RevokedAt == nil {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

func (m *MockAuthRepo) RevokeAllUserSessions(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, session := range m.Sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

func (m *MockAuthRepo) GetUserByOAuthIdentity(ctx context.Context, provider, providerUserID string) (*types.User, error) {
	userID, ok := m.Identities[identityKey(provider, providerUserID)]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return m.GetUserByID(ctx, userID)
}

func (m *MockAuthRepo) LinkOAuthIdentity(_ context.Context, identity types.OAuthIdentity) error {
	m.Identities[identityKey(identity.Provider, identity.ProviderUserID)] = identity.UserID
	return nil
}

// ActiveSessions counts sessions of the user that are not revoked.
func (m *MockAuthRepo) ActiveSessions(userID uuid.UUID) int {
	n := 0
	for _, s := range m.Sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			n++
		}
	}
	return n
}

// NewTestAuthService bundles the mocks with a configured AuthService.
func NewTestAuthService() (*service.AuthService, *MockAuthRepo, *MockTokenManager) {
	repo := NewMockAuthRepo()
	tokenManager := &MockTokenManager{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	authService := service.NewAuthService(repo, tokenManager, logger, time.Hour)
	return authService, repo, tokenManager
}

// CloneUser returns a deep copy of the provided user.
func CloneUser(u *types.User) *types.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// MustHash hashes a password for tests.
func MustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := service.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return hash
}

// AddUser inserts a user into the mock repo.
func AddUser(repo *MockAuthRepo, t *testing.T, email string, active bool, hashedPassword string) *types.User {
	t.Helper()
	user := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: &hashedPassword,
		Role:         types.RoleMember,
		IsActive:     active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	repo.Users[email] = user
	return user
}
