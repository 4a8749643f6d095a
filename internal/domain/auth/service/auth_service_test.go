package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/common"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/service"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/servicetest"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

func register(t *testing.T, svc *service.AuthService, email, password string) *service.AuthResult {
	t.Helper()
	result, err := svc.RegisterUser(context.Background(), service.RegisterParams{
		Email:       email,
		Password:    password,
		DisplayName: "Jane Doe",
		UserAgent:   "test-agent",
		ClientIP:    "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	return result
}

func TestAuthService_RegisterUser_Success(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens := servicetest.NewTestAuthService()

	expectedPair := &types.TokenPair{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		TokenType:    "Bearer",
	}
	tokens.GenerateFunc = func(_, _, _ string) (*types.TokenPair, error) {
		return expectedPair, nil
	}

	result := register(t, svc, " Jane@Example.com ", "Str0ng!Pass")
	if result.Tokens.AccessToken != expectedPair.AccessToken {
		t.Fatalf("expected access token %q, got %q", expectedPair.AccessToken, result.Tokens.AccessToken)
	}

	user, err := repo.GetUserByEmail(ctx, "jane@example.com")
	if err != nil {
		t.Fatalf("user persisted not found: %v", err)
	}
	if user.PasswordHash == nil || *user.PasswordHash == "Str0ng!Pass" {
		t.Fatalf("expected hashed password to be stored")
	}
	if !repo.Provisioned[user.ID] {
		t.Fatalf("expected profile and subscription to be provisioned with the user")
	}
	if _, ok := repo.Sessions[service.HashToken("refresh-token")]; !ok {
		t.Fatalf("expected refresh token to be stored hashed")
	}
}

func TestAuthService_RegisterUser_Validation(t *testing.T) {
	svc, _, _ := servicetest.NewTestAuthService()
	cases := []service.RegisterParams{
		{Email: "not-an-email", Password: "Str0ng!Pass"},
		{Email: "jane@example.com", Password: "short"},
	}
	for _, params := range cases {
		_, err := svc.RegisterUser(context.Background(), params)
		if !errors.Is(err, types.ErrBadRequest) {
			t.Fatalf("expected ErrBadRequest for %+v, got %v", params, err)
		}
	}
}

func TestAuthService_RegisterUser_DuplicateEmail(t *testing.T) {
	svc, _, _ := servicetest.NewTestAuthService()
	register(t, svc, "jane@example.com", "Str0ng!Pass")

	_, err := svc.RegisterUser(context.Background(), service.RegisterParams{
		Email:    "jane@example.com",
		Password: "Str0ng!Pass",
	})
	if !errors.Is(err, common.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	svc, repo, _ := servicetest.NewTestAuthService()
	ctx := context.Background()
	register(t, svc, "jane@example.com", "Str0ng!Pass")

	_, err := svc.Login(ctx, service.LoginParams{Email: "jane@example.com", Password: "WrongPass!1"})
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	user, _ := repo.GetUserByEmail(ctx, "jane@example.com")
	if user.LastLoginAt != nil {
		t.Fatalf("last login should not be updated on failed login")
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _ := servicetest.NewTestAuthService()
	_, err := svc.Login(context.Background(), service.LoginParams{Email: "nobody@example.com", Password: "whatever1"})
	if !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := servicetest.NewTestAuthService()
	hash := servicetest.MustHash(t, "Str0ng!Pass")
	user := servicetest.AddUser(repo, t, "jane@example.com", true, hash)

	result, err := svc.Login(ctx, service.LoginParams{Email: "jane@example.com", Password: "Str0ng!Pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, result.User.ID)
	}
	if result.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be set")
	}
	if repo.ActiveSessions(user.ID) != 1 {
		t.Fatalf("expected one active session, got %d", repo.ActiveSessions(user.ID))
	}
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	svc, repo, _ := servicetest.NewTestAuthService()
	servicetest.AddUser(repo, t, "jane@example.com", false, servicetest.MustHash(t, "Str0ng!Pass"))

	_, err := svc.Login(context.Background(), service.LoginParams{Email: "jane@example.com", Password: "Str0ng!Pass"})
	if !errors.Is(err, types.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := servicetest.NewTestAuthService()
	first := register(t, svc, "jane@example.com", "Str0ng!Pass")

	next, err := svc.RefreshToken(ctx, first.Tokens.RefreshToken, "agent", "ip")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if next.RefreshToken == first.Tokens.RefreshToken {
		t.Fatalf("expected a new refresh token")
	}
	if repo.ActiveSessions(first.User.ID) != 1 {
		t.Fatalf("expected old session to be revoked")
	}

	_, err = svc.RefreshToken(ctx, first.Tokens.RefreshToken, "agent", "ip")
	if !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}
}

func TestAuthService_RefreshToken_AfterLogout(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := servicetest.NewTestAuthService()
	first := register(t, svc, "jane@example.com", "Str0ng!Pass")

	if err := svc.Logout(ctx, first.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err := svc.RefreshToken(ctx, first.Tokens.RefreshToken, "agent", "ip")
	if !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if repo.ActiveSessions(first.User.ID) != 0 {
		t.Fatalf("expected no live sessions")
	}
}

func TestAuthService_RefreshToken_Invalid(t *testing.T) {
	svc, _, _ := servicetest.NewTestAuthService()
	_, err := svc.RefreshToken(context.Background(), "garbage", "", "")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := servicetest.NewTestAuthService()
	result := register(t, svc, "jane@example.com", "Str0ng!Pass")

	if err := svc.Logout(ctx, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if repo.ActiveSessions(result.User.ID) != 0 {
		t.Fatalf("expected session to be revoked")
	}
	if err := svc.Logout(ctx, result.Tokens.RefreshToken); err != nil {
		t.Fatalf("second Logout should be a no-op, got %v", err)
	}
	if err := svc.Logout(ctx, ""); !errors.Is(err, types.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty token, got %v", err)
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	ctx := context.Background()
	svc, repo, tokens := servicetest.NewTestAuthService()
	user := servicetest.AddUser(repo, t, "jane@example.com", true, "hash")

	tokens.AccessFunc = func(token string) (*types.Claims, error) {
		if token != "good" {
			return nil, common.ErrInvalidToken
		}
		return &types.Claims{UserID: user.ID.String(), Email: user.Email, TokenType: types.AccessToken}, nil
	}

	claims, err := svc.ValidateSession(ctx, "good")
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if claims.Email != "jane@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := svc.ValidateSession(ctx, "bad"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	tokens.AccessFunc = func(string) (*types.Claims, error) {
		return &types.Claims{UserID: uuid.NewString()}, nil
	}
	if _, err := svc.ValidateSession(ctx, "orphan"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for deleted user, got %v", err)
	}
}

func TestAuthService_LoginWithOAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user on first login", func(t *testing.T) {
		svc, repo, _ := servicetest.NewTestAuthService()
		result, err := svc.LoginWithOAuth(ctx, service.OAuthParams{
			Provider: "github", ProviderUserID: "42", Email: "Octo@Example.com", DisplayName: "Octo",
		})
		if err != nil {
			t.Fatalf("LoginWithOAuth: %v", err)
		}
		if result.User.Email != "octo@example.com" || result.User.PasswordHash != nil {
			t.Fatalf("unexpected user %+v", result.User)
		}
		if !repo.Provisioned[result.User.ID] {
			t.Fatalf("expected provisioning on oauth sign-up")
		}

		again, err := svc.LoginWithOAuth(ctx, service.OAuthParams{Provider: "github", ProviderUserID: "42"})
		if err != nil {
			t.Fatalf("second LoginWithOAuth: %v", err)
		}
		if again.User.ID != result.User.ID {
			t.Fatalf("expected linked identity to resolve the same user")
		}
	})

	t.Run("links existing email", func(t *testing.T) {
		svc, repo, _ := servicetest.NewTestAuthService()
		existing := servicetest.AddUser(repo, t, "jane@example.com", true, "hash")

		result, err := svc.LoginWithOAuth(ctx, service.OAuthParams{
			Provider: "google", ProviderUserID: "g-1", Email: "jane@example.com",
		})
		if err != nil {
			t.Fatalf("LoginWithOAuth: %v", err)
		}
		if result.User.ID != existing.ID {
			t.Fatalf("expected existing user to be linked")
		}
		if len(repo.Users) != 1 {
			t.Fatalf("expected no new user, got %d", len(repo.Users))
		}
	})

	t.Run("no email", func(t *testing.T) {
		svc, _, _ := servicetest.NewTestAuthService()
		_, err := svc.LoginWithOAuth(ctx, service.OAuthParams{Provider: "github", ProviderUserID: "7"})
		if !errors.Is(err, types.ErrBadRequest) {
			t.Fatalf("expected ErrBadRequest, got %v", err)
		}
	})
}
