package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/common"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var userCols = []string{
	"id", "email", "password_hash", "display_name", "avatar_url", "role", "is_active", "last_login_at", "created_at", "updated_at",
}

func newRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresAuthRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresAuthRepository(mock, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func expectMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestPostgresAuthRepository_CreateUser(t *testing.T) {
	mock, repo := newRepo(t)
	userID := uuid.New()
	now := time.Now().UTC()
	hash := "hashed"

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("repo@example.com", &hash, ptr("Repo User"), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			userID, "repo@example.com", &hash, ptr("Repo User"), (*string)(nil), types.RoleMember, true, (*time.Time)(nil), now, now,
		))
	mock.ExpectExec(`INSERT INTO profiles`).
		WithArgs(userID, "repo@example.com", ptr("Repo User"), (*string)(nil), types.RoleMember).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO subscriptions`).
		WithArgs(userID, types.PlanFree, types.StatusIncomplete).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	user, err := repo.CreateUser(context.Background(), NewUser{
		Email:        " repo@example.com ",
		PasswordHash: &hash,
		DisplayName:  ptr("Repo User"),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID != userID {
		t.Fatalf("expected id %s, got %s", userID, user.ID)
	}
	if user.Role != types.RoleMember || !user.IsActive {
		t.Fatalf("defaults not applied: %+v", user)
	}
	expectMet(t, mock)
}

func TestPostgresAuthRepository_CreateUser_Duplicate(t *testing.T) {
	mock, repo := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), NewUser{Email: "dup@example.com"})
	if !errors.Is(err, common.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
	if !errors.Is(err, types.ErrConflict) {
		t.Fatalf("expected conflict sentinel, got %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresAuthRepository_CreateUser_ProfileFailureRollsBack(t *testing.T) {
	mock, repo := newRepo(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			userID, "x@example.com", (*string)(nil), (*string)(nil), (*string)(nil), types.RoleMember, true, (*time.Time)(nil), now, now,
		))
	mock.ExpectExec(`INSERT INTO profiles`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	if _, err := repo.CreateUser(context.Background(), NewUser{Email: "x@example.com"}); err == nil {
		t.Fatal("expected error")
	}
	expectMet(t, mock)
}

func TestPostgresAuthRepository_GetUserByEmail_NotFound(t *testing.T) {
	mock, repo := newRepo(t)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("missing@example.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	_, err := repo.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresAuthRepository_UpdateLastLogin_Missing(t *testing.T) {
	mock, repo := newRepo(t)
	id := uuid.New()
	mock.ExpectExec(`UPDATE users SET last_login_at`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateLastLogin(context.Background(), id); !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresAuthRepository_Sessions(t *testing.T) {
	mock, repo := newRepo(t)
	userID := uuid.New()
	sessionID := uuid.New()
	now := time.Now()
	expires := now.Add(time.Hour)

	mock.ExpectQuery(`INSERT INTO user_sessions`).
		WithArgs(userID, "hash", "agent", "127.0.0.1", expires).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(sessionID, now))

	session, err := repo.CreateUserSession(context.Background(), userID, "hash", "agent", "127.0.0.1", expires)
	if err != nil {
		t.Fatalf("CreateUserSession: %v", err)
	}
	if session.ID != sessionID || session.RefreshTokenHash != "hash" {
		t.Fatalf("unexpected session: %+v", session)
	}

	mock.ExpectQuery(`UPDATE user_sessions SET revoked_at = NOW\(\)\s+WHERE refresh_token_hash = \$1 AND revoked_at IS NULL AND expires_at > NOW\(\)\s+RETURNING user_id`).
		WithArgs("hash").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(userID))

	owner, err := repo.ConsumeUserSession(context.Background(), "hash")
	if err != nil {
		t.Fatalf("ConsumeUserSession: %v", err)
	}
	if owner != userID {
		t.Fatalf("expected owner %s, got %s", userID, owner)
	}

	// Already consumed, revoked or expired: the guarded update matches nothing.
	mock.ExpectQuery(`UPDATE user_sessions SET revoked_at = NOW\(\)\s+WHERE refresh_token_hash = \$1 AND revoked_at IS NULL`).
		WithArgs("hash").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))

	if _, err := repo.ConsumeUserSession(context.Background(), "hash"); !errors.Is(err, common.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	mock.ExpectExec(`UPDATE user_sessions SET revoked_at = NOW\(\) WHERE refresh_token_hash = \$1`).
		WithArgs("hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := repo.RevokeUserSession(context.Background(), "hash"); err != nil {
		t.Fatalf("RevokeUserSession: %v", err)
	}

	mock.ExpectExec(`UPDATE user_sessions SET revoked_at = NOW\(\) WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	if err := repo.RevokeAllUserSessions(context.Background(), userID); err != nil {
		t.Fatalf("RevokeAllUserSessions: %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresAuthRepository_OAuthIdentity(t *testing.T) {
	mock, repo := newRepo(t)
	userID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`FROM user_oauth_identities oi\s+JOIN users u`).
		WithArgs("github", "42").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(
			userID, "gh@example.com", (*string)(nil), ptr("Octo"), (*string)(nil), types.RoleMember, true, (*time.Time)(nil), now, now,
		))

	user, err := repo.GetUserByOAuthIdentity(context.Background(), "github", "42")
	if err != nil {
		t.Fatalf("GetUserByOAuthIdentity: %v", err)
	}
	if user.ID != userID || user.PasswordHash != nil {
		t.Fatalf("unexpected user: %+v", user)
	}

	mock.ExpectExec(`INSERT INTO user_oauth_identities`).
		WithArgs("github", "42", userID, "gh@example.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	err = repo.LinkOAuthIdentity(context.Background(), types.OAuthIdentity{
		Provider: "github", ProviderUserID: "42", UserID: userID, Email: "gh@example.com",
	})
	if err != nil {
		t.Fatalf("LinkOAuthIdentity: %v", err)
	}
	expectMet(t, mock)
}
