package profiles

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var profileCols = []string{"id", "email", "username", "display_name", "avatar_url", "bio", "website", "role", "created_at", "updated_at"}

func newMockProfileRepo(t *testing.T) (pgxmock.PgxPoolIface, *RepositoryImpl) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return mockPool, NewPostgresProfileRepo(mockPool, logger)
}

func TestRepositoryGetProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		mockPool.ExpectQuery(`SELECT .+ FROM profiles\s+WHERE id = \$1`).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(profileCols).AddRow(
				userID, "a@b.c", strPtr("jane"), strPtr("Jane"), (*string)(nil), (*string)(nil), (*string)(nil), types.RoleMember, now, now,
			))

		p, err := repo.GetProfile(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "jane", *p.Username)
		assert.Nil(t, p.Bio)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		mockPool.ExpectQuery(`SELECT .+ FROM profiles`).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(profileCols))

		_, err := repo.GetProfile(ctx, userID)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepositoryEnsureProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()
	mockPool, repo := newMockProfileRepo(t)

	mockPool.ExpectExec(`INSERT INTO profiles .+ SELECT id, email, display_name, avatar_url, role FROM users WHERE id = \$1\s+ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectQuery(`SELECT .+ FROM profiles`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(profileCols).AddRow(
			userID, "a@b.c", (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), types.RoleMember, now, now,
		))

	p, err := repo.EnsureProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, p.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryUpdateProfile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("empty params touch nothing", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		require.NoError(t, repo.UpdateProfile(ctx, userID, types.UpdateProfileParams{}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("profile only fields", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec(`UPDATE profiles SET username = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs("jane", userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		require.NoError(t, repo.UpdateProfile(ctx, userID, types.UpdateProfileParams{Username: strPtr("jane")}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("display name is mirrored onto users", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec(`UPDATE profiles SET display_name = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs("Jane", userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectExec(`UPDATE users SET display_name = \$1, updated_at = NOW\(\) WHERE id = \$2`).
			WithArgs("Jane", userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		require.NoError(t, repo.UpdateProfile(ctx, userID, types.UpdateProfileParams{DisplayName: strPtr(" Jane ")}))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec(`UPDATE profiles`).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mockPool.ExpectRollback()

		err := repo.UpdateProfile(ctx, userID, types.UpdateProfileParams{Username: strPtr("taken")})
		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mockPool, repo := newMockProfileRepo(t)
		mockPool.ExpectBegin()
		mockPool.ExpectExec(`UPDATE profiles`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectRollback()

		err := repo.UpdateProfile(ctx, userID, types.UpdateProfileParams{Bio: strPtr("hi")})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}
