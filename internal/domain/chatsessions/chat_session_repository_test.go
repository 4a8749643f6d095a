package chatsessions

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var sessionColumns = []string{"id", "user_id", "title", "prompt_id", "status", "created_at", "updated_at"}

func newMockSessionRepo(t *testing.T) (pgxmock.PgxPoolIface, *RepositoryImpl) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return mockPool, NewRepositoryImpl(mockPool, logger)
}

func TestRepositoryCreateSession(t *testing.T) {
	mockPool, repo := newMockSessionRepo(t)
	userID, id := uuid.New(), uuid.New()
	now := time.Now()

	mockPool.ExpectQuery(`INSERT INTO chat_sessions \(user_id, title, prompt_id\)`).
		WithArgs(userID, "New session", (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow(id, userID, "New session", (*uuid.UUID)(nil), types.StatusSessionActive, now, now))

	s, err := repo.CreateSession(context.Background(), userID, "New session", nil)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.NotNil(t, s.Messages)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryListSessions(t *testing.T) {
	mockPool, repo := newMockSessionRepo(t)
	userID := uuid.New()
	now := time.Now()

	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM chat_sessions WHERE user_id = \$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mockPool.ExpectQuery(`FROM chat_sessions\s+WHERE user_id = \$1\s+ORDER BY updated_at DESC, id\s+LIMIT \$2 OFFSET \$3`).
		WithArgs(userID, 20, 0).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow(uuid.New(), userID, "a", (*uuid.UUID)(nil), types.StatusSessionActive, now, now).
			AddRow(uuid.New(), userID, "b", (*uuid.UUID)(nil), types.StatusSessionArchived, now, now))

	sessions, total, err := repo.ListSessions(context.Background(), userID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sessions, 2)
	assert.Equal(t, types.StatusSessionArchived, sessions[1].Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryGetSession(t *testing.T) {
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()
	now := time.Now()

	t.Run("with messages", func(t *testing.T) {
		mockPool, repo := newMockSessionRepo(t)
		mockPool.ExpectQuery(`FROM chat_sessions\s+WHERE id = \$1 AND user_id = \$2`).
			WithArgs(id, userID).
			WillReturnRows(pgxmock.NewRows(sessionColumns).AddRow(id, userID, "t", (*uuid.UUID)(nil), types.StatusSessionActive, now, now))
		mockPool.ExpectQuery(`FROM chat_messages\s+WHERE session_id = \$1\s+ORDER BY created_at, id`).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "role", "content", "created_at"}).
				AddRow(uuid.New(), id, types.RoleUser, "hello", now).
				AddRow(uuid.New(), id, types.RoleAssistant, "{}", now))

		s, err := repo.GetSession(ctx, userID, id)
		require.NoError(t, err)
		require.Len(t, s.Messages, 2)
		assert.Equal(t, 1, s.UserMessageCount())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("not owned", func(t *testing.T) {
		mockPool, repo := newMockSessionRepo(t)
		mockPool.ExpectQuery(`FROM chat_sessions`).
			WithArgs(id, userID).
			WillReturnRows(pgxmock.NewRows(sessionColumns))

		_, err := repo.GetSession(ctx, userID, id)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepositoryDeleteSession(t *testing.T) {
	mockPool, repo := newMockSessionRepo(t)
	userID, id := uuid.New(), uuid.New()

	mockPool.ExpectExec(`DELETE FROM chat_sessions WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteSession(context.Background(), userID, id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRepositoryAppendMessages(t *testing.T) {
	ctx := context.Background()
	sessionID := uuid.New()
	now := time.Now()

	t.Run("commits messages and title", func(t *testing.T) {
		mockPool, repo := newMockSessionRepo(t)
		userMsgID, botMsgID := uuid.New(), uuid.New()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`INSERT INTO chat_messages`).
			WithArgs(sessionID, "user", "night market").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(userMsgID, now))
		mockPool.ExpectQuery(`INSERT INTO chat_messages`).
			WithArgs(sessionID, "assistant", "{}").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(botMsgID, now))
		mockPool.ExpectExec(`UPDATE chat_sessions\s+SET updated_at = NOW\(\)`).
			WithArgs(sessionID, "night market").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		user := &types.ConversationMessage{Role: types.RoleUser, Content: "night market"}
		bot := &types.ConversationMessage{Role: types.RoleAssistant, Content: "{}"}
		require.NoError(t, repo.AppendMessages(ctx, sessionID, "night market", user, bot))
		assert.Equal(t, userMsgID, user.ID)
		assert.Equal(t, sessionID, bot.SessionID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("rolls back on insert failure", func(t *testing.T) {
		mockPool, repo := newMockSessionRepo(t)
		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`INSERT INTO chat_messages`).
			WithArgs(sessionID, "user", "x").
			WillReturnError(errors.New("disk full"))
		mockPool.ExpectRollback()

		err := repo.AppendMessages(ctx, sessionID, "", &types.ConversationMessage{Role: types.RoleUser, Content: "x"})
		assert.Error(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
