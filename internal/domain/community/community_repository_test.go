package community

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

func newMockCommunityRepo(t *testing.T) (pgxmock.PgxPoolIface, *RepositoryImpl) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return mockPool, NewRepositoryImpl(mockPool, logger)
}

func communityRow(rows *pgxmock.Rows, id uuid.UUID, status types.CommunityStatus, likes int) *pgxmock.Rows {
	now := time.Now()
	return rows.AddRow(id, (*uuid.UUID)(nil), "Harbor fog", "", "fog rolls in", "Ana", (*string)(nil),
		"nature", []string{"lighting"}, status, likes, now, now)
}

func TestRepositoryListPopular(t *testing.T) {
	mockPool, repo := newMockCommunityRepo(t)
	id := uuid.New()

	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM community_prompts WHERE status = \$1 AND category = \$2`).
		WithArgs("approved", "nature").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mockPool.ExpectQuery(`FROM community_prompts WHERE status = \$1 AND category = \$2 ORDER BY likes DESC, created_at DESC, id LIMIT 10 OFFSET 0`).
		WithArgs("approved", "nature").
		WillReturnRows(communityRow(pgxmock.NewRows(communityColumns), id, types.CommunityApproved, 7))

	items, total, err := repo.List(context.Background(), types.CommunityApproved, types.CommunityFilter{Category: "nature", SortBy: "popular", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Likes)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryCreatePending(t *testing.T) {
	mockPool, repo := newMockCommunityRepo(t)
	userID, id := uuid.New(), uuid.New()

	mockPool.ExpectQuery(`INSERT INTO community_prompts \(submitted_by,title,description,prompt_text,author_name,source_url,category,tags,status\) VALUES .+ RETURNING id, submitted_by`).
		WithArgs(userID, "Harbor fog", "", "fog rolls in", "Ana", (*string)(nil), "nature", []string{"lighting"}, "pending").
		WillReturnRows(communityRow(pgxmock.NewRows(communityColumns), id, types.CommunityPending, 0))

	p, err := repo.Create(context.Background(), userID, types.SubmitCommunityPromptParams{
		Title: "Harbor fog", PromptText: "fog rolls in", AuthorName: "Ana", Category: "nature", Tags: []string{"lighting"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.CommunityPending, p.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryLike(t *testing.T) {
	mockPool, repo := newMockCommunityRepo(t)
	id := uuid.New()

	mockPool.ExpectQuery(`UPDATE community_prompts SET likes = likes \+ 1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"likes"}).AddRow(4))
	mockPool.ExpectQuery(`UPDATE community_prompts SET likes = likes \+ 1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	likes, err := repo.Like(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, likes)

	_, err = repo.Like(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRepositorySetStatus(t *testing.T) {
	mockPool, repo := newMockCommunityRepo(t)
	id := uuid.New()

	mockPool.ExpectExec(`UPDATE community_prompts SET status = \$2`).
		WithArgs(id, "approved").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetStatus(context.Background(), id, types.CommunityApproved)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
