package handler

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

type stubService struct {
	added     []uuid.UUID
	addErr    error
	favorites map[uuid.UUID]bool
}

func (s *stubService) AddFavorite(_ context.Context, _, promptID uuid.UUID) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, promptID)
	return nil
}

func (s *stubService) RemoveFavorite(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (s *stubService) ListFavorites(_ context.Context, _ uuid.UUID, limit, offset int) (*types.PromptPage, error) {
	return &types.PromptPage{Prompts: []*types.Prompt{}, Limit: limit, Offset: offset}, nil
}

func (s *stubService) IsFavorite(_ context.Context, _, promptID uuid.UUID) (bool, error) {
	return s.favorites[promptID], nil
}

func authed() context.Context {
	return interceptors.WithUser(context.Background(), uuid.NewString(), "u@example.com", types.RoleMember)
}

func TestFavoriteHandlerRequiresAuth(t *testing.T) {
	h := NewFavoriteHandler(&stubService{})
	_, err := h.AddFavorite(context.Background(), connect.NewRequest(&v1.AddFavoriteRequest{PromptID: uuid.NewString()}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = h.ListFavorites(context.Background(), connect.NewRequest(&v1.ListFavoritesRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestFavoriteHandlerAdd(t *testing.T) {
	svc := &stubService{}
	h := NewFavoriteHandler(svc)
	id := uuid.New()

	_, err := h.AddFavorite(authed(), connect.NewRequest(&v1.AddFavoriteRequest{PromptID: "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	resp, err := h.AddFavorite(authed(), connect.NewRequest(&v1.AddFavoriteRequest{PromptID: id.String()}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Success)
	assert.Equal(t, []uuid.UUID{id}, svc.added)

	svc.addErr = types.ErrUpgradeRequired
	_, err = h.AddFavorite(authed(), connect.NewRequest(&v1.AddFavoriteRequest{PromptID: id.String()}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
}

func TestFavoriteHandlerIsFavorite(t *testing.T) {
	id := uuid.New()
	h := NewFavoriteHandler(&stubService{favorites: map[uuid.UUID]bool{id: true}})

	resp, err := h.IsFavorite(authed(), connect.NewRequest(&v1.IsFavoriteRequest{PromptID: id.String()}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.IsFavorite)
}
