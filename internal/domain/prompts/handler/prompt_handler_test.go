package handler

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts"
	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts/promptstest"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

func newHandler(t *testing.T, sub *types.Subscription) (*PromptHandler, *promptstest.FakeRepository) {
	t.Helper()
	repo := promptstest.NewFakeRepository()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPromptHandler(prompts.NewPromptService(repo, features.Fixed(sub), logger)), repo
}

func proSub() *types.Subscription {
	return &types.Subscription{Status: types.StatusActive, Plan: types.PlanPro}
}

func TestListPromptsPublic(t *testing.T) {
	h, repo := newHandler(t, nil)
	repo.Seed(4)

	resp, err := h.ListPrompts(context.Background(), connect.NewRequest(&v1.ListPromptsRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Msg.Total)
	assert.True(t, resp.Msg.Prompts[3].Locked)
	assert.Equal(t, 3, resp.Msg.Features.MaxVisiblePrompts)
}

func TestListPromptsMineRequiresAuth(t *testing.T) {
	h, _ := newHandler(t, nil)
	_, err := h.ListPrompts(context.Background(), connect.NewRequest(&v1.ListPromptsRequest{Mine: true}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestGetPromptBadID(t *testing.T) {
	h, _ := newHandler(t, nil)
	_, err := h.GetPrompt(context.Background(), connect.NewRequest(&v1.GetPromptRequest{ID: "42"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestExportRequiresUpgrade(t *testing.T) {
	h, repo := newHandler(t, nil)
	seeded := repo.Seed(1)

	_, err := h.ExportPromptJSON(context.Background(), connect.NewRequest(&v1.ExportPromptJSONRequest{ID: seeded[0].ID.String()}))
	require.Error(t, err)
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	var cerr *connect.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, string(types.PlanPro), cerr.Meta().Get(rpcerr.UpgradeHeader))
}

func TestExportForPro(t *testing.T) {
	h, repo := newHandler(t, proSub())
	seeded := repo.Seed(1)
	id := seeded[0].ID.String()

	resp, err := h.ExportPromptJSON(context.Background(), connect.NewRequest(&v1.ExportPromptJSONRequest{ID: id}))
	require.NoError(t, err)
	assert.Equal(t, "prompt-"+id+".json", resp.Msg.Filename)
	assert.JSONEq(t, `{"scene":"x"}`, string(resp.Msg.Document))
}

func TestCreateAndDeletePrompt(t *testing.T) {
	h, repo := newHandler(t, proSub())
	userID := uuid.New()
	ctx := interceptors.WithUser(context.Background(), userID.String(), "pro@example.com", types.RoleMember)

	_, err := h.CreatePrompt(context.Background(), connect.NewRequest(&v1.CreatePromptRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = h.CreatePrompt(ctx, connect.NewRequest(&v1.CreatePromptRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	created, err := h.CreatePrompt(ctx, connect.NewRequest(&v1.CreatePromptRequest{
		CreatePromptParams: types.CreatePromptParams{Title: "Harbor", PromptText: "fog over the harbor"},
	}))
	require.NoError(t, err)
	id := created.Msg.Prompt.ID

	other := interceptors.WithUser(context.Background(), uuid.NewString(), "", types.RoleMember)
	_, err = h.DeletePrompt(other, connect.NewRequest(&v1.DeletePromptRequest{ID: id.String()}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	resp, err := h.DeletePrompt(ctx, connect.NewRequest(&v1.DeletePromptRequest{ID: id.String()}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Success)
	assert.False(t, repo.Has(id))
}

func TestRemixPrompt(t *testing.T) {
	h, repo := newHandler(t, proSub())
	seeded := repo.Seed(1)
	ctx := interceptors.WithUser(context.Background(), uuid.NewString(), "", types.RoleMember)

	resp, err := h.RemixPrompt(ctx, connect.NewRequest(&v1.RemixPromptRequest{ID: seeded[0].ID.String()}))
	require.NoError(t, err)
	assert.Equal(t, seeded[0].ID, *resp.Msg.Prompt.RemixedFrom)
}
