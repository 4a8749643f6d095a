package handler

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/internal/domain/subscriptions"
	"github.com/FACorreiaa/promptveo-api/internal/domain/subscriptions/subscriptiontest"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

func newHandler(t *testing.T) (*SubscriptionHandler, *subscriptiontest.FakeRepository) {
	t.Helper()
	repo := subscriptiontest.NewFakeRepository()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := subscriptions.NewSubscriptionService(repo, nil, "price_pro", logger, subscriptions.WithRetryDelay(time.Millisecond))
	return NewSubscriptionHandler(svc), repo
}

func TestGetMySubscriptionRequiresAuth(t *testing.T) {
	h, _ := newHandler(t)
	_, err := h.GetMySubscription(context.Background(), connect.NewRequest(&v1.GetMySubscriptionRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestGetMySubscription(t *testing.T) {
	h, repo := newHandler(t)
	userID := uuid.New()
	repo.Put(&types.Subscription{UserID: userID, Status: types.StatusActive, Plan: types.PlanPro})
	ctx := interceptors.WithUser(context.Background(), userID.String(), "pro@example.com", types.RoleMember)

	resp, err := h.GetMySubscription(ctx, connect.NewRequest(&v1.GetMySubscriptionRequest{}))
	require.NoError(t, err)
	require.NotNil(t, resp.Msg.Subscription)
	assert.Equal(t, types.PlanPro, resp.Msg.Subscription.Plan)
	assert.True(t, resp.Msg.Features.CanRemix)
}

func TestGetMySubscriptionWithoutRow(t *testing.T) {
	h, _ := newHandler(t)
	ctx := interceptors.WithUser(context.Background(), uuid.NewString(), "", types.RoleMember)

	resp, err := h.GetMySubscription(ctx, connect.NewRequest(&v1.GetMySubscriptionRequest{}))
	require.NoError(t, err)
	assert.Nil(t, resp.Msg.Subscription)
	assert.Equal(t, 3, resp.Msg.Features.MaxVisiblePrompts)
}

func TestGetMyFeatures(t *testing.T) {
	h, repo := newHandler(t)

	resp, err := h.GetMyFeatures(context.Background(), connect.NewRequest(&v1.GetMyFeaturesRequest{}))
	require.NoError(t, err)
	assert.False(t, resp.Msg.Authenticated)
	assert.False(t, resp.Msg.Features.CanViewJSON)

	userID := uuid.New()
	repo.Put(&types.Subscription{UserID: userID, Status: types.StatusTrialing, Plan: types.PlanPro})
	ctx := interceptors.WithUser(context.Background(), userID.String(), "", types.RoleMember)
	resp, err = h.GetMyFeatures(ctx, connect.NewRequest(&v1.GetMyFeaturesRequest{}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Authenticated)
	assert.False(t, resp.Msg.Features.CanViewJSON, "trialing does not unlock paid features")
}

func TestGetPlans(t *testing.T) {
	h, _ := newHandler(t)
	resp, err := h.GetPlans(context.Background(), connect.NewRequest(&v1.GetPlansRequest{}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Plans, 2)
	assert.Equal(t, types.PlanFree, resp.Msg.Plans[0].Plan)
	assert.Equal(t, types.PlanPro, resp.Msg.Plans[1].Plan)
}
