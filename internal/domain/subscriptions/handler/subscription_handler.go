package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/domain/subscriptions"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.SubscriptionServiceHandler = (*SubscriptionHandler)(nil)

type SubscriptionHandler struct {
	service subscriptions.Service
}

func NewSubscriptionHandler(svc subscriptions.Service) *SubscriptionHandler {
	return &SubscriptionHandler{service: svc}
}

func (h *SubscriptionHandler) GetMySubscription(ctx context.Context, _ *connect.Request[v1.GetMySubscriptionRequest]) (*connect.Response[v1.GetMySubscriptionResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := h.service.GetCurrent(ctx, userID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}

	return connect.NewResponse(&v1.GetMySubscriptionResponse{
		Subscription: sub,
		Features:     features.GetSubscriptionFeatures(sub),
	}), nil
}

// GetMyFeatures is public; anonymous callers receive the free limits.
func (h *SubscriptionHandler) GetMyFeatures(ctx context.Context, _ *connect.Request[v1.GetMyFeaturesRequest]) (*connect.Response[v1.GetMyFeaturesResponse], error) {
	viewer := interceptors.OptionalUser(ctx)
	f, err := h.service.GetFeatures(ctx, viewer)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.GetMyFeaturesResponse{Features: f, Authenticated: viewer != nil}), nil
}

func (h *SubscriptionHandler) GetPlans(_ context.Context, _ *connect.Request[v1.GetPlansRequest]) (*connect.Response[v1.GetPlansResponse], error) {
	return connect.NewResponse(&v1.GetPlansResponse{Plans: h.service.Plans()}), nil
}
