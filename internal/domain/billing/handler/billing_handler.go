package handler

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/billing"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.BillingServiceHandler = (*BillingHandler)(nil)

type BillingHandler struct {
	service billing.Service
}

func NewBillingHandler(svc billing.Service) *BillingHandler {
	return &BillingHandler{service: svc}
}

func (h *BillingHandler) CreateCheckout(ctx context.Context, req *connect.Request[v1.CreateCheckoutRequest]) (*connect.Response[v1.CreateCheckoutResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	sess, err := h.service.CreateCheckoutSession(ctx, userID, req.Msg.SuccessURL, req.Msg.CancelURL)
	if err != nil {
		return nil, toConnect(err)
	}
	return connect.NewResponse(&v1.CreateCheckoutResponse{SessionID: sess.SessionID, URL: sess.URL}), nil
}

func (h *BillingHandler) CreatePortal(ctx context.Context, req *connect.Request[v1.CreatePortalRequest]) (*connect.Response[v1.CreatePortalResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	url, err := h.service.CreatePortalSession(ctx, userID, req.Msg.ReturnURL)
	if err != nil {
		return nil, toConnect(err)
	}
	return connect.NewResponse(&v1.CreatePortalResponse{URL: url}), nil
}

func toConnect(err error) error {
	switch {
	case errors.Is(err, billing.ErrCustomerNotLinked):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, billing.ErrNotConfigured):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return rpcerr.ToConnect(err)
}
