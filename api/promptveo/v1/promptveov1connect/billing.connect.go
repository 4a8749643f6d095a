package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const BillingServiceName = "promptveo.v1.BillingService"

const (
	BillingServiceCreateCheckoutProcedure = "/promptveo.v1.BillingService/CreateCheckout"
	BillingServiceCreatePortalProcedure   = "/promptveo.v1.BillingService/CreatePortal"
)

type BillingServiceHandler interface {
	CreateCheckout(context.Context, *connect.Request[v1.CreateCheckoutRequest]) (*connect.Response[v1.CreateCheckoutResponse], error)
	CreatePortal(context.Context, *connect.Request[v1.CreatePortalRequest]) (*connect.Response[v1.CreatePortalResponse], error)
}

func NewBillingServiceHandler(svc BillingServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + BillingServiceName + "/", route(map[string]http.Handler{
		BillingServiceCreateCheckoutProcedure: connect.NewUnaryHandler(BillingServiceCreateCheckoutProcedure, svc.CreateCheckout, opts...),
		BillingServiceCreatePortalProcedure:   connect.NewUnaryHandler(BillingServiceCreatePortalProcedure, svc.CreatePortal, opts...),
	})
}
