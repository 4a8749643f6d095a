package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const SubscriptionServiceName = "promptveo.v1.SubscriptionService"

const (
	SubscriptionServiceGetMySubscriptionProcedure = "/promptveo.v1.SubscriptionService/GetMySubscription"
	SubscriptionServiceGetMyFeaturesProcedure     = "/promptveo.v1.SubscriptionService/GetMyFeatures"
	SubscriptionServiceGetPlansProcedure          = "/promptveo.v1.SubscriptionService/GetPlans"
)

type SubscriptionServiceHandler interface {
	GetMySubscription(context.Context, *connect.Request[v1.GetMySubscriptionRequest]) (*connect.Response[v1.GetMySubscriptionResponse], error)
	GetMyFeatures(context.Context, *connect.Request[v1.GetMyFeaturesRequest]) (*connect.Response[v1.GetMyFeaturesResponse], error)
	GetPlans(context.Context, *connect.Request[v1.GetPlansRequest]) (*connect.Response[v1.GetPlansResponse], error)
}

func NewSubscriptionServiceHandler(svc SubscriptionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + SubscriptionServiceName + "/", route(map[string]http.Handler{
		SubscriptionServiceGetMySubscriptionProcedure: connect.NewUnaryHandler(SubscriptionServiceGetMySubscriptionProcedure, svc.GetMySubscription, opts...),
		SubscriptionServiceGetMyFeaturesProcedure:     connect.NewUnaryHandler(SubscriptionServiceGetMyFeaturesProcedure, svc.GetMyFeatures, opts...),
		SubscriptionServiceGetPlansProcedure:          connect.NewUnaryHandler(SubscriptionServiceGetPlansProcedure, svc.GetPlans, opts...),
	})
}
