package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const CommunityServiceName = "promptveo.v1.CommunityService"

const (
	CommunityServiceListProcedure     = "/promptveo.v1.CommunityService/List"
	CommunityServiceSubmitProcedure   = "/promptveo.v1.CommunityService/Submit"
	CommunityServiceLikeProcedure     = "/promptveo.v1.CommunityService/Like"
	CommunityServiceModerateProcedure = "/promptveo.v1.CommunityService/Moderate"
)

type CommunityServiceHandler interface {
	List(context.Context, *connect.Request[v1.ListCommunityPromptsRequest]) (*connect.Response[v1.ListCommunityPromptsResponse], error)
	Submit(context.Context, *connect.Request[v1.SubmitCommunityPromptRequest]) (*connect.Response[v1.SubmitCommunityPromptResponse], error)
	Like(context.Context, *connect.Request[v1.LikeCommunityPromptRequest]) (*connect.Response[v1.LikeCommunityPromptResponse], error)
	Moderate(context.Context, *connect.Request[v1.ModerateCommunityPromptRequest]) (*connect.Response[v1.ModerateCommunityPromptResponse], error)
}

func NewCommunityServiceHandler(svc CommunityServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + CommunityServiceName + "/", route(map[string]http.Handler{
		CommunityServiceListProcedure:     connect.NewUnaryHandler(CommunityServiceListProcedure, svc.List, opts...),
		CommunityServiceSubmitProcedure:   connect.NewUnaryHandler(CommunityServiceSubmitProcedure, svc.Submit, opts...),
		CommunityServiceLikeProcedure:     connect.NewUnaryHandler(CommunityServiceLikeProcedure, svc.Like, opts...),
		CommunityServiceModerateProcedure: connect.NewUnaryHandler(CommunityServiceModerateProcedure, svc.Moderate, opts...),
	})
}
