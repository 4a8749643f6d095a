package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const ChatSessionServiceName = "promptveo.v1.ChatSessionService"

const (
	ChatSessionServiceCreateSessionProcedure = "/promptveo.v1.ChatSessionService/CreateSession"
	ChatSessionServiceListSessionsProcedure  = "/promptveo.v1.ChatSessionService/ListSessions"
	ChatSessionServiceGetSessionProcedure    = "/promptveo.v1.ChatSessionService/GetSession"
	ChatSessionServiceDeleteSessionProcedure = "/promptveo.v1.ChatSessionService/DeleteSession"
	ChatSessionServiceSendMessageProcedure   = "/promptveo.v1.ChatSessionService/SendMessage"
)

type ChatSessionServiceHandler interface {
	CreateSession(context.Context, *connect.Request[v1.CreateChatSessionRequest]) (*connect.Response[v1.CreateChatSessionResponse], error)
	ListSessions(context.Context, *connect.Request[v1.ListChatSessionsRequest]) (*connect.Response[v1.ListChatSessionsResponse], error)
	GetSession(context.Context, *connect.Request[v1.GetChatSessionRequest]) (*connect.Response[v1.GetChatSessionResponse], error)
	DeleteSession(context.Context, *connect.Request[v1.DeleteChatSessionRequest]) (*connect.Response[v1.DeleteChatSessionResponse], error)
	SendMessage(context.Context, *connect.Request[v1.SendChatMessageRequest]) (*connect.Response[v1.SendChatMessageResponse], error)
}

func NewChatSessionServiceHandler(svc ChatSessionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + ChatSessionServiceName + "/", route(map[string]http.Handler{
		ChatSessionServiceCreateSessionProcedure: connect.NewUnaryHandler(ChatSessionServiceCreateSessionProcedure, svc.CreateSession, opts...),
		ChatSessionServiceListSessionsProcedure:  connect.NewUnaryHandler(ChatSessionServiceListSessionsProcedure, svc.ListSessions, opts...),
		ChatSessionServiceGetSessionProcedure:    connect.NewUnaryHandler(ChatSessionServiceGetSessionProcedure, svc.GetSession, opts...),
		ChatSessionServiceDeleteSessionProcedure: connect.NewUnaryHandler(ChatSessionServiceDeleteSessionProcedure, svc.DeleteSession, opts...),
		ChatSessionServiceSendMessageProcedure:   connect.NewUnaryHandler(ChatSessionServiceSendMessageProcedure, svc.SendMessage, opts...),
	})
}
