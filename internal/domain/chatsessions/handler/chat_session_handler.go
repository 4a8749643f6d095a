package handler

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/chatsessions"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.ChatSessionServiceHandler = (*ChatSessionHandler)(nil)

type ChatSessionHandler struct {
	service chatsessions.Service
}

func NewChatSessionHandler(svc chatsessions.Service) *ChatSessionHandler {
	return &ChatSessionHandler{service: svc}
}

func (h *ChatSessionHandler) CreateSession(ctx context.Context, req *connect.Request[v1.CreateChatSessionRequest]) (*connect.Response[v1.CreateChatSessionResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	var promptID *uuid.UUID
	if req.Msg.PromptID != nil && *req.Msg.PromptID != "" {
		id, err := rpcerr.ParseID("prompt_id", *req.Msg.PromptID)
		if err != nil {
			return nil, err
		}
		promptID = &id
	}
	session, err := h.service.CreateSession(ctx, userID, req.Msg.Title, promptID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.CreateChatSessionResponse{Session: session}), nil
}

func (h *ChatSessionHandler) ListSessions(ctx context.Context, req *connect.Request[v1.ListChatSessionsRequest]) (*connect.Response[v1.ListChatSessionsResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	page, err := h.service.ListSessions(ctx, userID, req.Msg.Limit, req.Msg.Offset)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ListChatSessionsResponse{ChatSessionsPage: page}), nil
}

func (h *ChatSessionHandler) GetSession(ctx context.Context, req *connect.Request[v1.GetChatSessionRequest]) (*connect.Response[v1.GetChatSessionResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := rpcerr.ParseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	session, err := h.service.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.GetChatSessionResponse{Session: session}), nil
}

func (h *ChatSessionHandler) DeleteSession(ctx context.Context, req *connect.Request[v1.DeleteChatSessionRequest]) (*connect.Response[v1.DeleteChatSessionResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := rpcerr.ParseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	if err := h.service.DeleteSession(ctx, userID, sessionID); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.DeleteChatSessionResponse{Success: true}), nil
}

func (h *ChatSessionHandler) SendMessage(ctx context.Context, req *connect.Request[v1.SendChatMessageRequest]) (*connect.Response[v1.SendChatMessageResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	sessionID, err := rpcerr.ParseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	reply, err := h.service.SendMessage(ctx, userID, sessionID, req.Msg.Message)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.SendChatMessageResponse{
		UserMessage:      reply.UserMessage,
		AssistantMessage: reply.AssistantMessage,
		Draft:            reply.Draft,
		Cached:           reply.Cached,
	}), nil
}
