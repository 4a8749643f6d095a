package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/community"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.CommunityServiceHandler = (*CommunityHandler)(nil)

type CommunityHandler struct {
	service community.Service
}

func NewCommunityHandler(svc community.Service) *CommunityHandler {
	return &CommunityHandler{service: svc}
}

func (h *CommunityHandler) List(ctx context.Context, req *connect.Request[v1.ListCommunityPromptsRequest]) (*connect.Response[v1.ListCommunityPromptsResponse], error) {
	var (
		items []*types.CommunityPrompt
		total int
		err   error
	)
	if req.Msg.Status != "" && req.Msg.Status != types.CommunityApproved {
		if _, err := interceptors.RequireAdmin(ctx); err != nil {
			return nil, err
		}
		items, total, err = h.service.ListByStatus(ctx, req.Msg.Status, req.Msg.CommunityFilter)
	} else {
		items, total, err = h.service.List(ctx, req.Msg.CommunityFilter)
	}
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ListCommunityPromptsResponse{Prompts: items, Total: total}), nil
}

func (h *CommunityHandler) Submit(ctx context.Context, req *connect.Request[v1.SubmitCommunityPromptRequest]) (*connect.Response[v1.SubmitCommunityPromptResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.service.Submit(ctx, userID, req.Msg.SubmitCommunityPromptParams)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.SubmitCommunityPromptResponse{Prompt: p}), nil
}

func (h *CommunityHandler) Like(ctx context.Context, req *connect.Request[v1.LikeCommunityPromptRequest]) (*connect.Response[v1.LikeCommunityPromptResponse], error) {
	if _, err := interceptors.RequireUser(ctx); err != nil {
		return nil, err
	}
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	likes, err := h.service.Like(ctx, id)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.LikeCommunityPromptResponse{Likes: likes}), nil
}

func (h *CommunityHandler) Moderate(ctx context.Context, req *connect.Request[v1.ModerateCommunityPromptRequest]) (*connect.Response[v1.ModerateCommunityPromptResponse], error) {
	if _, err := interceptors.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	if err := h.service.Moderate(ctx, id, req.Msg.Status); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ModerateCommunityPromptResponse{Success: true}), nil
}
