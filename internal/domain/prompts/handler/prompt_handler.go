package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.PromptServiceHandler = (*PromptHandler)(nil)

type PromptHandler struct {
	service prompts.Service
}

func NewPromptHandler(svc prompts.Service) *PromptHandler {
	return &PromptHandler{service: svc}
}

// ListPrompts is public. Anonymous callers get the free window.
func (h *PromptHandler) ListPrompts(ctx context.Context, req *connect.Request[v1.ListPromptsRequest]) (*connect.Response[v1.ListPromptsResponse], error) {
	viewer := interceptors.OptionalUser(ctx)
	filter := req.Msg.PromptFilter
	if req.Msg.Mine {
		if viewer == nil {
			userID, err := interceptors.RequireUser(ctx)
			if err != nil {
				return nil, err
			}
			viewer = &userID
		}
		filter.AuthorID = viewer
	}

	page, err := h.service.ListPrompts(ctx, viewer, filter)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ListPromptsResponse{PromptPage: page}), nil
}

func (h *PromptHandler) GetPrompt(ctx context.Context, req *connect.Request[v1.GetPromptRequest]) (*connect.Response[v1.GetPromptResponse], error) {
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	p, f, err := h.service.GetPrompt(ctx, interceptors.OptionalUser(ctx), id)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.GetPromptResponse{Prompt: p, Features: f}), nil
}

func (h *PromptHandler) ExportPromptJSON(ctx context.Context, req *connect.Request[v1.ExportPromptJSONRequest]) (*connect.Response[v1.ExportPromptJSONResponse], error) {
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	viewer := interceptors.OptionalUser(ctx)
	doc, err := h.service.ExportPromptJSON(ctx, viewer, id)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ExportPromptJSONResponse{
		Filename: "prompt-" + id.String() + ".json",
		Document: doc,
	}), nil
}

func (h *PromptHandler) CreatePrompt(ctx context.Context, req *connect.Request[v1.CreatePromptRequest]) (*connect.Response[v1.CreatePromptResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.service.CreatePrompt(ctx, userID, req.Msg.CreatePromptParams)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.CreatePromptResponse{Prompt: p}), nil
}

func (h *PromptHandler) RemixPrompt(ctx context.Context, req *connect.Request[v1.RemixPromptRequest]) (*connect.Response[v1.RemixPromptResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	p, err := h.service.RemixPrompt(ctx, userID, id, req.Msg.RemixOverrides)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.RemixPromptResponse{Prompt: p}), nil
}

func (h *PromptHandler) DeletePrompt(ctx context.Context, req *connect.Request[v1.DeletePromptRequest]) (*connect.Response[v1.DeletePromptResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	if err := h.service.DeletePrompt(ctx, userID, id); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.DeletePromptResponse{Success: true}), nil
}
