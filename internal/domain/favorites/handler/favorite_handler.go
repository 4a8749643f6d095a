package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/favorites"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.FavoriteServiceHandler = (*FavoriteHandler)(nil)

type FavoriteHandler struct {
	service favorites.Service
}

func NewFavoriteHandler(svc favorites.Service) *FavoriteHandler {
	return &FavoriteHandler{service: svc}
}

func (h *FavoriteHandler) AddFavorite(ctx context.Context, req *connect.Request[v1.AddFavoriteRequest]) (*connect.Response[v1.AddFavoriteResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	promptID, err := rpcerr.ParseID("prompt_id", req.Msg.PromptID)
	if err != nil {
		return nil, err
	}
	if err := h.service.AddFavorite(ctx, userID, promptID); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.AddFavoriteResponse{Success: true}), nil
}

func (h *FavoriteHandler) RemoveFavorite(ctx context.Context, req *connect.Request[v1.RemoveFavoriteRequest]) (*connect.Response[v1.RemoveFavoriteResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	promptID, err := rpcerr.ParseID("prompt_id", req.Msg.PromptID)
	if err != nil {
		return nil, err
	}
	if err := h.service.RemoveFavorite(ctx, userID, promptID); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.RemoveFavoriteResponse{Success: true}), nil
}

func (h *FavoriteHandler) ListFavorites(ctx context.Context, req *connect.Request[v1.ListFavoritesRequest]) (*connect.Response[v1.ListFavoritesResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	page, err := h.service.ListFavorites(ctx, userID, req.Msg.Limit, req.Msg.Offset)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ListFavoritesResponse{PromptPage: page}), nil
}

func (h *FavoriteHandler) IsFavorite(ctx context.Context, req *connect.Request[v1.IsFavoriteRequest]) (*connect.Response[v1.IsFavoriteResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	promptID, err := rpcerr.ParseID("prompt_id", req.Msg.PromptID)
	if err != nil {
		return nil, err
	}
	ok, err := h.service.IsFavorite(ctx, userID, promptID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.IsFavoriteResponse{IsFavorite: ok}), nil
}
