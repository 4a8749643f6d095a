package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/profiles"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.ProfileServiceHandler = (*ProfileHandler)(nil)

type ProfileHandler struct {
	service profiles.Service
}

func NewProfileHandler(svc profiles.Service) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

func (h *ProfileHandler) GetMyProfile(ctx context.Context, _ *connect.Request[v1.GetMyProfileRequest]) (*connect.Response[v1.GetMyProfileResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.GetMyProfileResponse{Profile: profile}), nil
}

func (h *ProfileHandler) UpdateMyProfile(ctx context.Context, req *connect.Request[v1.UpdateMyProfileRequest]) (*connect.Response[v1.UpdateMyProfileResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := h.service.UpdateProfile(ctx, userID, types.UpdateProfileParams{
		Username:    req.Msg.Username,
		DisplayName: req.Msg.DisplayName,
		AvatarURL:   req.Msg.AvatarURL,
		Bio:         req.Msg.Bio,
		Website:     req.Msg.Website,
	})
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.UpdateMyProfileResponse{Profile: profile}), nil
}
