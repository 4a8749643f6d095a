package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const ProfileServiceName = "promptveo.v1.ProfileService"

const (
	ProfileServiceGetMyProfileProcedure    = "/promptveo.v1.ProfileService/GetMyProfile"
	ProfileServiceUpdateMyProfileProcedure = "/promptveo.v1.ProfileService/UpdateMyProfile"
)

type ProfileServiceHandler interface {
	GetMyProfile(context.Context, *connect.Request[v1.GetMyProfileRequest]) (*connect.Response[v1.GetMyProfileResponse], error)
	UpdateMyProfile(context.Context, *connect.Request[v1.UpdateMyProfileRequest]) (*connect.Response[v1.UpdateMyProfileResponse], error)
}

func NewProfileServiceHandler(svc ProfileServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + ProfileServiceName + "/", route(map[string]http.Handler{
		ProfileServiceGetMyProfileProcedure:    connect.NewUnaryHandler(ProfileServiceGetMyProfileProcedure, svc.GetMyProfile, opts...),
		ProfileServiceUpdateMyProfileProcedure: connect.NewUnaryHandler(ProfileServiceUpdateMyProfileProcedure, svc.UpdateMyProfile, opts...),
	})
}
