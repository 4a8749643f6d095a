package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const AuthServiceName = "promptveo.v1.AuthService"

const (
	AuthServiceRegisterProcedure        = "/promptveo.v1.AuthService/Register"
	AuthServiceLoginProcedure           = "/promptveo.v1.AuthService/Login"
	AuthServiceRefreshTokenProcedure    = "/promptveo.v1.AuthService/RefreshToken"
	AuthServiceLogoutProcedure          = "/promptveo.v1.AuthService/Logout"
	AuthServiceValidateSessionProcedure = "/promptveo.v1.AuthService/ValidateSession"
)

type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[v1.RegisterRequest]) (*connect.Response[v1.AuthResponse], error)
	Login(context.Context, *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error)
	RefreshToken(context.Context, *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.TokenResponse], error)
	Logout(context.Context, *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error)
	ValidateSession(context.Context, *connect.Request[v1.ValidateSessionRequest]) (*connect.Response[v1.ValidateSessionResponse], error)
}

func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + AuthServiceName + "/", route(map[string]http.Handler{
		AuthServiceRegisterProcedure:        connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...),
		AuthServiceLoginProcedure:           connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
		AuthServiceRefreshTokenProcedure:    connect.NewUnaryHandler(AuthServiceRefreshTokenProcedure, svc.RefreshToken, opts...),
		AuthServiceLogoutProcedure:          connect.NewUnaryHandler(AuthServiceLogoutProcedure, svc.Logout, opts...),
		AuthServiceValidateSessionProcedure: connect.NewUnaryHandler(AuthServiceValidateSessionProcedure, svc.ValidateSession, opts...),
	})
}
