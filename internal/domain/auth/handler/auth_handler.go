package handler

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/presenter"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/service"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.AuthServiceHandler = (*AuthHandler)(nil)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(ctx context.Context, req *connect.Request[v1.RegisterRequest]) (*connect.Response[v1.AuthResponse], error) {
	if strings.TrimSpace(req.Msg.Email) == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and password are required"))
	}

	result, err := h.authService.RegisterUser(ctx, service.RegisterParams{
		Email:       req.Msg.Email,
		Password:    req.Msg.Password,
		DisplayName: req.Msg.DisplayName,
		UserAgent:   req.Header().Get("User-Agent"),
		ClientIP:    interceptors.ClientIP(req.Header(), req.Peer().Addr),
	})
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(presenter.AuthResponse(result, "Registration successful")), nil
}

func (h *AuthHandler) Login(ctx context.Context, req *connect.Request[v1.LoginRequest]) (*connect.Response[v1.AuthResponse], error) {
	if strings.TrimSpace(req.Msg.Email) == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and password are required"))
	}

	result, err := h.authService.Login(ctx, service.LoginParams{
		Email:     req.Msg.Email,
		Password:  req.Msg.Password,
		UserAgent: req.Header().Get("User-Agent"),
		ClientIP:  interceptors.ClientIP(req.Header(), req.Peer().Addr),
	})
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(presenter.AuthResponse(result, "Login successful")), nil
}

func (h *AuthHandler) RefreshToken(ctx context.Context, req *connect.Request[v1.RefreshTokenRequest]) (*connect.Response[v1.TokenResponse], error) {
	if req.Msg.RefreshToken == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("refresh_token is required"))
	}

	tokens, err := h.authService.RefreshToken(ctx, req.Msg.RefreshToken, req.Header().Get("User-Agent"), interceptors.ClientIP(req.Header(), req.Peer().Addr))
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(presenter.TokenResponse(tokens)), nil
}

func (h *AuthHandler) Logout(ctx context.Context, req *connect.Request[v1.LogoutRequest]) (*connect.Response[v1.LogoutResponse], error) {
	if req.Msg.AllSessions {
		userID, err := interceptors.RequireUser(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.authService.LogoutAll(ctx, userID); err != nil {
			return nil, rpcerr.ToConnect(err)
		}
		return connect.NewResponse(&v1.LogoutResponse{Success: true}), nil
	}

	if err := h.authService.Logout(ctx, req.Msg.RefreshToken); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.LogoutResponse{Success: true}), nil
}

func (h *AuthHandler) ValidateSession(ctx context.Context, req *connect.Request[v1.ValidateSessionRequest]) (*connect.Response[v1.ValidateSessionResponse], error) {
	token := req.Msg.AccessToken
	if token == "" {
		token = interceptors.BearerToken(req.Header().Get("Authorization"))
	}
	if token == "" {
		return connect.NewResponse(presenter.ValidateSessionResponse(nil)), nil
	}

	claims, err := h.authService.ValidateSession(ctx, token)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) || errors.Is(err, types.ErrForbidden) {
			return connect.NewResponse(presenter.ValidateSessionResponse(nil)), nil
		}
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(presenter.ValidateSessionResponse(claims)), nil
}
