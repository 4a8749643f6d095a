package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/statistics"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.StatisticsServiceHandler = (*StatisticsHandler)(nil)

type StatisticsHandler struct {
	service statistics.Service
}

func NewStatisticsHandler(svc statistics.Service) *StatisticsHandler {
	return &StatisticsHandler{service: svc}
}

func (h *StatisticsHandler) GetPlatformStatistics(ctx context.Context, _ *connect.Request[v1.GetPlatformStatisticsRequest]) (*connect.Response[v1.GetPlatformStatisticsResponse], error) {
	if _, err := interceptors.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := h.service.GetPlatformStatistics(ctx)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.GetPlatformStatisticsResponse{PlatformStatistics: stats}), nil
}

func (h *StatisticsHandler) GetMyStatistics(ctx context.Context, _ *connect.Request[v1.GetMyStatisticsRequest]) (*connect.Response[v1.GetMyStatisticsResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := h.service.GetUserStatistics(ctx, userID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.GetMyStatisticsResponse{UserStatistics: stats}), nil
}
