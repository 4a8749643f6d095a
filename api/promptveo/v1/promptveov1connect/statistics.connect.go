package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const StatisticsServiceName = "promptveo.v1.StatisticsService"

const (
	StatisticsServiceGetPlatformStatisticsProcedure = "/promptveo.v1.StatisticsService/GetPlatformStatistics"
	StatisticsServiceGetMyStatisticsProcedure       = "/promptveo.v1.StatisticsService/GetMyStatistics"
)

type StatisticsServiceHandler interface {
	GetPlatformStatistics(context.Context, *connect.Request[v1.GetPlatformStatisticsRequest]) (*connect.Response[v1.GetPlatformStatisticsResponse], error)
	GetMyStatistics(context.Context, *connect.Request[v1.GetMyStatisticsRequest]) (*connect.Response[v1.GetMyStatisticsResponse], error)
}

func NewStatisticsServiceHandler(svc StatisticsServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + StatisticsServiceName + "/", route(map[string]http.Handler{
		StatisticsServiceGetPlatformStatisticsProcedure: connect.NewUnaryHandler(StatisticsServiceGetPlatformStatisticsProcedure, svc.GetPlatformStatistics, opts...),
		StatisticsServiceGetMyStatisticsProcedure:       connect.NewUnaryHandler(StatisticsServiceGetMyStatisticsProcedure, svc.GetMyStatistics, opts...),
	})
}
