package promptveov1

import "github.com/FACorreiaa/promptveo-api/internal/types"

type GetPlatformStatisticsRequest struct{}

type GetPlatformStatisticsResponse struct {
	*types.PlatformStatistics
}

type GetMyStatisticsRequest struct{}

type GetMyStatisticsResponse struct {
	*types.UserStatistics
}
