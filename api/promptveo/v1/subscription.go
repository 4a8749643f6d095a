package promptveov1

import "github.com/FACorreiaa/promptveo-api/internal/types"

type GetMySubscriptionRequest struct{}

type GetMySubscriptionResponse struct {
	// Subscription is omitted for users that never subscribed.
	Subscription *types.Subscription        `json:"subscription,omitempty"`
	Features     types.SubscriptionFeatures `json:"features"`
}

type GetMyFeaturesRequest struct{}

type GetMyFeaturesResponse struct {
	Features      types.SubscriptionFeatures `json:"features"`
	Authenticated bool                       `json:"authenticated"`
}

type GetPlansRequest struct{}

type GetPlansResponse struct {
	Plans []types.PlanDescription `json:"plans"`
}
