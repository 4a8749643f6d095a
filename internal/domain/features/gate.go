// Package features derives the capability set a subscription unlocks.
package features

import (
	"context"

	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

// Source resolves the capability set of a viewer. A nil user id is an
// anonymous visitor.
type Source interface {
	GetFeatures(ctx context.Context, userID *uuid.UUID) (types.SubscriptionFeatures, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, userID *uuid.UUID) (types.SubscriptionFeatures, error)

func (f SourceFunc) GetFeatures(ctx context.Context, userID *uuid.UUID) (types.SubscriptionFeatures, error) {
	return f(ctx, userID)
}

// Fixed returns a Source that always answers with the features of sub.
func Fixed(sub *types.Subscription) Source {
	f := GetSubscriptionFeatures(sub)
	return SourceFunc(func(context.Context, *uuid.UUID) (types.SubscriptionFeatures, error) {
		return f, nil
	})
}

// FreeVisiblePrompts is how many prompts of a listing a free user can open.
const FreeVisiblePrompts = 3

// ProPlanFeatures is the capability set of an active subscription.
var ProPlanFeatures = types.SubscriptionFeatures{
	CanViewJSON:       true,
	CanFavorite:       true,
	CanRemix:          true,
	CanCreate:         true,
	MaxVisiblePrompts: types.UnlimitedPrompts,
}

// FreePlanLimits is the capability set of anonymous users and of every
// subscription that is not active.
var FreePlanLimits = types.SubscriptionFeatures{
	CanViewJSON:       false,
	CanFavorite:       false,
	CanRemix:          false,
	CanCreate:         false,
	MaxVisiblePrompts: FreeVisiblePrompts,
}

// GetSubscriptionFeatures maps a subscription (nil for anonymous users) to
// its capability set. Only status "active" unlocks the pro set.
func GetSubscriptionFeatures(sub *types.Subscription) types.SubscriptionFeatures {
	if sub.IsActive() {
		f := ProPlanFeatures
		f.CanViewAllPrompts = true
		return f
	}
	f := FreePlanLimits
	f.CanViewAllPrompts = false
	return f
}

// PlanCatalog lists the plans in display order. proPriceID may be empty.
func PlanCatalog(proPriceID string) []types.PlanDescription {
	free := FreePlanLimits
	pro := ProPlanFeatures
	pro.CanViewAllPrompts = true
	return []types.PlanDescription{
		{
			Plan:        types.PlanFree,
			Name:        "Free",
			Features:    free,
			Description: "Browse the first prompts of every collection.",
		},
		{
			Plan:        types.PlanPro,
			Name:        "Pro",
			PriceID:     proPriceID,
			Features:    pro,
			Description: "Unlimited prompts, JSON export, favorites, remixing and prompt creation.",
		},
	}
}
