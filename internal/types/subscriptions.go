package types

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// GetCurrentSubscriptionByUserID fetches the active/relevant subscription for a user.
	GetCurrentSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	// GetByStripeSubscriptionID fetches the row linked to a Stripe subscription.
	GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)
	// GetByStripeCustomerID fetches the row linked to a Stripe customer.
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*Subscription, error)
	// CreateDefaultSubscription creates the initial (free) subscription for a new user.
	CreateDefaultSubscription(ctx context.Context, userID uuid.UUID) error
	// Upsert inserts or replaces the subscription of sub.UserID.
	Upsert(ctx context.Context, sub *Subscription) error
	// SetStripeCustomerID links a Stripe customer to the user's subscription row.
	SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusIncomplete SubscriptionStatus = "incomplete"
	StatusTrialing   SubscriptionStatus = "trialing"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusPastDue, StatusIncomplete, StatusTrialing:
		return true
	}
	return false
}

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Subscription holds plan and status information for a user.
// Rows are written by the billing webhook path and by sign-up provisioning only.
type Subscription struct {
	ID                   uuid.UUID          `json:"id"`
	UserID               uuid.UUID          `json:"user_id"`
	Status               SubscriptionStatus `json:"status"`
	Plan                 Plan               `json:"plan"`
	PriceID              *string            `json:"price_id,omitempty"`
	StripeCustomerID     *string            `json:"-"`
	StripeSubscriptionID *string            `json:"-"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// IsActive reports whether the subscription unlocks paid features.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == StatusActive
}

// UnlimitedPrompts is the MaxVisiblePrompts value of plans without a listing cap.
const UnlimitedPrompts = -1

// SubscriptionFeatures is the capability set derived from a subscription.
// It is computed per request and never persisted.
type SubscriptionFeatures struct {
	CanViewAllPrompts bool `json:"canViewAllPrompts"`
	CanViewJSON       bool `json:"canViewJSON"`
	CanFavorite       bool `json:"canFavorite"`
	CanRemix          bool `json:"canRemix"`
	CanCreate         bool `json:"canCreate"`
	MaxVisiblePrompts int  `json:"maxVisiblePrompts"` // -1 for unlimited
}

// Feature names a gated action.
type Feature string

const (
	FeatureViewAllPrompts Feature = "view_all_prompts"
	FeatureViewJSON       Feature = "view_json"
	FeatureFavorite       Feature = "favorite"
	FeatureRemix          Feature = "remix"
	FeatureCreate         Feature = "create"
)

func (f SubscriptionFeatures) Unlimited() bool {
	return f.MaxVisiblePrompts == UnlimitedPrompts
}

// CanViewPromptAt reports whether the prompt at the 0-based listing position is visible.
func (f SubscriptionFeatures) CanViewPromptAt(index int) bool {
	if f.Unlimited() || f.CanViewAllPrompts {
		return true
	}
	return index >= 0 && index < f.MaxVisiblePrompts
}

func (f SubscriptionFeatures) Allows(feature Feature) bool {
	switch feature {
	case FeatureViewAllPrompts:
		return f.CanViewAllPrompts
	case FeatureViewJSON:
		return f.CanViewJSON
	case FeatureFavorite:
		return f.CanFavorite
	case FeatureRemix:
		return f.CanRemix
	case FeatureCreate:
		return f.CanCreate
	}
	return false
}

// Require returns ErrUpgradeRequired when the feature is not unlocked.
func (f SubscriptionFeatures) Require(feature Feature) error {
	if f.Allows(feature) {
		return nil
	}
	return fmt.Errorf("feature %q requires the pro plan: %w", feature, ErrUpgradeRequired)
}

// PlanDescription describes a plan for catalog listings.
type PlanDescription struct {
	Plan        Plan                 `json:"plan"`
	Name        string               `json:"name"`
	PriceID     string               `json:"price_id,omitempty"`
	Features    SubscriptionFeatures `json:"features"`
	Description string               `json:"description"`
}

// CheckoutSession is a hosted Stripe checkout the client redirects to.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
