// Package billing connects Stripe checkout, the customer portal and webhook
// events to the subscriptions store.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/subscriptions"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/observability"
)

var (
	ErrCustomerNotLinked = errors.New("no stripe customer linked to this account")
	ErrWebhookSignature  = fmt.Errorf("%w: invalid webhook signature", types.ErrBadRequest)
	ErrNotConfigured     = errors.New("billing is not configured")
)

const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

type Config struct {
	ProPriceID    string
	WebhookSecret string
	// FrontendURL is used for default success, cancel and return URLs.
	FrontendURL string
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*types.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type ServiceImpl struct {
	logger   *slog.Logger
	stripe   StripeClient
	subs     subscriptions.Service
	repo     types.SubscriptionRepository
	profiles types.ProfileRepository
	metrics  *observability.Metrics
	cfg      Config
}

// NewBillingService builds the service. A nil StripeClient disables checkout
// and portal sessions while webhooks keep working.
func NewBillingService(stripeClient StripeClient, subs subscriptions.Service, repo types.SubscriptionRepository,
	profiles types.ProfileRepository, cfg Config, metrics *observability.Metrics, logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		stripe:   stripeClient,
		subs:     subs,
		repo:     repo,
		profiles: profiles,
		metrics:  metrics,
		cfg:      cfg,
	}
}

func (s *ServiceImpl) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, successURL, cancelURL string) (*types.CheckoutSession, error) {
	ctx, span := otel.Tracer("BillingService").Start(ctx, "CreateCheckoutSession", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateCheckoutSession"), slog.String("userID", userID.String()))

	if s.stripe == nil || s.cfg.ProPriceID == "" {
		span.SetStatus(codes.Error, "Billing not configured")
		return nil, ErrNotConfigured
	}

	sub, err := s.subs.GetCurrent(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load subscription")
		return nil, fmt.Errorf("error loading subscription: %w", err)
	}
	if sub.IsActive() {
		span.SetStatus(codes.Error, "Already subscribed")
		return nil, fmt.Errorf("subscription already active: %w", types.ErrConflict)
	}

	customerID, err := s.ensureCustomer(ctx, userID, sub)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve stripe customer", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Customer resolution failed")
		return nil, err
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID: customerID,
		PriceID:    s.cfg.ProPriceID,
		UserID:     userID,
		SuccessURL: orDefault(successURL, s.cfg.FrontendURL+"/billing/success"),
		CancelURL:  orDefault(cancelURL, s.cfg.FrontendURL+"/pricing"),
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to create checkout session", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Checkout session failed")
		return nil, err
	}

	l.InfoContext(ctx, "Checkout session created", slog.String("sessionID", sess.ID))
	span.SetStatus(codes.Ok, "Checkout session created")
	return &types.CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

func (s *ServiceImpl) ensureCustomer(ctx context.Context, userID uuid.UUID, sub *types.Subscription) (string, error) {
	if sub != nil && sub.StripeCustomerID != nil && *sub.StripeCustomerID != "" {
		return *sub.StripeCustomerID, nil
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("error loading profile for checkout: %w", err)
	}
	customerID, err := s.stripe.CreateCustomer(ctx, profile.Email, userID)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetStripeCustomerID(ctx, userID, customerID); err != nil {
		return "", fmt.Errorf("error linking stripe customer: %w", err)
	}
	return customerID, nil
}

func (s *ServiceImpl) CreatePortalSession(ctx context.Context, userID uuid.UUID, returnURL string) (string, error) {
	ctx, span := otel.Tracer("BillingService").Start(ctx, "CreatePortalSession", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if s.stripe == nil {
		span.SetStatus(codes.Error, "Billing not configured")
		return "", ErrNotConfigured
	}

	sub, err := s.subs.GetCurrent(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load subscription")
		return "", fmt.Errorf("error loading subscription: %w", err)
	}
	if sub == nil || sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		span.SetStatus(codes.Error, "No customer")
		return "", ErrCustomerNotLinked
	}

	sess, err := s.stripe.CreatePortalSession(ctx, *sub.StripeCustomerID, orDefault(returnURL, s.cfg.FrontendURL+"/account"))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create portal session", slog.String("userID", userID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Portal session failed")
		return "", err
	}

	span.SetStatus(codes.Ok, "Portal session created")
	return sess.URL, nil
}

// HandleWebhook verifies a raw Stripe payload and processes the event.
func (s *ServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected webhook", slog.Any("error", err))
		s.observe("unknown", "bad_signature")
		return fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}
	return s.HandleEvent(ctx, event)
}

func (s *ServiceImpl) HandleEvent(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)
	ctx, span := otel.Tracer("BillingService").Start(ctx, "HandleEvent", trace.WithAttributes(
		attribute.String("stripe.event.id", event.ID),
		attribute.String("stripe.event.type", eventType),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "HandleEvent"), slog.String("eventID", event.ID), slog.String("eventType", eventType))

	var err error
	switch eventType {
	case EventCheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		err = s.handleSubscriptionChange(ctx, event)
	default:
		l.DebugContext(ctx, "Ignoring webhook event")
		s.observe(eventType, "ignored")
		span.SetStatus(codes.Ok, "Ignored")
		return nil
	}

	if err != nil {
		l.ErrorContext(ctx, "Failed to process webhook event", slog.Any("error", err))
		s.observe(eventType, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Processing failed")
		return err
	}

	s.observe(eventType, "processed")
	span.SetStatus(codes.Ok, "Processed")
	return nil
}

func (s *ServiceImpl) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("error decoding checkout session: %w", err)
	}
	if sess.Mode != stripe.CheckoutSessionModeSubscription || sess.Subscription == nil {
		return nil
	}

	userID, err := userIDFrom(sess.Metadata, sess.ClientReferenceID)
	if err != nil {
		// retrying cannot fix a session created outside this API
		s.logger.WarnContext(ctx, "Checkout session without user reference", slog.String("sessionID", sess.ID), slog.Any("error", err))
		return nil
	}
	if s.stripe == nil {
		return ErrNotConfigured
	}

	stripeSub, err := s.stripe.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return err
	}
	if stripeSub.Customer == nil && sess.Customer != nil {
		stripeSub.Customer = sess.Customer
	}
	return s.applyIfCurrent(ctx, SubscriptionFromStripe(userID, stripeSub, s.cfg.ProPriceID))
}

func (s *ServiceImpl) handleSubscriptionChange(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return fmt.Errorf("error decoding subscription: %w", err)
	}

	userID, err := s.resolveUser(ctx, &stripeSub)
	if errors.Is(err, types.ErrNotFound) {
		// unknown customer: nothing local to update
		s.logger.WarnContext(ctx, "Webhook for unknown customer", slog.String("subscriptionID", stripeSub.ID))
		return nil
	}
	if err != nil {
		return err
	}

	sub := SubscriptionFromStripe(userID, &stripeSub, s.cfg.ProPriceID)
	if string(event.Type) == EventSubscriptionDeleted {
		sub.Status = types.StatusCanceled
		sub.Plan = types.PlanFree
	}
	return s.applyIfCurrent(ctx, sub)
}

// applyIfCurrent stores sub unless it belongs to another Stripe subscription
// than the one the user holds. Another subscription takes over only when it
// is active or the stored one has ended, so late events for a replaced
// subscription cannot downgrade a paying user.
func (s *ServiceImpl) applyIfCurrent(ctx context.Context, sub *types.Subscription) error {
	current, err := s.repo.GetCurrentSubscriptionByUserID(ctx, sub.UserID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("error loading current subscription: %w", err)
	}
	if err == nil && isStale(current, sub) {
		s.logger.InfoContext(ctx, "Ignoring event for replaced subscription",
			slog.String("userID", sub.UserID.String()),
			slog.String("subscriptionID", *sub.StripeSubscriptionID),
			slog.String("currentSubscriptionID", *current.StripeSubscriptionID))
		return nil
	}
	return s.subs.ApplyBillingUpdate(ctx, sub)
}

func isStale(current, incoming *types.Subscription) bool {
	if current.StripeSubscriptionID == nil || incoming.StripeSubscriptionID == nil {
		return false
	}
	if *current.StripeSubscriptionID == *incoming.StripeSubscriptionID {
		return false
	}
	return !incoming.IsActive() && current.Status != types.StatusCanceled
}

// resolveUser finds the local user of a Stripe subscription, preferring the
// metadata written at checkout.
func (s *ServiceImpl) resolveUser(ctx context.Context, stripeSub *stripe.Subscription) (uuid.UUID, error) {
	if id, err := userIDFrom(stripeSub.Metadata, ""); err == nil {
		return id, nil
	}
	if stripeSub.Customer != nil && stripeSub.Customer.ID != "" {
		sub, err := s.repo.GetByStripeCustomerID(ctx, stripeSub.Customer.ID)
		if err == nil {
			return sub.UserID, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	if stripeSub.ID != "" {
		sub, err := s.repo.GetByStripeSubscriptionID(ctx, stripeSub.ID)
		if err == nil {
			return sub.UserID, nil
		}
		return uuid.Nil, err
	}
	return uuid.Nil, types.ErrNotFound
}

func (s *ServiceImpl) observe(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveWebhook(eventType, outcome)
	}
}

func userIDFrom(metadata map[string]string, fallback string) (uuid.UUID, error) {
	raw := metadata["user_id"]
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return uuid.Nil, types.ErrNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id %q", types.ErrBadRequest, raw)
	}
	return id, nil
}

// MapStripeStatus folds Stripe's subscription states onto the local ones.
func MapStripeStatus(status stripe.SubscriptionStatus) types.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return types.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return types.StatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return types.StatusPastDue
	case stripe.SubscriptionStatusIncomplete:
		return types.StatusIncomplete
	default:
		// canceled, incomplete_expired, paused and anything new
		return types.StatusCanceled
	}
}

// SubscriptionFromStripe converts a Stripe subscription into the local row of userID.
func SubscriptionFromStripe(userID uuid.UUID, s *stripe.Subscription, proPriceID string) *types.Subscription {
	sub := &types.Subscription{
		UserID:            userID,
		Status:            MapStripeStatus(s.Status),
		Plan:              types.PlanFree,
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.ID != "" {
		id := s.ID
		sub.StripeSubscriptionID = &id
	}
	if s.Customer != nil && s.Customer.ID != "" {
		id := s.Customer.ID
		sub.StripeCustomerID = &id
	}
	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		priceID := s.Items.Data[0].Price.ID
		sub.PriceID = &priceID
		if priceID == proPriceID && sub.Status != types.StatusCanceled {
			sub.Plan = types.PlanPro
		}
	}
	if s.CurrentPeriodStart > 0 {
		start := time.Unix(s.CurrentPeriodStart, 0).UTC()
		sub.CurrentPeriodStart = &start
	}
	if s.CurrentPeriodEnd > 0 {
		end := time.Unix(s.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}
	return sub
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
