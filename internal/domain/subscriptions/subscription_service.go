package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
	"github.com/FACorreiaa/promptveo-api/pkg/observability"
)

const (
	// maxLoadAttempts bounds the subscription loader, first call included.
	maxLoadAttempts   = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultFeatureTTL = 2 * time.Minute
)

var _ Service = (*ServiceImpl)(nil)

// Service resolves subscriptions and the features they unlock.
type Service interface {
	// GetCurrent returns the user's subscription, or nil when there is none.
	GetCurrent(ctx context.Context, userID uuid.UUID) (*types.Subscription, error)
	// GetFeatures derives the capability set of a viewer; nil means anonymous.
	GetFeatures(ctx context.Context, userID *uuid.UUID) (types.SubscriptionFeatures, error)
	EnsureDefault(ctx context.Context, userID uuid.UUID) error
	ApplyBillingUpdate(ctx context.Context, sub *types.Subscription) error
	Plans() []types.PlanDescription
}

type ServiceImpl struct {
	logger     *slog.Logger
	repo       types.SubscriptionRepository
	cache      cache.Store
	metrics    *observability.Metrics
	proPriceID string
	retryDelay time.Duration
	featureTTL time.Duration
}

type Option func(*ServiceImpl)

func WithRetryDelay(d time.Duration) Option {
	return func(s *ServiceImpl) { s.retryDelay = d }
}

// WithFeatureTTL sets how long feature sets stay cached. Non-positive values keep the default.
func WithFeatureTTL(d time.Duration) Option {
	return func(s *ServiceImpl) {
		if d > 0 {
			s.featureTTL = d
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *ServiceImpl) { s.metrics = m }
}

func NewSubscriptionService(repo types.SubscriptionRepository, store cache.Store, proPriceID string, logger *slog.Logger, opts ...Option) *ServiceImpl {
	s := &ServiceImpl{
		logger:     logger,
		repo:       repo,
		cache:      store,
		proPriceID: proPriceID,
		retryDelay: defaultRetryDelay,
		featureTTL: defaultFeatureTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func featureKey(userID uuid.UUID) string {
	return "features:" + userID.String()
}

// GetCurrent loads the subscription with a fixed-delay retry. A missing row
// is an answer, not a failure, and is not retried.
func (s *ServiceImpl) GetCurrent(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "GetCurrent", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetCurrent"), slog.String("userID", userID.String()))

	var (
		sub      *types.Subscription
		attempts int
	)
	backoff := retry.WithMaxRetries(maxLoadAttempts-1, retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		found, err := s.repo.GetCurrentSubscriptionByUserID(ctx, userID)
		switch {
		case errors.Is(err, types.ErrNotFound):
			return nil
		case err != nil:
			l.WarnContext(ctx, "Subscription load failed", slog.Int("attempt", attempts), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		sub = found
		return nil
	})
	span.SetAttributes(attribute.Int("retry.attempts", attempts))
	if err != nil {
		l.ErrorContext(ctx, "Failed to load subscription", slog.Int("attempts", attempts), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load subscription")
		return nil, fmt.Errorf("error loading subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription loaded")
	return sub, nil
}

func (s *ServiceImpl) GetFeatures(ctx context.Context, userID *uuid.UUID) (types.SubscriptionFeatures, error) {
	if userID == nil {
		return features.GetSubscriptionFeatures(nil), nil
	}

	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "GetFeatures", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetFeatures"), slog.String("userID", userID.String()))

	var cached types.SubscriptionFeatures
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, featureKey(*userID), &cached)
		if err != nil {
			l.WarnContext(ctx, "Feature cache read failed", slog.Any("error", err))
		}
		s.observeCache(hit)
		if hit {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	sub, err := s.GetCurrent(ctx, *userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to resolve features")
		return types.SubscriptionFeatures{}, err
	}

	f := features.GetSubscriptionFeatures(sub)
	if s.cache != nil {
		if err := s.cache.Set(ctx, featureKey(*userID), f, s.featureTTL); err != nil {
			l.WarnContext(ctx, "Feature cache write failed", slog.Any("error", err))
		}
	}

	span.SetAttributes(attribute.Bool("features.pro", f.CanViewAllPrompts))
	span.SetStatus(codes.Ok, "Features resolved")
	return f, nil
}

func (s *ServiceImpl) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCacheLookup(hit)
	}
}

// EnsureDefault provisions the free subscription when the user has none.
func (s *ServiceImpl) EnsureDefault(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "EnsureDefault", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := s.repo.CreateDefaultSubscription(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to ensure default subscription")
		return fmt.Errorf("error ensuring default subscription: %w", err)
	}
	span.SetStatus(codes.Ok, "Default subscription ensured")
	return nil
}

// ApplyBillingUpdate persists a subscription change and drops cached features.
func (s *ServiceImpl) ApplyBillingUpdate(ctx context.Context, sub *types.Subscription) error {
	ctx, span := otel.Tracer("SubscriptionService").Start(ctx, "ApplyBillingUpdate", trace.WithAttributes(
		attribute.String("user.id", sub.UserID.String()),
		attribute.String("subscription.status", string(sub.Status)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ApplyBillingUpdate"), slog.String("userID", sub.UserID.String()))

	if !sub.Status.Valid() {
		err := fmt.Errorf("%w: unknown subscription status %q", types.ErrBadRequest, sub.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid status")
		return err
	}

	if err := s.repo.Upsert(ctx, sub); err != nil {
		l.ErrorContext(ctx, "Failed to persist subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist subscription")
		return fmt.Errorf("error applying billing update: %w", err)
	}
	s.Invalidate(ctx, sub.UserID)

	l.InfoContext(ctx, "Billing update applied", slog.String("status", string(sub.Status)), slog.String("plan", string(sub.Plan)))
	span.SetStatus(codes.Ok, "Billing update applied")
	return nil
}

// Invalidate drops the cached feature set of a user.
func (s *ServiceImpl) Invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, featureKey(userID)); err != nil {
		s.logger.WarnContext(ctx, "Feature cache invalidation failed", slog.String("userID", userID.String()), slog.Any("error", err))
	}
}

func (s *ServiceImpl) Plans() []types.PlanDescription {
	return features.PlanCatalog(s.proPriceID)
}
