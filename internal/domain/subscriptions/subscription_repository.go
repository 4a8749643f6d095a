package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/db"
)

var _ types.SubscriptionRepository = (*RepositoryImpl)(nil)

const subscriptionColumns = `id, user_id, status, plan, price_id, stripe_customer_id, stripe_subscription_id,
       current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool db.Querier
}

func NewRepository(pgpool db.Querier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func scanSubscription(row pgx.Row) (*types.Subscription, error) {
	var s types.Subscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.Status, &s.Plan, &s.PriceID, &s.StripeCustomerID, &s.StripeSubscriptionID,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RepositoryImpl) getOne(ctx context.Context, method, where string, arg any) (*types.Subscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", method))

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE ` + where + ` ORDER BY updated_at DESC LIMIT 1`
	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "no subscription")
			return nil, fmt.Errorf("subscription not found: %w", types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to fetch subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription fetched")
	return sub, nil
}

// GetCurrentSubscriptionByUserID returns the most recently updated row of the user.
func (r *RepositoryImpl) GetCurrentSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*types.Subscription, error) {
	return r.getOne(ctx, "GetCurrentSubscriptionByUserID", "user_id = $1", userID)
}

func (r *RepositoryImpl) GetByStripeSubscriptionID(ctx context.Context, stripeSubscriptionID string) (*types.Subscription, error) {
	return r.getOne(ctx, "GetByStripeSubscriptionID", "stripe_subscription_id = $1", stripeSubscriptionID)
}

func (r *RepositoryImpl) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*types.Subscription, error) {
	return r.getOne(ctx, "GetByStripeCustomerID", "stripe_customer_id = $1", stripeCustomerID)
}

// CreateDefaultSubscription inserts the free plan row. Existing rows are left untouched.
func (r *RepositoryImpl) CreateDefaultSubscription(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "CreateDefaultSubscription", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateDefaultSubscription"), slog.String("userID", userID.String()))

	tag, err := r.pgpool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, plan, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, types.PlanFree, types.StatusIncomplete)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create default subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return fmt.Errorf("database error creating default subscription: %w", err)
	}

	l.DebugContext(ctx, "Default subscription ensured", slog.Int64("inserted", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "Default subscription ensured")
	return nil
}

// Upsert writes sub keyed by user id and fills in ID and timestamps.
func (r *RepositoryImpl) Upsert(ctx context.Context, sub *types.Subscription) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Upsert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("user.id", sub.UserID.String()),
		attribute.String("subscription.status", string(sub.Status)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Upsert"), slog.String("userID", sub.UserID.String()))

	err := r.pgpool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, status, plan, price_id, stripe_customer_id, stripe_subscription_id,
		                           current_period_start, current_period_end, cancel_at_period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			plan = EXCLUDED.plan,
			price_id = EXCLUDED.price_id,
			stripe_customer_id = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		sub.UserID, sub.Status, sub.Plan, sub.PriceID, sub.StripeCustomerID, sub.StripeSubscriptionID,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Stripe subscription already linked")
			return fmt.Errorf("stripe subscription linked to another user: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to upsert subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return fmt.Errorf("database error upserting subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription saved", slog.String("status", string(sub.Status)), slog.String("plan", string(sub.Plan)))
	span.SetStatus(codes.Ok, "Subscription saved")
	return nil
}

func (r *RepositoryImpl) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "SetStripeCustomerID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscriptions"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET stripe_customer_id = EXCLUDED.stripe_customer_id, updated_at = NOW()`,
		userID, types.PlanFree, types.StatusIncomplete, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to link stripe customer", slog.String("userID", userID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return fmt.Errorf("database error linking stripe customer: %w", err)
	}
	span.SetStatus(codes.Ok, "Customer linked")
	return nil
}
