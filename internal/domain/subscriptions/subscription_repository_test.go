package subscriptions

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var subscriptionCols = []string{
	"id", "user_id", "status", "plan", "price_id", "stripe_customer_id", "stripe_subscription_id",
	"current_period_start", "current_period_end", "cancel_at_period_end", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *RepositoryImpl) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return mockPool, NewRepository(mockPool, logger)
}

func strPtr(s string) *string { return &s }

func TestRepositoryGetCurrentSubscriptionByUserID(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	subID := uuid.New()
	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)

	t.Run("found", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(`SELECT .+ FROM subscriptions WHERE user_id = \$1 ORDER BY updated_at DESC LIMIT 1`).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(subscriptionCols).AddRow(
				subID, userID, types.StatusActive, types.PlanPro, strPtr("price_pro"), strPtr("cus_1"), strPtr("sub_1"),
				&now, &end, false, now, now,
			))

		sub, err := repo.GetCurrentSubscriptionByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, subID, sub.ID)
		assert.True(t, sub.IsActive())
		assert.Equal(t, "cus_1", *sub.StripeCustomerID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing maps to ErrNotFound", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(`SELECT .+ FROM subscriptions WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows(subscriptionCols))

		_, err := repo.GetCurrentSubscriptionByUserID(ctx, userID)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("query failure is wrapped", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(`SELECT .+ FROM subscriptions WHERE user_id = \$1`).
			WithArgs(userID).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.GetCurrentSubscriptionByUserID(ctx, userID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrNotFound)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestRepositoryGetByStripeIDs(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()
	mockPool, repo := newMockRepo(t)

	row := func() *pgxmock.Rows {
		return pgxmock.NewRows(subscriptionCols).AddRow(
			uuid.New(), userID, types.StatusPastDue, types.PlanPro, strPtr("price_pro"), strPtr("cus_9"), strPtr("sub_9"),
			(*time.Time)(nil), (*time.Time)(nil), true, now, now,
		)
	}
	mockPool.ExpectQuery(`WHERE stripe_subscription_id = \$1`).WithArgs("sub_9").WillReturnRows(row())
	mockPool.ExpectQuery(`WHERE stripe_customer_id = \$1`).WithArgs("cus_9").WillReturnRows(row())

	bySub, err := repo.GetByStripeSubscriptionID(ctx, "sub_9")
	require.NoError(t, err)
	assert.Equal(t, userID, bySub.UserID)
	assert.True(t, bySub.CancelAtPeriodEnd)

	byCustomer, err := repo.GetByStripeCustomerID(ctx, "cus_9")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPastDue, byCustomer.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryCreateDefaultSubscription(t *testing.T) {
	userID := uuid.New()
	mockPool, repo := newMockRepo(t)
	mockPool.ExpectExec(`INSERT INTO subscriptions \(user_id, plan, status\)(.|\s)+ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs(userID, types.PlanFree, types.StatusIncomplete).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.CreateDefaultSubscription(context.Background(), userID))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	sub := &types.Subscription{
		UserID:               uuid.New(),
		Status:               types.StatusActive,
		Plan:                 types.PlanPro,
		PriceID:              strPtr("price_pro"),
		StripeSubscriptionID: strPtr("sub_1"),
	}

	t.Run("returns generated columns", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		id := uuid.New()
		now := time.Now()
		mockPool.ExpectQuery(`INSERT INTO subscriptions(.|\s)+ON CONFLICT \(user_id\) DO UPDATE SET(.|\s)+RETURNING id, created_at, updated_at`).
			WithArgs(sub.UserID, sub.Status, sub.Plan, sub.PriceID, sub.StripeCustomerID, sub.StripeSubscriptionID,
				sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CancelAtPeriodEnd).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))

		require.NoError(t, repo.Upsert(ctx, sub))
		assert.Equal(t, id, sub.ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("duplicate stripe subscription is a conflict", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(`INSERT INTO subscriptions`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Upsert(ctx, sub)
		assert.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestRepositorySetStripeCustomerID(t *testing.T) {
	userID := uuid.New()
	mockPool, repo := newMockRepo(t)
	mockPool.ExpectExec(`INSERT INTO subscriptions \(user_id, plan, status, stripe_customer_id\)`).
		WithArgs(userID, types.PlanFree, types.StatusIncomplete, "cus_42").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.SetStripeCustomerID(context.Background(), userID, "cus_42"))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
