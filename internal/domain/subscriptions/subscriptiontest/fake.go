// Package subscriptiontest provides an in-memory subscription repository for
// tests of packages that depend on subscriptions.
package subscriptiontest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var _ types.SubscriptionRepository = (*FakeRepository)(nil)

type FakeRepository struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*types.Subscription
	// Err, when set, is returned by every read.
	Err error
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{byUser: make(map[uuid.UUID]*types.Subscription)}
}

// Put stores a copy of sub as-is.
func (f *FakeRepository) Put(sub *types.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.byUser[sub.UserID] = &cp
}

func (f *FakeRepository) find(match func(*types.Subscription) bool) (*types.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for _, s := range f.byUser {
		if match(s) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *FakeRepository) GetCurrentSubscriptionByUserID(_ context.Context, userID uuid.UUID) (*types.Subscription, error) {
	return f.find(func(s *types.Subscription) bool { return s.UserID == userID })
}

func (f *FakeRepository) GetByStripeSubscriptionID(_ context.Context, id string) (*types.Subscription, error) {
	return f.find(func(s *types.Subscription) bool {
		return s.StripeSubscriptionID != nil && *s.StripeSubscriptionID == id
	})
}

func (f *FakeRepository) GetByStripeCustomerID(_ context.Context, id string) (*types.Subscription, error) {
	return f.find(func(s *types.Subscription) bool {
		return s.StripeCustomerID != nil && *s.StripeCustomerID == id
	})
}

func (f *FakeRepository) CreateDefaultSubscription(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[userID]; ok {
		return nil
	}
	now := time.Now()
	f.byUser[userID] = &types.Subscription{
		ID: uuid.New(), UserID: userID, Status: types.StatusIncomplete, Plan: types.PlanFree,
		CreatedAt: now, UpdatedAt: now,
	}
	return nil
}

func (f *FakeRepository) Upsert(_ context.Context, sub *types.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	if existing, ok := f.byUser[sub.UserID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		if sub.StripeCustomerID == nil {
			sub.StripeCustomerID = existing.StripeCustomerID
		}
	} else {
		sub.ID = uuid.New()
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	cp := *sub
	f.byUser[sub.UserID] = &cp
	return nil
}

func (f *FakeRepository) SetStripeCustomerID(_ context.Context, userID uuid.UUID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byUser[userID]
	if !ok {
		now := time.Now()
		s = &types.Subscription{ID: uuid.New(), UserID: userID, Status: types.StatusIncomplete, Plan: types.PlanFree, CreatedAt: now}
		f.byUser[userID] = s
	}
	s.StripeCustomerID = &customerID
	s.UpdatedAt = time.Now()
	return nil
}
