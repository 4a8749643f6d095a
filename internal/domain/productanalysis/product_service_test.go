package productanalysis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/cache"
)

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) SaveProduct(ctx context.Context, p *types.UserProduct) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
		p.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockProductRepo) ListProducts(ctx context.Context, userID uuid.UUID) ([]*types.UserProduct, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.UserProduct), args.Error(1)
}

func (m *MockProductRepo) DeleteProduct(ctx context.Context, userID, productID uuid.UUID) error {
	return m.Called(ctx, userID, productID).Error(0)
}

type fakeVision struct {
	answer string
	err    error
	calls  int
	image  string
}

func (f *fakeVision) DescribeImage(_ context.Context, _, _, imageURL string) (string, error) {
	f.calls++
	f.image = imageURL
	return f.answer, f.err
}

func (f *fakeVision) Model() string { return "openai/gpt-4o" }

var (
	free = features.Fixed(nil)
	pro  = features.Fixed(&types.Subscription{Status: types.StatusActive, Plan: types.PlanPro})
)

const shoeAnswer = "```json\n{\"product_name\":\"Trail Shoe\",\"category\":\"footwear\",\"key_features\":[\"grip\",\"light\"],\"suggested_prompt\":\"a shoe on wet rocks\",}\n```"

func setupProductServiceTest(source features.Source, vision *fakeVision) (*ServiceImpl, *MockProductRepo) {
	repo := new(MockProductRepo)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := cache.NewMemory(time.Hour, time.Hour)
	if vision == nil {
		return NewProductService(repo, nil, source, store, logger), repo
	}
	return NewProductService(repo, vision, source, store, logger), repo
}

func TestServiceAnalyze(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	image := "https://cdn.example.com/shoe.png"

	t.Run("stores the parsed analysis", func(t *testing.T) {
		vision := &fakeVision{answer: shoeAnswer}
		svc, repo := setupProductServiceTest(pro, vision)
		repo.On("SaveProduct", mock.Anything, mock.MatchedBy(func(p *types.UserProduct) bool {
			return p.UserID == userID && p.ImageURL == image && p.Notes == "waterproof" && p.Model == "openai/gpt-4o"
		})).Return(nil)

		product, err := svc.Analyze(ctx, userID, " "+image+" ", " waterproof ")
		require.NoError(t, err)
		assert.Equal(t, "Trail Shoe", product.Analysis.ProductName)
		assert.Equal(t, []string{"grip", "light"}, product.Analysis.KeyFeatures)
		assert.NotEqual(t, uuid.Nil, product.ID)
		assert.Equal(t, image, vision.image)
		repo.AssertExpectations(t)
	})

	t.Run("repeated image is served from cache", func(t *testing.T) {
		vision := &fakeVision{answer: shoeAnswer}
		svc, repo := setupProductServiceTest(pro, vision)
		repo.On("SaveProduct", mock.Anything, mock.Anything).Return(nil).Twice()

		_, err := svc.Analyze(ctx, userID, image, "")
		require.NoError(t, err)
		_, err = svc.Analyze(ctx, userID, image, "")
		require.NoError(t, err)
		assert.Equal(t, 1, vision.calls)
		repo.AssertExpectations(t)
	})

	t.Run("free plan needs upgrade", func(t *testing.T) {
		vision := &fakeVision{answer: shoeAnswer}
		svc, repo := setupProductServiceTest(free, vision)
		_, err := svc.Analyze(ctx, userID, image, "")
		assert.ErrorIs(t, err, types.ErrUpgradeRequired)
		assert.Zero(t, vision.calls)
		repo.AssertNotCalled(t, "SaveProduct", mock.Anything, mock.Anything)
	})

	t.Run("invalid input", func(t *testing.T) {
		svc, _ := setupProductServiceTest(pro, &fakeVision{})
		for _, raw := range []string{"", "ftp://x/y.png", "not a url", "https://"} {
			_, err := svc.Analyze(ctx, userID, raw, "")
			assert.ErrorIs(t, err, types.ErrBadRequest, raw)
		}
	})

	t.Run("data url accepted", func(t *testing.T) {
		svc, repo := setupProductServiceTest(pro, &fakeVision{answer: shoeAnswer})
		repo.On("SaveProduct", mock.Anything, mock.Anything).Return(nil)
		_, err := svc.Analyze(ctx, userID, "data:image/png;base64,iVBORw0KGgo=", "")
		assert.NoError(t, err)
	})

	t.Run("not configured", func(t *testing.T) {
		svc, _ := setupProductServiceTest(pro, nil)
		_, err := svc.Analyze(ctx, userID, image, "")
		assert.ErrorIs(t, err, types.ErrUnavailable)
	})

	t.Run("model failure", func(t *testing.T) {
		svc, _ := setupProductServiceTest(pro, &fakeVision{err: errors.New("timeout")})
		_, err := svc.Analyze(ctx, userID, image, "")
		assert.ErrorIs(t, err, types.ErrUnavailable)
	})

	t.Run("unparseable answer", func(t *testing.T) {
		svc, _ := setupProductServiceTest(pro, &fakeVision{answer: "I cannot see the image"})
		_, err := svc.Analyze(ctx, userID, image, "")
		assert.ErrorIs(t, err, types.ErrUnavailable)
	})
}

func TestParseAnalysis(t *testing.T) {
	a, err := ParseAnalysis(`{"product_name":"  Mug "}`)
	require.NoError(t, err)
	assert.Equal(t, "Mug", a.ProductName)
	assert.NotNil(t, a.KeyFeatures)

	_, err = ParseAnalysis(`{"category":"kitchen"}`)
	assert.ErrorIs(t, err, types.ErrUnavailable)
}

func TestServiceListAndDelete(t *testing.T) {
	ctx := context.Background()
	userID, productID := uuid.New(), uuid.New()
	svc, repo := setupProductServiceTest(pro, &fakeVision{})

	repo.On("ListProducts", mock.Anything, userID).Return([]*types.UserProduct{{ID: productID}}, nil)
	repo.On("DeleteProduct", mock.Anything, userID, productID).Return(types.ErrNotFound)

	products, err := svc.ListProducts(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	err = svc.DeleteProduct(ctx, userID, productID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	repo.AssertExpectations(t)
}
