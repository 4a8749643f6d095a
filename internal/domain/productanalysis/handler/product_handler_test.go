package handler

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

type stubService struct {
	analyzeErr error
	deleted    uuid.UUID
}

func (s *stubService) Analyze(_ context.Context, userID uuid.UUID, imageURL, notes string) (*types.UserProduct, error) {
	if s.analyzeErr != nil {
		return nil, s.analyzeErr
	}
	return &types.UserProduct{ID: uuid.New(), UserID: userID, ImageURL: imageURL, Notes: notes}, nil
}

func (s *stubService) ListProducts(context.Context, uuid.UUID) ([]*types.UserProduct, error) {
	return []*types.UserProduct{}, nil
}

func (s *stubService) DeleteProduct(_ context.Context, _, productID uuid.UUID) error {
	s.deleted = productID
	return nil
}

func userCtx() context.Context {
	return interceptors.WithUser(context.Background(), uuid.NewString(), "a@example.com", types.RoleMember)
}

func TestProductHandlerAnalyze(t *testing.T) {
	h := NewProductHandler(&stubService{})

	_, err := h.AnalyzeProduct(context.Background(), connect.NewRequest(&v1.AnalyzeProductRequest{ImageURL: "https://x/y.png"}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	resp, err := h.AnalyzeProduct(userCtx(), connect.NewRequest(&v1.AnalyzeProductRequest{ImageURL: "https://x/y.png", Notes: "n"}))
	require.NoError(t, err)
	assert.Equal(t, "https://x/y.png", resp.Msg.Product.ImageURL)
}

func TestProductHandlerErrors(t *testing.T) {
	h := NewProductHandler(&stubService{analyzeErr: types.ErrUpgradeRequired})
	_, err := h.AnalyzeProduct(userCtx(), connect.NewRequest(&v1.AnalyzeProductRequest{ImageURL: "https://x/y.png"}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	h = NewProductHandler(&stubService{analyzeErr: types.ErrBadRequest})
	_, err = h.AnalyzeProduct(userCtx(), connect.NewRequest(&v1.AnalyzeProductRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestProductHandlerListAndDelete(t *testing.T) {
	svc := &stubService{}
	h := NewProductHandler(svc)

	list, err := h.ListProducts(userCtx(), connect.NewRequest(&v1.ListProductsRequest{}))
	require.NoError(t, err)
	assert.NotNil(t, list.Msg.Products)

	id := uuid.New()
	resp, err := h.DeleteProduct(userCtx(), connect.NewRequest(&v1.DeleteProductRequest{ID: id.String()}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Success)
	assert.Equal(t, id, svc.deleted)

	_, err = h.DeleteProduct(userCtx(), connect.NewRequest(&v1.DeleteProductRequest{ID: "x"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
