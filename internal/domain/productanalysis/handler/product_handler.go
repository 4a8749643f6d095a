package handler

import (
	"context"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/api/promptveo/v1/promptveov1connect"
	"github.com/FACorreiaa/promptveo-api/internal/domain/productanalysis"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
	"github.com/FACorreiaa/promptveo-api/pkg/rpcerr"
)

var _ promptveov1connect.ProductAnalysisServiceHandler = (*ProductHandler)(nil)

type ProductHandler struct {
	service productanalysis.Service
}

func NewProductHandler(svc productanalysis.Service) *ProductHandler {
	return &ProductHandler{service: svc}
}

func (h *ProductHandler) AnalyzeProduct(ctx context.Context, req *connect.Request[v1.AnalyzeProductRequest]) (*connect.Response[v1.AnalyzeProductResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	product, err := h.service.Analyze(ctx, userID, req.Msg.ImageURL, req.Msg.Notes)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.AnalyzeProductResponse{Product: product}), nil
}

func (h *ProductHandler) ListProducts(ctx context.Context, _ *connect.Request[v1.ListProductsRequest]) (*connect.Response[v1.ListProductsResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	products, err := h.service.ListProducts(ctx, userID)
	if err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.ListProductsResponse{Products: products}), nil
}

func (h *ProductHandler) DeleteProduct(ctx context.Context, req *connect.Request[v1.DeleteProductRequest]) (*connect.Response[v1.DeleteProductResponse], error) {
	userID, err := interceptors.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	id, err := rpcerr.ParseID("id", req.Msg.ID)
	if err != nil {
		return nil, err
	}
	if err := h.service.DeleteProduct(ctx, userID, id); err != nil {
		return nil, rpcerr.ToConnect(err)
	}
	return connect.NewResponse(&v1.DeleteProductResponse{Success: true}), nil
}
