package promptveov1connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
)

const ProductAnalysisServiceName = "promptveo.v1.ProductAnalysisService"

const (
	ProductAnalysisServiceAnalyzeProductProcedure = "/promptveo.v1.ProductAnalysisService/AnalyzeProduct"
	ProductAnalysisServiceListProductsProcedure   = "/promptveo.v1.ProductAnalysisService/ListProducts"
	ProductAnalysisServiceDeleteProductProcedure  = "/promptveo.v1.ProductAnalysisService/DeleteProduct"
)

type ProductAnalysisServiceHandler interface {
	AnalyzeProduct(context.Context, *connect.Request[v1.AnalyzeProductRequest]) (*connect.Response[v1.AnalyzeProductResponse], error)
	ListProducts(context.Context, *connect.Request[v1.ListProductsRequest]) (*connect.Response[v1.ListProductsResponse], error)
	DeleteProduct(context.Context, *connect.Request[v1.DeleteProductRequest]) (*connect.Response[v1.DeleteProductResponse], error)
}

func NewProductAnalysisServiceHandler(svc ProductAnalysisServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	return "/" + ProductAnalysisServiceName + "/", route(map[string]http.Handler{
		ProductAnalysisServiceAnalyzeProductProcedure: connect.NewUnaryHandler(ProductAnalysisServiceAnalyzeProductProcedure, svc.AnalyzeProduct, opts...),
		ProductAnalysisServiceListProductsProcedure:   connect.NewUnaryHandler(ProductAnalysisServiceListProductsProcedure, svc.ListProducts, opts...),
		ProductAnalysisServiceDeleteProductProcedure:  connect.NewUnaryHandler(ProductAnalysisServiceDeleteProductProcedure, svc.DeleteProduct, opts...),
	})
}
