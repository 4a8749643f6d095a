package promptveov1

import "github.com/FACorreiaa/promptveo-api/internal/types"

type AnalyzeProductRequest struct {
	ImageURL string `json:"image_url"`
	Notes    string `json:"notes,omitempty"`
}

type AnalyzeProductResponse struct {
	Product *types.UserProduct `json:"product"`
}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []*types.UserProduct `json:"products"`
}

type DeleteProductRequest struct {
	ID string `json:"id"`
}

type DeleteProductResponse struct {
	Success bool `json:"success"`
}
