package promptveov1

import "github.com/FACorreiaa/promptveo-api/internal/types"

type AddFavoriteRequest struct {
	PromptID string `json:"prompt_id"`
}

type AddFavoriteResponse struct {
	Success bool `json:"success"`
}

type RemoveFavoriteRequest struct {
	PromptID string `json:"prompt_id"`
}

type RemoveFavoriteResponse struct {
	Success bool `json:"success"`
}

type ListFavoritesRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type ListFavoritesResponse struct {
	*types.PromptPage
}

type IsFavoriteRequest struct {
	PromptID string `json:"prompt_id"`
}

type IsFavoriteResponse struct {
	IsFavorite bool `json:"is_favorite"`
}
