package promptveov1

import "github.com/FACorreiaa/promptveo-api/internal/types"

type ListCommunityPromptsRequest struct {
	types.CommunityFilter
	// Status is honoured for admins only; everyone else sees approved prompts.
	Status types.CommunityStatus `json:"status,omitempty"`
}

type ListCommunityPromptsResponse struct {
	Prompts []*types.CommunityPrompt `json:"prompts"`
	Total   int                      `json:"total"`
}

type SubmitCommunityPromptRequest struct {
	types.SubmitCommunityPromptParams
}

type SubmitCommunityPromptResponse struct {
	Prompt *types.CommunityPrompt `json:"prompt"`
}

type LikeCommunityPromptRequest struct {
	ID string `json:"id"`
}

type LikeCommunityPromptResponse struct {
	Likes int `json:"likes"`
}

type ModerateCommunityPromptRequest struct {
	ID     string                `json:"id"`
	Status types.CommunityStatus `json:"status"`
}

type ModerateCommunityPromptResponse struct {
	Success bool `json:"success"`
}
