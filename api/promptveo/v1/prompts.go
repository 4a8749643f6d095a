package promptveov1

import (
	"encoding/json"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

type ListPromptsRequest struct {
	types.PromptFilter
	// Mine lists the caller's own prompts, drafts included.
	Mine bool `json:"mine,omitempty"`
}

type ListPromptsResponse struct {
	*types.PromptPage
}

type GetPromptRequest struct {
	ID string `json:"id"`
}

type GetPromptResponse struct {
	Prompt   *types.Prompt              `json:"prompt"`
	Features types.SubscriptionFeatures `json:"features"`
}

type ExportPromptJSONRequest struct {
	ID string `json:"id"`
}

type ExportPromptJSONResponse struct {
	Filename string          `json:"filename"`
	Document json.RawMessage `json:"document"`
}

type CreatePromptRequest struct {
	types.CreatePromptParams
}

type CreatePromptResponse struct {
	Prompt *types.Prompt `json:"prompt"`
}

type RemixPromptRequest struct {
	ID string `json:"id"`
	types.RemixOverrides
}

type RemixPromptResponse struct {
	Prompt *types.Prompt `json:"prompt"`
}

type DeletePromptRequest struct {
	ID string `json:"id"`
}

type DeletePromptResponse struct {
	Success bool `json:"success"`
}
