package promptveov1

import (
	"encoding/json"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

type CreateChatSessionRequest struct {
	Title    string  `json:"title,omitempty"`
	PromptID *string `json:"prompt_id,omitempty"`
}

type CreateChatSessionResponse struct {
	Session *types.ChatSession `json:"session"`
}

type ListChatSessionsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type ListChatSessionsResponse struct {
	*types.ChatSessionsPage
}

type GetChatSessionRequest struct {
	SessionID string `json:"session_id"`
}

type GetChatSessionResponse struct {
	Session *types.ChatSession `json:"session"`
}

type DeleteChatSessionRequest struct {
	SessionID string `json:"session_id"`
}

type DeleteChatSessionResponse struct {
	Success bool `json:"success"`
}

type SendChatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type SendChatMessageResponse struct {
	UserMessage      *types.ConversationMessage `json:"user_message"`
	AssistantMessage *types.ConversationMessage `json:"assistant_message"`
	Draft            json.RawMessage            `json:"draft,omitempty"`
	Cached           bool                       `json:"cached"`
}
