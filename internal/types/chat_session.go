package types

import (
	"time"

	"github.com/google/uuid"
)

// FreeChatMessages is the number of user messages a session accepts before
// further drafting requires the create feature.
const FreeChatMessages = 3

type ChatSession struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"user_id"`
	Title     string                `json:"title"`
	PromptID  *uuid.UUID            `json:"prompt_id,omitempty"` // prompt saved from this session
	Messages  []ConversationMessage `json:"messages,omitempty"`
	Status    SessionStatus         `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// UserMessageCount counts messages written by the user.
func (s *ChatSession) UserMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

type ConversationMessage struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"` // user, assistant, system
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

type SessionStatus string

const (
	StatusSessionActive   SessionStatus = "active"
	StatusSessionArchived SessionStatus = "archived"
)

type ChatSessionsPage struct {
	Sessions []*ChatSession `json:"sessions"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}
