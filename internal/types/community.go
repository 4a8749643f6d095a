package types

import (
	"time"

	"github.com/google/uuid"
)

type CommunityStatus string

const (
	CommunityPending  CommunityStatus = "pending"
	CommunityApproved CommunityStatus = "approved"
	CommunityRejected CommunityStatus = "rejected"
)

func (s CommunityStatus) Valid() bool {
	return s == CommunityPending || s == CommunityApproved || s == CommunityRejected
}

// CommunityPrompt is a prompt shared in the public community directory.
type CommunityPrompt struct {
	ID          uuid.UUID       `json:"id"`
	SubmittedBy *uuid.UUID      `json:"submitted_by,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	PromptText  string          `json:"prompt_text"`
	AuthorName  string          `json:"author_name"`
	SourceURL   *string         `json:"source_url,omitempty"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Status      CommunityStatus `json:"status"`
	Likes       int             `json:"likes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CommunityFilter struct {
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Search   string `json:"search,omitempty"`
	SortBy   string `json:"sort_by,omitempty"` // "recent" or "popular"
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

type SubmitCommunityPromptParams struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PromptText  string   `json:"prompt_text"`
	AuthorName  string   `json:"author_name"`
	SourceURL   *string  `json:"source_url,omitempty"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}
