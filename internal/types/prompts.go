package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PromptKind string

const (
	PromptKindRegular  PromptKind = "regular"
	PromptKindTimeline PromptKind = "timeline"
)

func (k PromptKind) Valid() bool {
	return k == PromptKindRegular || k == PromptKindTimeline
}

// TimelineSegment is one timestamped scene of a timeline prompt. Times are seconds.
type TimelineSegment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Scene    string  `json:"scene"`
	Camera   string  `json:"camera,omitempty"`
	Audio    string  `json:"audio,omitempty"`
	Dialogue string  `json:"dialogue,omitempty"`
}

// Prompt is either a regular single-shot prompt or a timeline prompt.
type Prompt struct {
	ID           uuid.UUID         `json:"id"`
	Kind         PromptKind        `json:"kind"`
	AuthorID     *uuid.UUID        `json:"author_id,omitempty"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	PromptText   string            `json:"prompt_text,omitempty"`
	PromptJSON   json.RawMessage   `json:"prompt_json,omitempty"`
	Timeline     []TimelineSegment `json:"timeline,omitempty"`
	Duration     float64           `json:"duration,omitempty"`
	ThumbnailURL *string           `json:"thumbnail_url,omitempty"`
	VideoURL     *string           `json:"video_url,omitempty"`
	IsPublished  bool              `json:"is_published"`
	RemixedFrom  *uuid.UUID        `json:"remixed_from,omitempty"`
	Locked       bool              `json:"locked"`
	IsFavorite   bool              `json:"is_favorite"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// PromptFilter narrows a prompt listing.
type PromptFilter struct {
	Kind     PromptKind `json:"kind,omitempty"`
	Category string     `json:"category,omitempty"`
	Tag      string     `json:"tag,omitempty"`
	Search   string     `json:"search,omitempty"`
	AuthorID *uuid.UUID `json:"author_id,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
	// IncludeUnpublished is only honoured together with AuthorID.
	IncludeUnpublished bool `json:"-"`
}

type PromptPage struct {
	Prompts  []*Prompt            `json:"prompts"`
	Total    int                  `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Features SubscriptionFeatures `json:"features"`
}

type CreatePromptParams struct {
	Kind         PromptKind        `json:"kind"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	Tags         []string          `json:"tags"`
	PromptText   string            `json:"prompt_text"`
	PromptJSON   json.RawMessage   `json:"prompt_json,omitempty"`
	Timeline     []TimelineSegment `json:"timeline,omitempty"`
	ThumbnailURL *string           `json:"thumbnail_url,omitempty"`
	VideoURL     *string           `json:"video_url,omitempty"`
	IsPublished  bool              `json:"is_published"`
	RemixedFrom  *uuid.UUID        `json:"-"`
}

// RemixOverrides replaces fields of the source prompt when remixing.
type RemixOverrides struct {
	Title      *string         `json:"title,omitempty"`
	PromptText *string         `json:"prompt_text,omitempty"`
	PromptJSON json.RawMessage `json:"prompt_json,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
}

// Favorite links a user to a prompt.
type Favorite struct {
	UserID    uuid.UUID `json:"user_id"`
	PromptID  uuid.UUID `json:"prompt_id"`
	CreatedAt time.Time `json:"created_at"`
}
