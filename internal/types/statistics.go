package types

import "time"

// PlatformStatistics summarises the catalog and the customer base.
type PlatformStatistics struct {
	TotalUsers         int       `json:"total_users"`
	ProSubscribers     int       `json:"pro_subscribers"`
	PublishedPrompts   int       `json:"published_prompts"`
	TimelinePrompts    int       `json:"timeline_prompts"`
	PendingSubmissions int       `json:"pending_submissions"`
	ChatSessions       int       `json:"chat_sessions"`
	AnalysedProducts   int       `json:"analysed_products"`
	GeneratedAt        time.Time `json:"generated_at"`
}

// UserStatistics counts what a single user has saved and produced.
type UserStatistics struct {
	Favorites        int `json:"favorites"`
	CreatedPrompts   int `json:"created_prompts"`
	ChatSessions     int `json:"chat_sessions"`
	AnalysedProducts int `json:"analysed_products"`
}
