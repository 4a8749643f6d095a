package types

import (
	"time"

	"github.com/google/uuid"
)

// ProductAnalysis is the structured result of analysing a product image.
type ProductAnalysis struct {
	ProductName     string   `json:"product_name"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	KeyFeatures     []string `json:"key_features"`
	TargetAudience  string   `json:"target_audience"`
	SuggestedPrompt string   `json:"suggested_prompt"`
}

// UserProduct is a stored product analysis.
type UserProduct struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	ImageURL  string          `json:"image_url"`
	Notes     string          `json:"notes,omitempty"`
	Analysis  ProductAnalysis `json:"analysis"`
	Model     string          `json:"model"`
	CreatedAt time.Time       `json:"created_at"`
}
