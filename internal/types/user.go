package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Profile is the public-facing record attached to every user.
type Profile struct {
	ID          uuid.UUID `json:"id"` // same as users.id
	Email       string    `json:"email"`
	Username    *string   `json:"username,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	Website     *string   `json:"website,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateProfileParams defines the fields allowed for profile updates.
// Use pointers for optional fields, allowing partial updates.
type UpdateProfileParams struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Website     *string `json:"website,omitempty"`
}

// Empty reports whether no field is set.
func (p UpdateProfileParams) Empty() bool {
	return p.Username == nil && p.DisplayName == nil && p.AvatarURL == nil && p.Bio == nil && p.Website == nil
}

// ProfileRepository is the persistence contract for profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	EnsureProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) error
}
