package promptveov1

import "github.com/FACorreiaa/promptveo-api/internal/types"

type GetMyProfileRequest struct{}

type GetMyProfileResponse struct {
	Profile *types.Profile `json:"profile"`
}

// UpdateMyProfileRequest only changes the fields that are present. An empty
// string clears a field.
type UpdateMyProfileRequest struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	Website     *string `json:"website,omitempty"`
}

type UpdateMyProfileResponse struct {
	Profile *types.Profile `json:"profile"`
}
