package promptveov1

import "time"

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"display_name,omitempty"`
	Role         string    `json:"role"`
	Message      string    `json:"message"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	// AllSessions revokes every session of the caller; requires an access token.
	AllSessions bool `json:"all_sessions,omitempty"`
}

type LogoutResponse struct {
	Success bool `json:"success"`
}

// ValidateSessionRequest falls back to the Authorization header when
// AccessToken is empty.
type ValidateSessionRequest struct {
	AccessToken string `json:"access_token,omitempty"`
}

type ValidateSessionResponse struct {
	Valid  bool    `json:"valid"`
	UserID *string `json:"user_id,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *string `json:"role,omitempty"`
}
