package presenter

import (
	v1 "github.com/FACorreiaa/promptveo-api/api/promptveo/v1"
	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/service"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

// AuthResponse converts a register or login result into its RPC response.
func AuthResponse(result *service.AuthResult, message string) *v1.AuthResponse {
	if result == nil || result.User == nil || result.Tokens == nil {
		return &v1.AuthResponse{}
	}

	return &v1.AuthResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		ExpiresAt:    result.Tokens.ExpiresAt,
		TokenType:    result.Tokens.TokenType,
		UserID:       result.User.ID.String(),
		Email:        result.User.Email,
		DisplayName:  result.User.DisplayName,
		Role:         result.User.Role,
		Message:      message,
	}
}

// TokenResponse renders a token pair as RPC response.
func TokenResponse(tokens *types.TokenPair) *v1.TokenResponse {
	if tokens == nil {
		return &v1.TokenResponse{}
	}

	return &v1.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		TokenType:    tokens.TokenType,
	}
}

// ValidateSessionResponse renders claims into a session validation response.
func ValidateSessionResponse(claims *types.Claims) *v1.ValidateSessionResponse {
	if claims == nil {
		return &v1.ValidateSessionResponse{Valid: false}
	}

	return &v1.ValidateSessionResponse{
		Valid:  true,
		UserID: &claims.UserID,
		Email:  &claims.Email,
		Role:   &claims.Role,
	}
}
