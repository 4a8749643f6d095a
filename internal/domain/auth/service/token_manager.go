package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/domain/auth/common"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/interceptors"
)

const tokenIssuer = "promptveo-api"

// TokenManager issues and validates the access/refresh JWT pair.
type TokenManager interface {
	GenerateTokenPair(userID, email, role string) (*types.TokenPair, error)
	ValidateAccessToken(tokenString string) (*types.Claims, error)
	ValidateRefreshToken(tokenString string) (*types.Claims, error)
}

var _ TokenManager = (*JWTManager)(nil)

type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTManager(secret string, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *JWTManager) sign(userID, email, role string, typ types.TokenType, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(ttl)
	claims := types.Claims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

func (m *JWTManager) GenerateTokenPair(userID, email, role string) (*types.TokenPair, error) {
	if len(m.secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	access, accessExp, err := m.sign(userID, email, role, types.AccessToken, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := m.sign(userID, email, role, types.RefreshToken, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &types.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(tokenString string) (*types.Claims, error) {
	claims, err := interceptors.ParseAccessToken(m.secret, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	return claims, nil
}

func (m *JWTManager) ValidateRefreshToken(tokenString string) (*types.Claims, error) {
	claims := &types.Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.TokenType != types.RefreshToken || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
