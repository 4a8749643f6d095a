package interceptors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var (
	errMissingToken = errors.New("authentication required")
	errInvalidToken = errors.New("invalid or expired access token")
)

// NewAuthInterceptor validates bearer access tokens. Public procedures run
// without a token; when one is supplied and valid the identity is still put
// on the context so gated listings can personalise results.
func NewAuthInterceptor(secret []byte, publicProcedures ...string) connect.UnaryInterceptorFunc {
	public := make(map[string]struct{}, len(publicProcedures))
	for _, p := range publicProcedures {
		public[p] = struct{}{}
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			_, isPublic := public[req.Spec().Procedure]

			token := BearerToken(req.Header().Get("Authorization"))
			if token == "" {
				if isPublic {
					return next(ctx, req)
				}
				return nil, connect.NewError(connect.CodeUnauthenticated, errMissingToken)
			}

			claims, err := ParseAccessToken(secret, token)
			if err != nil {
				if isPublic {
					return next(ctx, req)
				}
				return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
			}

			ctx = WithUser(ctx, claims.UserID, claims.Email, claims.Role)
			return next(ctx, req)
		}
	}
}

// ParseAccessToken verifies an HS256 access token and returns its claims.
func ParseAccessToken(secret []byte, token string) (*types.Claims, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &types.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid || claims.TokenType != types.AccessToken || claims.UserID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token of an "Authorization: Bearer" header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
