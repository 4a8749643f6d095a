package interceptors

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
	RequestIDKey contextKey = "request_id"
)

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(UserIDKey).(string)
	return v, ok && v != ""
}

// UserUUIDFromContext returns the authenticated user id, if any.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func GetUserRoleFromContext(ctx context.Context) string {
	v, _ := ctx.Value(UserRoleKey).(string)
	return v
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(RequestIDKey).(string)
	return v, ok
}

// WithUser returns a context carrying an authenticated identity.
func WithUser(ctx context.Context, userID, email, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserEmailKey, email)
	return context.WithValue(ctx, UserRoleKey, role)
}

// RequireUser returns the authenticated user id or a CodeUnauthenticated error.
func RequireUser(ctx context.Context) (uuid.UUID, error) {
	id, ok := UserUUIDFromContext(ctx)
	if !ok {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return id, nil
}

// OptionalUser returns the viewer id, or nil for anonymous callers.
func OptionalUser(ctx context.Context) *uuid.UUID {
	id, ok := UserUUIDFromContext(ctx)
	if !ok {
		return nil
	}
	return &id
}

// RequireAdmin returns the user id of an authenticated admin.
func RequireAdmin(ctx context.Context) (uuid.UUID, error) {
	id, err := RequireUser(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if GetUserRoleFromContext(ctx) != "admin" {
		return uuid.Nil, connect.NewError(connect.CodePermissionDenied, errors.New("admin role required"))
	}
	return id, nil
}
