package common

import (
	"fmt"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

// Auth errors wrap the shared sentinels so rpcerr maps them without special cases.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", types.ErrUnauthenticated)
	ErrUserAlreadyExists  = fmt.Errorf("user already exists: %w", types.ErrConflict)
	ErrUserNotFound       = fmt.Errorf("user not found: %w", types.ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("session not found or expired: %w", types.ErrUnauthenticated)
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", types.ErrUnauthenticated)
	ErrUserInactive       = fmt.Errorf("account disabled: %w", types.ErrForbidden)
)
