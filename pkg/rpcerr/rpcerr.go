// Package rpcerr translates domain errors into Connect errors.
package rpcerr

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/types"
)

// UpgradeHeader is set on errors caused by a feature the caller's plan lacks.
const UpgradeHeader = "X-Upgrade-Required"

// ToConnect maps err onto a Connect code. Errors that already carry a code
// are returned unchanged; unknown errors become CodeInternal without leaking
// their message.
func ToConnect(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	switch {
	case errors.Is(err, types.ErrUpgradeRequired):
		out := connect.NewError(connect.CodePermissionDenied, err)
		out.Meta().Set(UpgradeHeader, string(types.PlanPro))
		return out
	case errors.Is(err, types.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, types.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, types.ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, types.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, types.ErrForbidden):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, types.ErrUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}
}

// ParseID parses a uuid request field, failing with CodeInvalidArgument.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s must be a uuid", field))
	}
	return id, nil
}
